package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"checkout-relay/handlers"
	"checkout-relay/middleware"
)

// NewRouter builds the gin engine with middleware and all routes. A nil
// metricsHandler leaves /metrics unregistered.
func NewRouter(serviceName string, h *handlers.PaymentHandler, metricsHandler http.Handler) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.HTTPMetrics())

	r.GET("/", h.Liveness)
	r.GET("/health", h.HealthCheck)
	r.POST("/create-payment", h.CreatePayment)
	r.GET("/payment-result", h.PaymentResult)
	r.GET("/verify-payment/:txRef", h.VerifyPayment)

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	return r
}
