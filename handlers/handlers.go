package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"checkout-relay/apperrors"
	"checkout-relay/logging"
	"checkout-relay/models"
)

// LivenessMessage is the body of GET /.
const LivenessMessage = "Chapa Backend is running!"

// PaymentService is what the handlers need from the service layer.
type PaymentService interface {
	CreatePayment(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResponse, error)
	VerifyPayment(ctx context.Context, txRef string) (*models.VerificationResponse, error)
}

// PaymentHandler handles HTTP requests for payments
type PaymentHandler struct {
	paymentService PaymentService
	deepLink       string
}

// NewPaymentHandler creates a new payment handler. deepLink is where
// GET /payment-result sends the user.
func NewPaymentHandler(paymentService PaymentService, deepLink string) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		deepLink:       deepLink,
	}
}

// CreatePayment handles POST /create-payment.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	ctx := c.Request.Context()
	span := trace.SpanFromContext(ctx)

	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.paymentService.CreatePayment(ctx, &req)
	if err != nil {
		h.respondError(c, span, err, zap.String("user_id", req.UserID), zap.String("payment_type", req.PaymentType))
		return
	}

	span.AddEvent("payment_initialized")
	c.JSON(http.StatusOK, response)
}

// PaymentResult handles GET /payment-result, the gateway's return URL. It
// always bounces to the fixed deep link; query parameters are not forwarded.
func (h *PaymentHandler) PaymentResult(c *gin.Context) {
	logging.FromContext(c.Request.Context()).Info("Payment result redirect",
		zap.String("tx_ref", c.Query("tx_ref")),
		zap.String("status", c.Query("status")),
	)
	c.Redirect(http.StatusFound, h.deepLink)
}

// VerifyPayment handles GET /verify-payment/:txRef.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	ctx := c.Request.Context()
	span := trace.SpanFromContext(ctx)
	txRef := c.Param("txRef")

	response, err := h.paymentService.VerifyPayment(ctx, txRef)
	if err != nil {
		h.respondError(c, span, err, zap.String("tx_ref", txRef))
		return
	}

	c.JSON(http.StatusOK, response)
}

// Liveness handles GET /.
func (h *PaymentHandler) Liveness(c *gin.Context) {
	c.String(http.StatusOK, LivenessMessage)
}

// HealthCheck handles health check requests
func (h *PaymentHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// respondError writes {"error": message}. Only the caller-safe message leaves
// the process; client errors are logged at warn, everything else at error.
func (h *PaymentHandler) respondError(c *gin.Context, span trace.Span, err error, fields ...zap.Field) {
	status, message := apperrors.StatusAndMessage(err)

	logger := logging.WithTraceContext(span)
	fields = append(fields, zap.Int("status", status), zap.Error(err))
	if status < http.StatusInternalServerError {
		logger.Warn("Payment request rejected", fields...)
	} else {
		logger.Error("Payment request failed", fields...)
	}

	c.JSON(status, gin.H{"error": message})
}
