package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"checkout-relay/apperrors"
	"checkout-relay/config"
	"checkout-relay/gateway"
	"checkout-relay/logging"
	"checkout-relay/models"
	"checkout-relay/monitoring"
	"checkout-relay/pricing"
)

const defaultLastName = "User"

// Gateway is the subset of the payment gateway API the service needs.
type Gateway interface {
	Initialize(ctx context.Context, req *models.InitializeRequest) (string, error)
	Verify(ctx context.Context, txRef string) (*models.VerifyResponse, error)
}

// PaymentService validates payment requests and relays them to the gateway.
type PaymentService struct {
	tracer  trace.Tracer
	cfg     *config.Config
	gateway Gateway
	prices  pricing.Table
	now     func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(tracer trace.Tracer, cfg *config.Config, gw Gateway) *PaymentService {
	return &PaymentService{
		tracer:  tracer,
		cfg:     cfg,
		gateway: gw,
		prices:  pricing.Default,
		now:     time.Now,
	}
}

// CreatePayment validates req, derives its transaction reference and asks the
// gateway for a hosted checkout URL. Returned errors are *apperrors.Error.
func (s *PaymentService) CreatePayment(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "create_payment")
	defer span.End()

	span.SetAttributes(
		attribute.String("payment.user_id", req.UserID),
		attribute.String("payment.type", req.PaymentType),
		attribute.String("payment.amount", req.Amount.String()),
	)
	logger := logging.WithTraceContext(span)

	if err := s.validate(req); err != nil {
		s.recordOutcome(ctx, req.PaymentType, "rejected")
		span.SetAttributes(attribute.String("payment.status", "rejected"))
		return nil, err
	}

	if s.cfg.GatewaySecret == "" {
		logger.Error("Gateway secret is missing; set CHAPA_SECRET or CHAPA_SECRET_KEY")
		s.recordOutcome(ctx, req.PaymentType, "misconfigured")
		span.SetStatus(codes.Error, "gateway secret missing")
		return nil, apperrors.Configuration(errors.New("gateway secret not configured"))
	}

	txRef := s.txRef(req)
	span.SetAttributes(attribute.String("payment.tx_ref", txRef))

	initReq := &models.InitializeRequest{
		Amount:      req.Amount.StringFixed(2),
		Currency:    pricing.Currency,
		Email:       req.Email,
		FirstName:   req.Name,
		LastName:    defaultLastName,
		Description: req.Description,
		ReturnURL:   s.cfg.ReturnURL(),
		TxRef:       txRef,
	}
	if strings.TrimSpace(initReq.Description) == "" {
		initReq.Description = "Payment for " + req.PaymentType
	}
	if s.cfg.GatewaySendReference {
		initReq.Reference = txRef
	}

	logger.Info("Initializing payment",
		zap.String("user_id", req.UserID),
		zap.String("payment_type", req.PaymentType),
		zap.String("amount", initReq.Amount),
		zap.String("tx_ref", txRef),
	)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	checkoutURL, err := s.gateway.Initialize(callCtx, initReq)
	if err != nil {
		logger.Error("Payment gateway call failed",
			append(upstreamFields(err),
				zap.String("user_id", req.UserID),
				zap.String("tx_ref", txRef),
			)...,
		)
		s.recordOutcome(ctx, req.PaymentType, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway call failed")
		return nil, apperrors.Upstream(http.StatusInternalServerError, apperrors.MsgPaymentSetupFailed, err)
	}

	s.recordOutcome(ctx, req.PaymentType, "success")
	monitoring.PaymentAmount.Record(ctx, req.Amount.InexactFloat64(),
		metric.WithAttributes(attribute.String("payment_type", s.metricType(req.PaymentType))),
	)
	span.SetAttributes(attribute.String("payment.status", "success"))

	return &models.PaymentResponse{
		Success:     true,
		CheckoutURL: checkoutURL,
		TxRef:       txRef,
	}, nil
}

// VerifyPayment asks the gateway for the outcome of txRef.
func (s *PaymentService) VerifyPayment(ctx context.Context, txRef string) (*models.VerificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "verify_payment")
	defer span.End()

	span.SetAttributes(attribute.String("payment.tx_ref", txRef))
	logger := logging.WithTraceContext(span)

	if strings.TrimSpace(txRef) == "" {
		return nil, apperrors.BadRequest("Missing transaction reference")
	}
	if s.cfg.GatewaySecret == "" {
		logger.Error("Gateway secret is missing; set CHAPA_SECRET or CHAPA_SECRET_KEY")
		return nil, apperrors.Configuration(errors.New("gateway secret not configured"))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	resp, err := s.gateway.Verify(callCtx, txRef)
	if err != nil {
		logger.Error("Payment verification failed", append(upstreamFields(err), zap.String("tx_ref", txRef))...)
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway verify failed")
		return nil, apperrors.Upstream(http.StatusBadGateway, apperrors.MsgVerificationFailed, err)
	}

	span.SetAttributes(attribute.String("payment.status", resp.Data.Status))

	return &models.VerificationResponse{
		Success:  true,
		Status:   resp.Data.Status,
		TxRef:    resp.Data.TxRef,
		Amount:   resp.Data.Amount.StringFixed(2),
		Currency: resp.Data.Currency,
	}, nil
}

// validate runs the input checks in order: required fields, type, amount.
func (s *PaymentService) validate(req *models.PaymentRequest) error {
	// A non-numeric amount is present, so it fails the price check below.
	if (req.Amount.Valid() && req.Amount.IsZero()) ||
		isBlank(req.Email) || isBlank(req.Name) || isBlank(req.UserID) || isBlank(req.PaymentType) {
		return apperrors.BadRequest(apperrors.MsgMissingFields)
	}

	price, ok := s.prices.Price(req.PaymentType)
	if !ok {
		return apperrors.BadRequest("Invalid paymentType. Use 'login' or 'signup'.")
	}

	if !req.Amount.Valid() || !pricing.Matches(req.Amount.Decimal, price) {
		return apperrors.BadRequest(fmt.Sprintf("Invalid amount. Expected %s %s", pricing.Currency, price.StringFixed(2)))
	}
	return nil
}

// txRef is {paymentType}_{userId}_{epochMillis}; the submitted, unresolved
// payment type is kept.
func (s *PaymentService) txRef(req *models.PaymentRequest) string {
	return fmt.Sprintf("%s_%s_%d", req.PaymentType, req.UserID, s.now().UnixMilli())
}

func (s *PaymentService) recordOutcome(ctx context.Context, paymentType, status string) {
	monitoring.PaymentCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("payment_type", s.metricType(paymentType)),
			attribute.String("status", status),
		),
	)
}

// metricType keeps the payment_type label bounded to the priced types.
func (s *PaymentService) metricType(paymentType string) string {
	resolved := pricing.Resolve(paymentType)
	if _, ok := s.prices[resolved]; ok {
		return resolved
	}
	return "unknown"
}

func upstreamFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	var statusErr *gateway.StatusError
	if errors.As(err, &statusErr) {
		fields = append(fields,
			zap.Int("upstream_status", statusErr.StatusCode),
			zap.String("upstream_body", statusErr.Body),
		)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		fields = append(fields, zap.Bool("timeout", true))
	}
	return fields
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
