package payments

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tecnolua/ClubePharma/internal/logger"
	"github.com/tecnolua/ClubePharma/internal/metrics"
	"github.com/tecnolua/ClubePharma/internal/orders"
)

const dedupScope = "webhook"

// Result is the acknowledgement body. The HTTP layer answers 200 whatever
// Success says.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PaymentID string `json:"paymentId,omitempty"`
	Status    Status `json:"status,omitempty"`
	Changed   bool   `json:"changed"`
}

// Reconciler applies gateway notifications to local payment and order state.
// Notifications are delivered at least once and in any order; applying the
// same one twice is a no-op.
type Reconciler struct {
	gateway Gateway
	store   Store
	dedup   Deduper
	events  Publisher
	tracer  trace.Tracer
	now     func() time.Time
}

func NewReconciler(gateway Gateway, store Store, dedup Deduper, events Publisher) *Reconciler {
	return &Reconciler{
		gateway: gateway,
		store:   store,
		dedup:   dedup,
		events:  events,
		tracer:  otel.Tracer("clubepharma/payments"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// orderTarget derives the order status implied by a payment status. Empty
// means leave the order alone.
func orderTarget(s Status) orders.Status {
	switch s {
	case StatusApproved:
		return orders.StatusProcessing
	case StatusRejected, StatusRefunded:
		return orders.StatusCancelled
	default:
		return ""
	}
}

type applied struct {
	payment      Payment
	order        orders.Order
	changed      bool
	newlyPaid    bool
	orderChanged bool
}

func (r *Reconciler) HandleNotification(ctx context.Context, eventType, gatewayPaymentID string) Result {
	ctx, span := r.tracer.Start(ctx, "payments.HandleNotification")
	defer span.End()
	span.SetAttributes(attribute.String("webhook.type", eventType), attribute.String("gateway.payment_id", gatewayPaymentID))
	log := logger.Ctx(ctx).With().Str("gateway_payment_id", gatewayPaymentID).Logger()

	if eventType != "payment" {
		metrics.WebhookNotifications.WithLabelValues("ignored").Inc()
		log.Debug().Str("type", eventType).Msg("ignoring webhook type")
		return Result{Success: true, Message: "Webhook received but not processed"}
	}
	if gatewayPaymentID == "" {
		metrics.WebhookNotifications.WithLabelValues("invalid").Inc()
		log.Warn().Msg("webhook without payment id")
		return Result{Success: false, Message: "No payment ID provided"}
	}

	gp, err := r.gateway.GetPayment(ctx, gatewayPaymentID)
	if err != nil {
		metrics.WebhookNotifications.WithLabelValues("upstream_error").Inc()
		span.RecordError(err)
		log.Error().Err(err).Msg("fetch gateway payment")
		return Result{Success: false, Message: "Could not fetch payment from gateway"}
	}
	status := MapGatewayStatus(gp.Status)
	dedupID := gp.ID + ":" + string(status)

	if seen, err := r.dedup.Seen(ctx, dedupScope, dedupID); err != nil {
		log.Warn().Err(err).Msg("dedup lookup failed, falling back to database")
	} else if seen {
		metrics.WebhookNotifications.WithLabelValues("duplicate").Inc()
		return Result{Success: true, Message: "Notification already processed", Status: status}
	}

	res, err := r.apply(ctx, gp, status)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrPaymentNotFound) {
			outcome = "payment_not_found"
		}
		metrics.WebhookNotifications.WithLabelValues(outcome).Inc()
		span.RecordError(err)
		log.Error().Err(err).Str("external_reference", gp.ExternalReference).Msg("webhook reconciliation failed")
		return Result{Success: false, Message: "Payment not processed", Status: status}
	}

	if err := r.dedup.Mark(ctx, dedupScope, dedupID); err != nil {
		log.Warn().Err(err).Msg("dedup mark failed")
	}

	outcome := "noop"
	if res.changed {
		outcome = "applied"
	}
	metrics.WebhookNotifications.WithLabelValues(outcome).Inc()
	if res.orderChanged && res.order.Status == orders.StatusCancelled {
		metrics.OrdersCancelled.WithLabelValues("payment").Inc()
	}
	log.Info().
		Str("payment_id", res.payment.ID).
		Str("order_id", res.order.ID).
		Str("payment_status", string(res.payment.Status)).
		Str("order_status", string(res.order.Status)).
		Bool("changed", res.changed).
		Msg("payment reconciled")

	if res.newlyPaid {
		r.confirm(ctx, res)
	}
	return Result{
		Success:   true,
		Message:   "Payment processed",
		PaymentID: res.payment.ID,
		Status:    res.payment.Status,
		Changed:   res.changed,
	}
}

func (r *Reconciler) apply(ctx context.Context, gp GatewayPayment, status Status) (applied, error) {
	var out applied
	err := r.store.InTx(ctx, func(tx Tx) error {
		p, err := tx.LockPayment(ctx, gp.ExternalReference, gp.ID)
		if err != nil {
			return err
		}
		o, err := tx.LockOrder(ctx, p.OrderID)
		if err != nil {
			return errors.Wrap(err, "lock order")
		}
		out.payment, out.order = p, o

		if p.Status == status && p.GatewayPaymentID != nil && *p.GatewayPaymentID == gp.ID {
			return nil
		}

		now := r.now()
		prevPayment := p.Status
		gid := gp.ID
		p.Status = status
		p.GatewayPaymentID = &gid
		p.UpdatedAt = now
		if status == StatusApproved && p.PaidAt == nil {
			p.PaidAt = &now
		}
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return errors.Wrap(err, "update payment")
		}
		out.payment, out.changed = p, true
		out.newlyPaid = status == StatusApproved && prevPayment != StatusApproved

		target := orderTarget(status)
		if target == "" {
			return nil
		}
		if target == orders.StatusProcessing && !orders.CanTransition(o.Status, target) {
			// Approval only advances a PENDING order. A cancelled order already
			// had its stock put back and is not revived.
			if o.Status == orders.StatusCancelled {
				logger.Ctx(ctx).Error().
					Str("order_id", o.ID).
					Str("payment_id", p.ID).
					Msg("payment approved for cancelled order, refund required")
				out.newlyPaid = false
			}
			return nil
		}
		changed, err := orders.Transition(ctx, tx, &o, target, now)
		if err != nil {
			return errors.Wrap(err, "transition order")
		}
		out.order, out.orderChanged = o, changed
		return nil
	})
	return out, err
}

// confirm is best-effort: failures are logged and never undo the commit.
func (r *Reconciler) confirm(ctx context.Context, res applied) {
	if r.events == nil {
		return
	}
	p := ApprovedPayload{
		PaymentID: res.payment.ID,
		OrderID:   res.order.ID,
		UserID:    res.order.UserID,
		Amount:    res.payment.Amount,
		Status:    res.payment.Status,
		Items:     res.order.Items,
	}
	if res.payment.PaidAt != nil {
		p.PaidAt = *res.payment.PaidAt
	}
	if err := r.events.Emit(ctx, TopicPaymentApproved, EventPaymentApproved, orders.PartitionKey(res.order.ID), p); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", res.order.ID).Msg("payment confirmation not queued")
	}
}
