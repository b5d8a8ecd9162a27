// Package notify turns order and payment events into customer e-mails.
package notify

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	kafkax "github.com/tecnolua/ClubePharma/internal/kafka"
	"github.com/tecnolua/ClubePharma/internal/logger"
	"github.com/tecnolua/ClubePharma/internal/metrics"
	"github.com/tecnolua/ClubePharma/internal/orders"
	"github.com/tecnolua/ClubePharma/internal/payments"
)

const dedupScope = "notifier"

var ErrUnknownUser = errors.New("user not found")

type Contact struct {
	Name  string
	Email string
}

type Directory interface {
	Contact(ctx context.Context, userID string) (Contact, error)
}

type PgDirectory struct{ DB *pgxpool.Pool }

func (d *PgDirectory) Contact(ctx context.Context, userID string) (Contact, error) {
	var c Contact
	err := d.DB.QueryRow(ctx, `SELECT name, email FROM users WHERE id=$1`, userID).Scan(&c.Name, &c.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrUnknownUser
	}
	return c, err
}

// Claimer guards against sending twice when a message is redelivered.
type Claimer interface {
	Claim(ctx context.Context, scope, id string) (bool, error)
	Release(ctx context.Context, scope, id string) error
}

type Handler struct {
	mailer Mailer
	users  Directory
	dedup  Claimer
	tracer trace.Tracer
}

func NewHandler(m Mailer, users Directory, dedup Claimer) *Handler {
	return &Handler{mailer: m, users: users, dedup: dedup, tracer: otel.Tracer("clubepharma/notify")}
}

// Topics the handler understands.
func Topics() []string {
	return []string{orders.TopicOrderCreated, payments.TopicPaymentApproved}
}

// Handle is a kafka.Handler. Returning an error releases the claim and makes
// the consumer retry the event with backoff before it moves past it.
func (h *Handler) Handle(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		// Poison message; committing it is the only way forward.
		logger.Ctx(ctx).Error().Err(err).Str("topic", m.Topic).Int64("offset", m.Offset).Msg("dropping undecodable event")
		return nil
	}
	ctx, span := h.tracer.Start(ctx, "notify."+env.EventType, trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("event.id", env.EventID), attribute.String("messaging.destination", m.Topic))
	log := logger.Ctx(ctx).With().Str("event_id", env.EventID).Str("event_type", env.EventType).Logger()
	ctx = logger.With(ctx, log)

	var send func(context.Context, kafkax.Envelope) error
	switch env.EventType {
	case orders.EventOrderCreated:
		send = h.orderConfirmation
	case payments.EventPaymentApproved:
		send = h.paymentApproved
	default:
		return nil
	}

	first, err := h.dedup.Claim(ctx, dedupScope, env.EventID)
	if err != nil {
		log.Warn().Err(err).Msg("dedup unavailable, sending anyway")
		first = true
	}
	if !first {
		log.Debug().Msg("duplicate event skipped")
		return nil
	}

	if err := send(ctx, env); err != nil {
		span.RecordError(err)
		if rerr := h.dedup.Release(ctx, dedupScope, env.EventID); rerr != nil {
			log.Warn().Err(rerr).Msg("dedup release failed")
		}
		return err
	}
	return nil
}

func (h *Handler) orderConfirmation(ctx context.Context, env kafkax.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.OrderPayload](env.Payload)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("dropping undecodable payload")
		return nil
	}
	c, err := h.users.Contact(ctx, p.UserID)
	if err != nil {
		return h.skipUnknown(ctx, tmplOrderConfirmation, p.UserID, err)
	}
	html, err := render(tmplOrderConfirmation, orderView{
		Name:     c.Name,
		ShortID:  shortID(p.OrderID),
		Items:    p.Items,
		Subtotal: p.Subtotal,
		Discount: p.Discount,
		Total:    p.Total,
		Status:   p.Status,
	})
	if err != nil {
		return errors.Wrap(err, "render order confirmation")
	}
	return h.deliver(ctx, tmplOrderConfirmation, Message{
		To:      c.Email,
		ToName:  c.Name,
		Subject: "Pedido Confirmado #" + shortID(p.OrderID),
		HTML:    html,
	})
}

func (h *Handler) paymentApproved(ctx context.Context, env kafkax.Envelope) error {
	p, err := kafkax.UnwrapPayload[payments.ApprovedPayload](env.Payload)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("dropping undecodable payload")
		return nil
	}
	c, err := h.users.Contact(ctx, p.UserID)
	if err != nil {
		return h.skipUnknown(ctx, tmplPaymentApproved, p.UserID, err)
	}
	html, err := render(tmplPaymentApproved, paymentView{
		Name:    c.Name,
		ShortID: shortID(p.OrderID),
		Amount:  p.Amount,
		Status:  string(p.Status),
		PaidAt:  formatPaidAt(p.PaidAt),
	})
	if err != nil {
		return errors.Wrap(err, "render payment approved")
	}
	return h.deliver(ctx, tmplPaymentApproved, Message{
		To:      c.Email,
		ToName:  c.Name,
		Subject: "Pagamento Aprovado - Pedido #" + shortID(p.OrderID),
		HTML:    html,
	})
}

// skipUnknown drops events for users that no longer exist and retries
// everything else.
func (h *Handler) skipUnknown(ctx context.Context, tmpl, userID string, err error) error {
	if errors.Is(err, ErrUnknownUser) {
		metrics.NotificationsSent.WithLabelValues(tmpl, "skipped").Inc()
		logger.Ctx(ctx).Warn().Str("user_id", userID).Msg("no recipient for notification")
		return nil
	}
	return errors.Wrap(err, "lookup recipient")
}

func (h *Handler) deliver(ctx context.Context, tmpl string, msg Message) error {
	if err := h.mailer.Send(ctx, msg); err != nil {
		metrics.NotificationsSent.WithLabelValues(tmpl, "error").Inc()
		return err
	}
	metrics.NotificationsSent.WithLabelValues(tmpl, "sent").Inc()
	logger.Ctx(ctx).Info().Str("template", tmpl).Msg("notification sent")
	return nil
}
