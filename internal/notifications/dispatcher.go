package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/solarflow/solarshop-backend/internal/invoices"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	"github.com/solarflow/solarshop-backend/pkg/logger"
	"github.com/solarflow/solarshop-backend/pkg/mailer"
	"github.com/solarflow/solarshop-backend/pkg/metrics"
	"github.com/solarflow/solarshop-backend/pkg/outbox/idempotency"
	"github.com/solarflow/solarshop-backend/pkg/outbox/payloads"
	"github.com/solarflow/solarshop-backend/pkg/outbox/registry"
)

const dispatcherConsumer = "notification-dispatcher"

// Directory resolves users the dispatcher must reach.
type Directory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
	ListAdminEmails(ctx context.Context) ([]string, error)
}

// InvoiceSource produces the invoice PDF attached to order-paid mail.
type InvoiceSource interface {
	Attachment(ctx context.Context, orderID uuid.UUID) (*invoices.File, error)
}

type DispatcherParams struct {
	Repo         Repository
	Subscription *pubsub.Subscriber
	Registry     *registry.EventRegistry
	Idempotency  *idempotency.Manager
	Directory    Directory
	Invoices     InvoiceSource
	Mailer       mailer.Mailer
	Metrics      *metrics.EventMetrics
	AdminEmails  []string
	Logger       *logger.Logger
}

// Dispatcher consumes domain events, stores in-app notifications and sends mail.
type Dispatcher struct {
	repo         Repository
	subscription *pubsub.Subscriber
	registry     *registry.EventRegistry
	idempotency  *idempotency.Manager
	directory    Directory
	invoices     InvoiceSource
	mailer       mailer.Mailer
	metrics      *metrics.EventMetrics
	adminEmails  []string
	logg         *logger.Logger
}

// NewDispatcher builds the notification consumer. Subscription may be nil when the
// caller drives Handle directly.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("event registry required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Directory == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{
		repo:         params.Repo,
		subscription: params.Subscription,
		registry:     params.Registry,
		idempotency:  params.Idempotency,
		directory:    params.Directory,
		invoices:     params.Invoices,
		mailer:       params.Mailer,
		metrics:      params.Metrics,
		adminEmails:  params.AdminEmails,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.subscription == nil {
		return fmt.Errorf("notification subscription required")
	}
	return d.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		ctx = d.logg.WithField(ctx, "message_id", msg.ID)
		if d.Handle(ctx, msg.Attributes["event_type"], msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Handle processes one delivered event and reports whether it should be acked.
func (d *Dispatcher) Handle(ctx context.Context, eventType string, data []byte) bool {
	logCtx := d.logg.WithField(ctx, "event_type", eventType)

	resolved, err := d.registry.ResolveMessage(eventType, data)
	if err != nil {
		var nonRetryable registry.NonRetryableError
		if errors.As(err, &nonRetryable) {
			d.logg.Warn(d.logg.WithField(logCtx, "reason", err.Error()), "dropping undecodable event")
			d.metrics.Consumed(dispatcherConsumer, eventType, "skipped")
			return true
		}
		d.logg.Error(logCtx, "resolve event", err)
		d.metrics.Consumed(dispatcherConsumer, eventType, "failed")
		return false
	}

	eventID := uuid.MustParse(resolved.Envelope.EventID)
	logCtx = d.logg.WithField(logCtx, "event_id", eventID.String())

	already, err := d.idempotency.CheckAndMarkProcessed(ctx, dispatcherConsumer, eventID)
	if err != nil {
		d.logg.Error(logCtx, "idempotency check failed", err)
		d.metrics.Consumed(dispatcherConsumer, eventType, "failed")
		return false
	}
	if already {
		d.logg.Info(logCtx, "event already processed")
		d.metrics.Consumed(dispatcherConsumer, eventType, "duplicate")
		return true
	}

	if err := d.dispatch(logCtx, resolved.Payload); err != nil {
		d.logg.Error(logCtx, "notification handling failed", err)
		if delErr := d.idempotency.Delete(ctx, dispatcherConsumer, eventID); delErr != nil {
			d.logg.Error(logCtx, "release idempotency key", delErr)
		}
		d.metrics.Consumed(dispatcherConsumer, eventType, "failed")
		return false
	}
	d.metrics.Consumed(dispatcherConsumer, eventType, "handled")
	return true
}

func (d *Dispatcher) dispatch(ctx context.Context, payload any) error {
	switch p := payload.(type) {
	case *payloads.UserRegisteredEvent:
		return d.userRegistered(ctx, p)
	case *payloads.OrderPaidEvent:
		return d.orderPaid(ctx, p)
	case *payloads.OrderStatusChangedEvent:
		return d.orderStatusChanged(ctx, p)
	case *payloads.ClaimStatusChangedEvent:
		return d.claimStatusChanged(ctx, p)
	default:
		d.logg.Info(ctx, "event not handled")
		return nil
	}
}

func (d *Dispatcher) userRegistered(ctx context.Context, p *payloads.UserRegisteredEvent) error {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		name = p.Email
	}
	rows := []*models.Notification{{
		UserID:  p.UserID,
		Type:    enums.NotificationTypeWelcome,
		Title:   "Welcome to SolarShop",
		Message: fmt.Sprintf("Hi %s, your account is ready.", name),
		Link:    stringPtr("/account"),
	}}

	adminIDs, err := d.directory.ListAdminIDs(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	for _, id := range adminIDs {
		rows = append(rows, &models.Notification{
			UserID:  id,
			Type:    enums.NotificationTypeNewUser,
			Title:   "New customer registered",
			Message: fmt.Sprintf("%s (%s) created an account.", name, p.Email),
			Link:    stringPtr("/admin/users/" + p.UserID.String()),
		})
	}
	if err := d.repo.Create(ctx, rows...); err != nil {
		return fmt.Errorf("store notifications: %w", err)
	}

	d.send(ctx, mailer.Message{
		To:      []string{p.Email},
		Subject: "Welcome to SolarShop",
		Body: fmt.Sprintf("Hi %s,\n\nThanks for registering. You can now track orders, "+
			"installations and warranties from your account.\n", name),
	})
	if admins := d.adminRecipients(ctx); len(admins) > 0 {
		d.send(ctx, mailer.Message{
			To:      admins,
			Subject: "New customer: " + name,
			Body:    fmt.Sprintf("%s <%s> registered.\n", name, p.Email),
		})
	}
	return nil
}

func (d *Dispatcher) orderPaid(ctx context.Context, p *payloads.OrderPaidEvent) error {
	ctx = d.logg.WithField(ctx, "order_id", p.OrderID.String())
	if p.UserID != nil {
		err := d.repo.Create(ctx, &models.Notification{
			UserID:  *p.UserID,
			Type:    enums.NotificationTypeOrderPaid,
			Title:   "Payment received",
			Message: fmt.Sprintf("We received %s %s for order %s.", p.Currency, p.TotalAmount.StringFixed(2), p.OrderNumber),
			Link:    stringPtr("/orders/" + p.OrderID.String()),
		})
		if err != nil {
			return fmt.Errorf("store notification: %w", err)
		}
	}
	if p.CustomerEmail == "" {
		return nil
	}

	msg := mailer.Message{
		To:      []string{p.CustomerEmail},
		Subject: "Payment confirmed for order " + p.OrderNumber,
		Body: fmt.Sprintf("Hi %s,\n\nWe confirmed your payment of %s %s for order %s. "+
			"Your invoice is attached.\n", p.CustomerName, p.Currency, p.TotalAmount.StringFixed(2), p.OrderNumber),
	}
	if attachment := d.invoiceAttachment(ctx, p.OrderID); attachment != nil {
		msg.Attachments = append(msg.Attachments, *attachment)
	}
	d.send(ctx, msg)
	return nil
}

func (d *Dispatcher) invoiceAttachment(ctx context.Context, orderID uuid.UUID) *mailer.Attachment {
	if d.invoices == nil {
		return nil
	}
	file, err := d.invoices.Attachment(ctx, orderID)
	if err != nil {
		d.logg.Error(ctx, "invoice attachment unavailable; sending without it", err)
		return nil
	}
	return &mailer.Attachment{Name: file.Name, Data: file.Data}
}

func (d *Dispatcher) orderStatusChanged(ctx context.Context, p *payloads.OrderStatusChangedEvent) error {
	message := fmt.Sprintf("Order %s is now %s.", p.OrderNumber, statusLabel(string(p.Status)))
	if p.Reason != "" {
		message += " Reason: " + p.Reason
	}
	if p.UserID != nil {
		err := d.repo.Create(ctx, &models.Notification{
			UserID:  *p.UserID,
			Type:    enums.NotificationTypeOrderStatus,
			Title:   "Order updated",
			Message: message,
			Link:    stringPtr("/orders/" + p.OrderID.String()),
		})
		if err != nil {
			return fmt.Errorf("store notification: %w", err)
		}
	}
	if p.CustomerEmail != "" {
		d.send(ctx, mailer.Message{
			To:      []string{p.CustomerEmail},
			Subject: "Order " + p.OrderNumber + " updated",
			Body:    message + "\n",
		})
	}
	return nil
}

func (d *Dispatcher) claimStatusChanged(ctx context.Context, p *payloads.ClaimStatusChangedEvent) error {
	message := fmt.Sprintf("Warranty claim %s is now %s.", p.ClaimNumber, statusLabel(string(p.Status)))
	if p.AdminNotes != "" {
		message += " Notes: " + p.AdminNotes
	}
	if p.EstimatedRepairDate != nil {
		message += " Estimated repair date: " + p.EstimatedRepairDate.UTC().Format("2006-01-02") + "."
	}
	err := d.repo.Create(ctx, &models.Notification{
		UserID:  p.UserID,
		Type:    enums.NotificationTypeClaimStatus,
		Title:   "Warranty claim updated",
		Message: message,
		Link:    stringPtr("/warranties/" + p.WarrantyID.String()),
	})
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	user, err := d.directory.FindByID(ctx, p.UserID)
	if err != nil {
		d.logg.Error(ctx, "claim owner lookup failed; mail skipped", err)
		return nil
	}
	d.send(ctx, mailer.Message{
		To:      []string{user.Email},
		Subject: "Warranty claim " + p.ClaimNumber + " updated",
		Body:    message + "\n",
	})
	return nil
}

// send delivers mail; failures are logged and never fail the event.
func (d *Dispatcher) send(ctx context.Context, msg mailer.Message) {
	if err := d.mailer.Send(ctx, msg); err != nil {
		d.logg.Error(d.logg.WithField(ctx, "subject", msg.Subject), "mail delivery failed", err)
	}
}

func (d *Dispatcher) adminRecipients(ctx context.Context) []string {
	if len(d.adminEmails) > 0 {
		return d.adminEmails
	}
	emails, err := d.directory.ListAdminEmails(ctx)
	if err != nil {
		d.logg.Error(ctx, "list admin emails", err)
		return nil
	}
	return emails
}

func statusLabel(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}

func stringPtr(value string) *string {
	return &value
}
