package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/bookstore/pkg/events"
	"github.com/Skotchmaster/bookstore/pkg/logging"
	"github.com/microcosm-cc/bluemonday"
)

const (
	EmailOrderConfirmation   = "order_confirmation"
	EmailOrderStatusChanged  = "order_status_changed"
	EmailPaymentConfirmed    = "payment_confirmed"
	EmailPaymentFailed       = "payment_failed"
	EmailTransferInitiated   = "bank_transfer_initiated"
	EmailTransferProof       = "bank_transfer_proof_received"
	EmailTransferVerified    = "bank_transfer_verified"
	EmailTransferRejected    = "bank_transfer_rejected"
	EmailTransferExpired     = "bank_transfer_expired"
	EmailLibraryBookAssigned = "library_book_assigned"
)

const emailSendTimeout = 10 * time.Second

// Mailer renders the template registered under slug and sends it.
type Mailer interface {
	SendFunctionEmail(ctx context.Context, recipient, slug string, vars map[string]string) error
}

type EmailRequested struct {
	Recipient string            `json:"recipient"`
	Slug      string            `json:"function_slug"`
	Variables map[string]string `json:"variables"`
}

func (EmailRequested) EventType() string { return "email_requested" }

// KafkaMailer hands email requests to the mail worker over Kafka.
type KafkaMailer struct {
	Publisher events.Publisher
	Topic     string
}

func (m *KafkaMailer) SendFunctionEmail(ctx context.Context, recipient, slug string, vars map[string]string) error {
	if m.Publisher == nil {
		return fmt.Errorf("mailer: no publisher")
	}
	return m.Publisher.PublishEvent(ctx, m.Topic, recipient, EmailRequested{
		Recipient: recipient,
		Slug:      slug,
		Variables: vars,
	})
}

// EmailDispatcher sends mail in the background so callers never wait on it.
type EmailDispatcher struct {
	Mailer Mailer
	Logger *slog.Logger

	wg sync.WaitGroup
}

func (d *EmailDispatcher) Send(ctx context.Context, recipient, slug string, vars map[string]string) {
	if d == nil || d.Mailer == nil {
		return
	}
	l := d.Logger
	if l == nil {
		l = logging.FromContext(ctx)
	}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(ctx, emailSendTimeout)
		defer cancel()
		if err := d.Mailer.SendFunctionEmail(sendCtx, recipient, slug, vars); err != nil {
			l.Error("send_email_error", "slug", slug, "recipient", recipient, "error", err)
		}
	}()
}

// Wait blocks until every queued email has been handed off.
func (d *EmailDispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}

var notePolicy = bluemonday.StrictPolicy()

// SanitizeNote strips markup from free text that customers will see. The
// result is plain text; renderers escape it.
func SanitizeNote(s string) string {
	return strings.TrimSpace(html.UnescapeString(notePolicy.Sanitize(s)))
}
