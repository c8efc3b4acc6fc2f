package notification

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestTemplateEngine_RenderOrderConfirmation(t *testing.T) {
	e := NewTemplateEngine()

	subject, body, err := e.Render(TemplateOrderConfirmation, map[string]string{
		"project":  "MeTIMat",
		"order_id": "42",
		"items":    "  Ibuprofen 400mg x 2    19.90 €\n",
		"total":    "19.90",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(subject, "#42") {
		t.Errorf("expected order id in subject, got %q", subject)
	}
	if !strings.Contains(body, "Ibuprofen 400mg x 2") {
		t.Errorf("expected item row in body, got %q", body)
	}
	if !strings.Contains(body, "19.90 €") {
		t.Errorf("expected total in body, got %q", body)
	}
}

func TestTemplateEngine_RenderUnknownTemplate(t *testing.T) {
	e := NewTemplateEngine()
	if _, _, err := e.Render("no-such-template", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestTemplateEngine_MissingKeysLeftAsIs(t *testing.T) {
	e := NewTemplateEngine()
	_, body, err := e.Render(TemplatePickupReady, map[string]string{"order_id": "7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "{{location}}") {
		t.Errorf("expected unresolved placeholder to remain, got %q", body)
	}
}

func TestTemplateEngine_RegisterTemplate(t *testing.T) {
	e := NewTemplateEngine()
	e.RegisterTemplate(Template{ID: "custom", Subject: "Hi {{name}}", Body: "Hello {{name}}"})

	subject, body, err := e.Render("custom", map[string]string{"name": "Erika"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Hi Erika" || body != "Hello Erika" {
		t.Errorf("unexpected render result: %q / %q", subject, body)
	}
}

func TestSMTPSender_UnconfiguredSkipsSend(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	s := NewSMTPSender(SMTPConfig{}, logger)

	if err := s.SendEmail(context.Background(), "a@b.c", "subject", "body"); err != nil {
		t.Errorf("unconfigured sender should be a no-op, got %v", err)
	}
}

func TestOutbox_DispatchSwallowsErrors(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	o := NewOutbox()

	sent := 0
	o.Enqueue(func(ctx context.Context) error {
		sent++
		return nil
	})
	o.Enqueue(func(ctx context.Context) error {
		return errors.New("smtp down")
	})

	if o.Len() != 2 {
		t.Fatalf("expected 2 pending intents, got %d", o.Len())
	}

	o.Dispatch(context.Background(), logger)

	if sent != 1 {
		t.Errorf("expected successful intent to run once, got %d", sent)
	}
	if o.Len() != 0 {
		t.Errorf("expected outbox drained, got %d", o.Len())
	}
}

func TestMockEmailSender_RecordsCalls(t *testing.T) {
	m := &MockEmailSender{}
	if err := m.SendEmail(context.Background(), "a@b.c", "s", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := m.Calls()
	if len(calls) != 1 || calls[0].To != "a@b.c" {
		t.Errorf("unexpected calls: %+v", calls)
	}
}
