// Package notification provides the outbound email system: template
// rendering, an SMTP sender behind a narrow interface, and a post-commit
// outbox so delivery can never affect a transactional outcome.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

// Template defines a reusable notification template.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Built-in template ids.
const (
	TemplateOrderConfirmation  = "order-confirmation"
	TemplatePickupReady        = "pickup-ready"
	TemplatePickupConfirmation = "pickup-confirmation"
)

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateOrderConfirmation,
			Name:    "Order Confirmation",
			Subject: "{{project}} - Bestelleingang #{{order_id}}",
			Body: "Vielen Dank für Ihre Bestellung!\n\n" +
				"Wir haben Ihre Bestellung #{{order_id}} erhalten und bearbeiten diese umgehend.\n\n" +
				"Bestelldetails:\n{{items}}\n" +
				"Gesamtbetrag: {{total}} €\n\n" +
				"Sobald Ihre Medikamente zur Abholung bereitstehen, erhalten Sie eine weitere Benachrichtigung.",
		},
		{
			ID:      TemplatePickupReady,
			Name:    "Pickup Ready",
			Subject: "{{project}} - Bereit zur Abholung #{{order_id}}",
			Body: "Ihre Medikamente sind abholbereit!\n\n" +
				"Ihre Bestellung #{{order_id}} liegt nun zur Abholung bereit.\n\n" +
				"Standort: {{location}}\n\n" +
				"Bitte scannen Sie den QR-Code aus der App am Terminal des Automaten, um das Fach zu öffnen.\n" +
				"QR-Inhalt: {{pickup_code}}\n" +
				"Manueller Abhol-Code: {{short_code}}",
		},
		{
			ID:      TemplatePickupConfirmation,
			Name:    "Pickup Confirmation",
			Subject: "{{project}} - Abholung bestätigt #{{order_id}}",
			Body: "Ihre Medikamente wurden ausgegeben.\n\n" +
				"Folgende Artikel der Bestellung #{{order_id}} wurden entnommen:\n{{items}}\n" +
				"Vielen Dank und gute Besserung!",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are
// left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// ---------------------------------------------------------------------------
// Mock Sender (test double)
// ---------------------------------------------------------------------------

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
