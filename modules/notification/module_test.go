package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/todo-evolution/config"
	"github.com/example/todo-evolution/events"
	"github.com/go-monolith/mono/pkg/types"
)

// mockLogger implements types.Logger for testing and records messages
type mockLogger struct {
	infos []string
	warns []string
}

func (m *mockLogger) Debug(_ string, _ ...any)  {}
func (m *mockLogger) Info(msg string, _ ...any) { m.infos = append(m.infos, msg) }
func (m *mockLogger) Warn(msg string, _ ...any) { m.warns = append(m.warns, msg) }
func (m *mockLogger) Error(_ string, _ ...any)  {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

type recordingSender struct {
	sent     []Message
	attempts int
	err      error
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.attempts++
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func registered() events.UserRegisteredEvent {
	return events.UserRegisteredEvent{
		UserID:       "u-1",
		Email:        "ada@example.com",
		FullName:     "Ada Lovelace",
		RegisteredAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRender_WelcomeTemplate(t *testing.T) {
	msg, err := render("ada@example.com", "welcome.tmpl", registered())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if msg.To != "ada@example.com" {
		t.Errorf("To = %q", msg.To)
	}
	if msg.Subject != "Welcome to Todo, Ada Lovelace!" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.PlainBody, "ada@example.com") {
		t.Errorf("plain body missing email: %q", msg.PlainBody)
	}
	if !strings.Contains(msg.HTMLBody, "<strong>ada@example.com</strong>") {
		t.Errorf("html body missing email: %q", msg.HTMLBody)
	}
}

func TestRender_EscapesHTML(t *testing.T) {
	ev := registered()
	ev.FullName = "<script>x</script>"

	msg, err := render(ev.Email, "welcome.tmpl", ev)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if strings.Contains(msg.HTMLBody, "<script>") {
		t.Error("expected full name to be escaped in html body")
	}
}

func TestRender_WithoutFullName(t *testing.T) {
	ev := registered()
	ev.FullName = ""

	msg, err := render(ev.Email, "welcome.tmpl", ev)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if msg.Subject != "Welcome to Todo!" {
		t.Errorf("Subject = %q", msg.Subject)
	}
}

func TestHandleUserRegistered_Sends(t *testing.T) {
	sender := &recordingSender{}
	m := NewModuleWithSender(sender, &mockLogger{})

	if err := m.handleUserRegistered(context.Background(), registered(), nil); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.sent))
	}
	if sender.sent[0].To != "ada@example.com" || sender.sent[0].Subject != "Welcome to Todo, Ada Lovelace!" {
		t.Errorf("unexpected message: %+v", sender.sent[0])
	}
}

func TestHandleUserRegistered_SendFailureIsSwallowed(t *testing.T) {
	sender := &recordingSender{err: errors.New("relay down")}
	logger := &mockLogger{}
	m := NewModuleWithSender(sender, logger)

	if err := m.handleUserRegistered(context.Background(), registered(), nil); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if sender.attempts != 1 || len(sender.sent) != 0 {
		t.Errorf("attempts = %d, sent = %d", sender.attempts, len(sender.sent))
	}
	if len(logger.warns) != 1 || logger.warns[0] != "Failed to send welcome email" {
		t.Errorf("expected a send failure warning, got %v", logger.warns)
	}
}

func TestNewModule_WithoutSMTPOnlyLogs(t *testing.T) {
	logger := &mockLogger{}
	m := NewModule(config.SMTPConfig{}, logger)
	if m.sender != nil {
		t.Fatal("expected no sender without SMTP host")
	}
	if m.Name() != "notification" {
		t.Errorf("Name() = %q", m.Name())
	}

	if err := m.handleUserRegistered(context.Background(), registered(), nil); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if len(logger.infos) != 1 || logger.infos[0] != "Welcome email (SMTP disabled)" {
		t.Errorf("expected the welcome email to be logged, got %v", logger.infos)
	}
}

func TestNewModule_WithSMTP(t *testing.T) {
	m := NewModule(config.SMTPConfig{Host: "smtp.example.com", Port: 587, Sender: "Todo <no-reply@example.com>"}, &mockLogger{})
	if _, ok := m.sender.(*SMTPSender); !ok {
		t.Fatalf("expected SMTPSender, got %T", m.sender)
	}
}
