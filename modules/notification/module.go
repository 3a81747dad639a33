// Package notification greets newly registered users.
package notification

import (
	"context"
	"fmt"

	"github.com/example/todo-evolution/config"
	"github.com/example/todo-evolution/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// NotificationModule handles notifications as a driven adapter.
type NotificationModule struct {
	logger types.Logger
	sender Sender
}

var _ mono.Module = (*NotificationModule)(nil)
var _ mono.EventConsumerModule = (*NotificationModule)(nil)

// NewModule sends mail over SMTP when smtp has a host and only logs otherwise.
func NewModule(smtp config.SMTPConfig, logger types.Logger) *NotificationModule {
	var sender Sender
	if smtp.Enabled() {
		sender = NewSMTPSender(smtp)
	}
	return NewModuleWithSender(sender, logger)
}

// NewModuleWithSender creates the module over a custom sender. A nil sender
// means messages are logged instead of delivered.
func NewModuleWithSender(sender Sender, logger types.Logger) *NotificationModule {
	return &NotificationModule{
		logger: logger,
		sender: sender,
	}
}

func (m *NotificationModule) Name() string {
	return "notification"
}

func (m *NotificationModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.UserRegisteredV1, m.handleUserRegistered, m); err != nil {
		return fmt.Errorf("failed to register UserRegistered consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events", []string{"UserRegistered"})
	return nil
}

func (m *NotificationModule) handleUserRegistered(ctx context.Context, event events.UserRegisteredEvent, _ *mono.Msg) error {
	msg, err := render(event.Email, "welcome.tmpl", event)
	if err != nil {
		m.logger.Error("Failed to render welcome email", "user_id", event.UserID, "error", err)
		return nil
	}

	if m.sender == nil {
		m.logger.Info("Welcome email (SMTP disabled)", "user_id", event.UserID, "to", msg.To, "subject", msg.Subject)
		return nil
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		m.logger.Warn("Failed to send welcome email", "user_id", event.UserID, "to", msg.To, "error", err)
		return nil
	}
	m.logger.Info("Welcome email sent", "user_id", event.UserID, "to", msg.To)
	return nil
}

func (m *NotificationModule) Start(_ context.Context) error {
	m.logger.Info("Notification module started - listening for user events", "smtp", m.sender != nil)
	return nil
}

func (m *NotificationModule) Stop(_ context.Context) error {
	m.logger.Info("Notification module stopped")
	return nil
}
