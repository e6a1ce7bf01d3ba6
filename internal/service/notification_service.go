package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/appeal-service/internal/config"
	"github.com/spec-kit/appeal-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAppealCreated, n.handleAppealCreated)
	n.dispatcher.Subscribe(events.EventAppealAssigned, n.handleAppealAssigned)
	n.dispatcher.Subscribe(events.EventAppealStatusChanged, n.handleAppealStatusChanged)
	n.dispatcher.Subscribe(events.EventAppealMessageAdded, n.handleAppealMessageAdded)
	n.dispatcher.Subscribe(events.EventAppealEscalated, n.handleAppealEscalated)
	n.dispatcher.Subscribe(events.EventAppealClosed, n.handleAppealClosed)
}

func (n *NotificationService) handleAppealCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("AppealCreated", zap.Int64("appeal_id", event.AppealID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAppealAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("AppealAssigned", zap.Int64("appeal_id", event.AppealID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAppealStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("AppealStatusChanged", zap.Int64("appeal_id", event.AppealID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAppealMessageAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("AppealMessageAdded", zap.Int64("appeal_id", event.AppealID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAppealEscalated(ctx context.Context, event events.Event) error {
	n.logger.Warn("AppealEscalated", zap.Int64("appeal_id", event.AppealID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAppealClosed(ctx context.Context, event events.Event) error {
	n.logger.Info("AppealClosed", zap.Int64("appeal_id", event.AppealID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Int64("appeal_id", event.AppealID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("appeal_id", event.AppealID),
		zap.String("event_type", string(event.Type)))
}
