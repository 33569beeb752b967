package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/config"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/events"
)

// NotificationService turns domain events into notifications. Delivery is
// stubbed: messages are logged.
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
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventUserBanned, n.handleAccountEvent)
	n.dispatcher.Subscribe(events.EventUserDeleted, n.handleAccountEvent)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handleAccountEvent)
	for _, et := range []events.EventType{
		events.EventWaitingListJoined,
		events.EventRequestDeclined,
		events.EventMemberAccepted,
		events.EventMemberPromoted,
		events.EventMemberDemoted,
		events.EventOwnerChanged,
	} {
		n.dispatcher.Subscribe(et, n.handleMembershipEvent)
	}
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		return nil
	}
	n.sendEmailNotificationStub(ctx, payload.Email, "Verify your account", event,
		zap.String("verification_code", payload.VerificationCode))
	return nil
}

func (n *NotificationService) handleAccountEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("user_id", event.SubjectID),
		zap.String("actor_id", event.ActorID))
	return nil
}

func (n *NotificationService) handleMembershipEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("container_kind", string(event.ContainerKind)),
		zap.String("container_id", event.ContainerID),
		zap.String("subject_id", event.SubjectID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, to, subject string, event events.Event, extra ...zap.Field) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	fields := append([]zap.Field{
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("event_type", string(event.Type)),
	}, extra...)
	n.logger.Info("sendEmailNotificationStub", fields...)
}
