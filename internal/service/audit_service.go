package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/todo-service/internal/events"
)

// AuditService writes an audit trail of account and todo activity. Entries
// carry ids only.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleUserEvent)
	a.dispatcher.Subscribe(events.EventUserLoggedIn, a.handleUserEvent)
	a.dispatcher.Subscribe(events.EventTodoCreated, a.handleTodoEvent)
	a.dispatcher.Subscribe(events.EventTodoUpdated, a.handleTodoUpdated)
}

func (a *AuditService) handleUserEvent(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), a.baseFields(event)...)
	return nil
}

func (a *AuditService) handleTodoEvent(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), a.todoFields(event)...)
	return nil
}

func (a *AuditService) handleTodoUpdated(_ context.Context, event events.Event) error {
	fields := a.todoFields(event)
	if payload, ok := event.Payload.(events.TodoUpdatedPayload); ok {
		fields = append(fields,
			zap.Bool("title_changed", payload.TitleChanged),
			zap.Bool("completed_changed", payload.CompletedChanged))
	}
	a.logger.Info(string(event.Type), fields...)
	return nil
}

func (a *AuditService) baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.Int64("user_id", event.UserID),
		zap.Time("at", event.Timestamp),
	}
}

func (a *AuditService) todoFields(event events.Event) []zap.Field {
	fields := a.baseFields(event)
	if event.TodoID != nil {
		fields = append(fields, zap.Int64("todo_id", *event.TodoID))
	}
	return fields
}
