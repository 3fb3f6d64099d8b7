package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Service is the owner-scoped task API. Reads filter on (id, owner) in one query,
// so a foreign task looks missing. Edits and deletes fetch by id first and return
// ErrAccessDenied when the task is missing or owned by someone else.
type Service struct {
	store  Store
	logger *slog.Logger
	tracer trace.Tracer
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("tasks"),
	}
}

func (s *Service) start(ctx context.Context, op string, userID int64) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "tasks."+op, trace.WithAttributes(attribute.Int64("user.id", userID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrAccessDenied) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) List(ctx context.Context, userID int64) (_ []Task, err error) {
	ctx, span := s.start(ctx, "List", userID)
	defer func() { endSpan(span, err) }()

	return s.store.ListByOwner(ctx, userID)
}

// Get returns ErrNotFound both for a missing id and for another user's task.
func (s *Service) Get(ctx context.Context, userID, taskID int64) (_ Task, err error) {
	ctx, span := s.start(ctx, "Get", userID)
	defer func() { endSpan(span, err) }()

	return s.store.GetByIDAndOwner(ctx, taskID, userID)
}

func (s *Service) Create(ctx context.Context, userID int64, in CreateTask) (_ Task, err error) {
	ctx, span := s.start(ctx, "Create", userID)
	defer func() { endSpan(span, err) }()

	if err := in.Validate(); err != nil {
		return Task{}, err
	}
	t, err := s.store.Create(ctx, userID, in)
	if err != nil {
		return Task{}, err
	}
	span.SetAttributes(attribute.Int64("task.id", t.ID))
	return t, nil
}

func (s *Service) Edit(ctx context.Context, userID, taskID int64, patch EditTask) (_ Task, err error) {
	ctx, span := s.start(ctx, "Edit", userID)
	defer func() { endSpan(span, err) }()

	if err := patch.Validate(); err != nil {
		return Task{}, err
	}
	if err := s.authorize(ctx, "edit", userID, taskID); err != nil {
		return Task{}, err
	}
	return s.store.Update(ctx, taskID, patch)
}

func (s *Service) Delete(ctx context.Context, userID, taskID int64) (err error) {
	ctx, span := s.start(ctx, "Delete", userID)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(ctx, "delete", userID, taskID); err != nil {
		return err
	}
	return s.store.Delete(ctx, taskID)
}

// authorize loads the task by id alone and checks the owner.
func (s *Service) authorize(ctx context.Context, op string, userID, taskID int64) error {
	t, err := s.store.GetByID(ctx, taskID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return fmt.Errorf("load task %d: %w", taskID, err)
	case t.UserID == userID:
		return nil
	}

	accessDenied.WithLabelValues(op).Inc()
	s.logger.WarnContext(ctx, "task_access_denied",
		slog.String("op", op),
		slog.Int64("user_id", userID),
		slog.Int64("task_id", taskID),
	)
	return ErrAccessDenied
}
