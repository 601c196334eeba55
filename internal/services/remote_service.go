// Package services decorates the Remote Data Store with domain event
// publishing.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"tazzio/internal/amqp"
	"tazzio/internal/core"
	"tazzio/internal/log"
	"tazzio/internal/store"
)

// Publisher is satisfied by *amqp.Client.
type Publisher interface {
	Publish(ctx context.Context, msg *amqp.Message) error
}

// RemoteService forwards every call to the wrapped store and publishes an
// event after successful expense writes and reset requests. Publish failures
// are logged, never returned: the write already happened.
type RemoteService struct {
	store.Remote
	publisher Publisher
	logger    *log.Logger
}

var _ store.Remote = (*RemoteService)(nil)

// NewRemoteService wraps remote. publisher may be nil.
func NewRemoteService(remote store.Remote, publisher Publisher, logger *log.Logger) *RemoteService {
	if logger == nil {
		logger = log.Discard()
	}
	return &RemoteService{
		Remote:    remote,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentBackend),
	}
}

func (s *RemoteService) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	saved, err := s.Remote.InsertExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}
	s.publish(ctx, amqp.NewExpenseCreatedMessage(saved))
	return saved, nil
}

func (s *RemoteService) ReplaceExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	saved, err := s.Remote.ReplaceExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}
	s.publish(ctx, amqp.NewExpenseUpdatedMessage(saved))
	return saved, nil
}

func (s *RemoteService) DeleteExpense(ctx context.Context, userID, id string) error {
	if err := s.Remote.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewExpenseDeletedMessage(userID, id))
	return nil
}

// SendPasswordReset publishes the token for the mailer and hides it from
// the caller.
func (s *RemoteService) SendPasswordReset(ctx context.Context, email string) (string, error) {
	token, err := s.Remote.SendPasswordReset(ctx, email)
	if err != nil {
		return "", err
	}
	if token != "" {
		s.publish(ctx, amqp.NewPasswordResetMessage(email, token))
	}
	return "", nil
}

func (s *RemoteService) publish(ctx context.Context, msg *amqp.Message) {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP publisher not available, skipping event", log.FieldMessageType, msg.Type)
		return
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			log.FieldMessageType, msg.Type,
			log.FieldUserID, msg.UserID,
			log.FieldError, err)
	}
}

// Close closes the wrapped store and the publisher when they hold resources.
func (s *RemoteService) Close() error {
	var errs []error
	if c, ok := s.Remote.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
