package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patil-rushikesh/FDW-backend/pkg/jobs"
	"github.com/patil-rushikesh/FDW-backend/pkg/mailer"
)

const jobTypeCredentials = "credentials_mail"

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// NotificationService delivers account credentials through a background queue.
type NotificationService struct {
	sender    mailer.Sender
	queue     jobQueue
	logger    *zap.Logger
	institute string
	loginURL  string
}

// NotificationOption customises the notification service.
type NotificationOption func(*NotificationService)

// WithNotificationQueue routes deliveries through the provided queue.
func WithNotificationQueue(queue jobQueue) NotificationOption {
	return func(s *NotificationService) {
		s.queue = queue
	}
}

// WithMailBranding sets the institute name and login link used in messages.
func WithMailBranding(institute, loginURL string) NotificationOption {
	return func(s *NotificationService) {
		s.institute = institute
		s.loginURL = loginURL
	}
}

// NewNotificationService constructs the notifier.
func NewNotificationService(sender mailer.Sender, logger *zap.Logger, opts ...NotificationOption) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = mailer.NewLogSender(logger)
	}
	s := &NotificationService{sender: sender, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendCredentials schedules the credentials mail. Delivery failures are logged
// and never returned to the caller.
func (s *NotificationService) SendCredentials(ctx context.Context, email, userID, secret, name string) {
	if email == "" {
		s.logger.Warn("credentials not mailed, no email on file", zap.String("user_id", userID))
		return
	}
	msg := mailer.CredentialsMessage(mailer.Credentials{
		Email:     email,
		Name:      name,
		UserID:    userID,
		Secret:    secret,
		Institute: s.institute,
		LoginURL:  s.loginURL,
	})
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeCredentials, Payload: msg})
		if err == nil {
			return
		}
		s.logger.Warn("failed to queue credentials mail, sending inline", zap.String("user_id", userID), zap.Error(err))
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send credentials mail", zap.String("user_id", userID), zap.Error(err))
	}
}

// HandleJob is the queue handler for credentials mails.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		s.logger.Error("unexpected mail job payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("deliver %s: %w", job.Type, err)
	}
	return nil
}
