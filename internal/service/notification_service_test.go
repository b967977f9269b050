package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patil-rushikesh/FDW-backend/pkg/jobs"
	"github.com/patil-rushikesh/FDW-backend/pkg/mailer"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []mailer.Message
	err      error
}

func (r *recordingSender) Send(ctx context.Context, msg mailer.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.err
}

func (r *recordingSender) sent() []mailer.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mailer.Message(nil), r.messages...)
}

type stubQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *stubQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestSendCredentialsQueuesMessage(t *testing.T) {
	sender := &recordingSender{}
	queue := &stubQueue{}
	svc := NewNotificationService(sender, zap.NewNop(), WithNotificationQueue(queue), WithMailBranding("PCCoE", ""))

	svc.SendCredentials(context.Background(), "asha@example.org", "FAC01", "secret", "Asha")
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, jobTypeCredentials, queue.jobs[0].Type)
	assert.Empty(t, sender.sent())

	require.NoError(t, svc.HandleJob(context.Background(), queue.jobs[0]))
	sent := sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "PCCoE - Account Credentials", sent[0].Subject)
}

func TestSendCredentialsFallsBackInline(t *testing.T) {
	sender := &recordingSender{}
	svc := NewNotificationService(sender, zap.NewNop(), WithNotificationQueue(&stubQueue{err: errors.New("stopped")}))

	svc.SendCredentials(context.Background(), "asha@example.org", "FAC01", "secret", "Asha")
	assert.Len(t, sender.sent(), 1)
}

func TestSendCredentialsSwallowsDeliveryErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	svc := NewNotificationService(sender, zap.NewNop())

	assert.NotPanics(t, func() {
		svc.SendCredentials(context.Background(), "asha@example.org", "FAC01", "secret", "Asha")
	})
	svc.SendCredentials(context.Background(), "", "FAC02", "secret", "No Mail")
	assert.Len(t, sender.sent(), 1)

	err := svc.HandleJob(context.Background(), jobs.Job{Type: jobTypeCredentials, Payload: mailer.Message{To: []string{"x@y.z"}}})
	assert.Error(t, err)
}
