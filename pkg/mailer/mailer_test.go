package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewFallsBackToLogSender(t *testing.T) {
	sender := New(Config{}, zap.NewNop())
	_, ok := sender.(*LogSender)
	require.True(t, ok)
	require.NoError(t, sender.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "hi"}))

	smtp := New(Config{Host: "smtp.example.org", From: "no-reply@example.org"}, nil)
	_, ok = smtp.(*SMTPSender)
	assert.True(t, ok)
}

func TestSMTPSenderSkipsEmptyRecipients(t *testing.T) {
	sender := NewSMTPSender(Config{Host: "smtp.example.org", From: "no-reply@example.org"})
	assert.NoError(t, sender.Send(context.Background(), Message{Subject: "nobody"}))
}

func TestSMTPSenderHonoursCancelledContext(t *testing.T) {
	sender := NewSMTPSender(Config{Host: "smtp.example.org", From: "no-reply@example.org"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sender.Send(ctx, Message{To: []string{"a@b.c"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCredentialsMessageEscapesFields(t *testing.T) {
	msg := CredentialsMessage(Credentials{
		Email:     "asha@example.org",
		Name:      "Asha <Rao>",
		UserID:    "FAC01",
		Secret:    "p&ss",
		Institute: "PCCoE",
		LoginURL:  "https://fdw.example.org",
	})
	assert.Equal(t, []string{"asha@example.org"}, msg.To)
	assert.Equal(t, "PCCoE - Account Credentials", msg.Subject)
	assert.Contains(t, msg.HTML, "Asha &lt;Rao&gt;")
	assert.Contains(t, msg.HTML, "p&amp;ss")
	assert.Contains(t, msg.HTML, "<b>FAC01</b>")
	assert.Contains(t, msg.HTML, "https://fdw.example.org")
}
