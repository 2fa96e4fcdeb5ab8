package mailer

import (
	"testing"

	"github.com/jobsift/jobsift/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(config.DigestConfig{SMTPHost: "smtp.example.com"})
	require.Error(t, err)

	m, err := New(config.DigestConfig{
		SMTPHost:  "smtp.example.com",
		SMTPPort:  587,
		Sender:    "bot@example.com",
		Recipient: "me@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", m.host)
}

func TestBuildMessage(t *testing.T) {
	msg := string(BuildMessage("bot@example.com", "me@example.com",
		"Top Job Matches", "<html><body>hi</body></html>"))

	assert.Contains(t, msg, "From: bot@example.com\r\n")
	assert.Contains(t, msg, "To: me@example.com\r\n")
	assert.Contains(t, msg, "Subject: Top Job Matches\r\n")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "\r\n\r\n<html><body>hi</body></html>")
}
