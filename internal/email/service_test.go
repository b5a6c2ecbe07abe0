package email

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AlessiaSanfi/EventHub-Project/internal/config"
)

func writeTestTemplate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := `<html><body>Hello {{.Username}}, your token is {{.Token}} (expires in {{.ExpiresIn}}).</body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "password_reset.html"), []byte(body), 0o600))
	return dir
}

func TestSendPasswordResetDisabledSkipsDelivery(t *testing.T) {
	service, err := NewService(config.EmailConfig{
		Enabled:      false,
		TemplatesDir: writeTestTemplate(t),
	}, zerolog.Nop())
	require.NoError(t, err)

	// No SMTP host configured; this only passes because delivery is
	// skipped while the service is disabled.
	err = service.SendPasswordReset(context.Background(), "alice@example.com", "alice", "token123")
	require.NoError(t, err)
}

func TestSendPasswordResetRejectsInvalidRecipient(t *testing.T) {
	service, err := NewService(config.EmailConfig{
		Enabled:      false,
		TemplatesDir: writeTestTemplate(t),
	}, zerolog.Nop())
	require.NoError(t, err)

	err = service.SendPasswordReset(context.Background(), "not-an-email", "alice", "token123")
	require.Error(t, err)
}

func TestNewServiceRejectsInvalidSender(t *testing.T) {
	_, err := NewService(config.EmailConfig{
		Enabled:      true,
		From:         "broken sender",
		TemplatesDir: writeTestTemplate(t),
	}, zerolog.Nop())
	require.Error(t, err)
}

func TestRenderPasswordResetTemplate(t *testing.T) {
	service, err := NewService(config.EmailConfig{
		Enabled:      false,
		TemplatesDir: writeTestTemplate(t),
	}, zerolog.Nop())
	require.NoError(t, err)

	html, err := service.renderTemplate("password_reset.html", PasswordResetData{
		Username:  "alice",
		Token:     "token123",
		ExpiresIn: "15 minutes",
	})
	require.NoError(t, err)
	require.Contains(t, html, "alice")
	require.Contains(t, html, "token123")
	require.Contains(t, html, "15 minutes")
}

func TestValidateEmailAddress(t *testing.T) {
	valid := []string{
		"user@example.com",
		"user+tag@example.co.uk",
		"User Name <user@example.com>",
	}
	for _, email := range valid {
		require.NoError(t, validateEmailAddress(email), email)
	}

	invalid := []string{
		"",
		"notanemail",
		"@example.com",
		"user@",
		"user@@example.com",
		"victim@example.com\r\nBcc: attacker@evil.com",
		"test@example.com\nCc: hacker@evil.com",
	}
	for _, email := range invalid {
		require.Error(t, validateEmailAddress(email), email)
	}
}
