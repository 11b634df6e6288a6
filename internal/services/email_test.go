package services

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailService_SendEmail(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		svc := NewEmailService("", "", "", "", "")
		assert.False(t, svc.Configured())
		assert.Error(t, svc.SendEmail([]string{"a@example.com"}, "s", "b"))
	})

	t.Run("sends message", func(t *testing.T) {
		svc := NewEmailService("smtp.test", "587", "user", "pass", "shop@example.com")
		var gotAddr string
		var gotTo []string
		var gotMsg []byte
		svc.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotTo, gotMsg = addr, to, msg
			return nil
		}

		require.NoError(t, svc.SendEmail([]string{"a@example.com"}, "Your order", "Thanks!"))
		assert.Equal(t, "smtp.test:587", gotAddr)
		assert.Equal(t, []string{"a@example.com"}, gotTo)
		msg := string(gotMsg)
		assert.True(t, strings.HasPrefix(msg, "From: shop@example.com\r\n"))
		assert.Contains(t, msg, "Subject: Your order\r\n")
		assert.True(t, strings.HasSuffix(msg, "\r\n\r\nThanks!\r\n"))
	})

	t.Run("transport failure", func(t *testing.T) {
		svc := NewEmailService("smtp.test", "587", "user", "pass", "shop@example.com")
		svc.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
		assert.ErrorContains(t, svc.SendEmail([]string{"a@example.com"}, "s", "b"), "refused")
	})
}
