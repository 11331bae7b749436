package mailer

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_WithoutAPIKeyOnlyLogs(t *testing.T) {
	var buf bytes.Buffer
	m := New("", "GeoEstate <no-reply@geoestate.dev>", slog.New(slog.NewTextHandler(&buf, nil)))

	err := m.Send(context.Background(), "user@example.com", "Welcome", "<p>hi</p>")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "email skipped")
	assert.Contains(t, buf.String(), "user@example.com")
}
