package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentBudget, Output: &buf})

	fields := NewFields().WithOperation(OpLoad).WithUser("u1").WithError(errors.New("boom"))
	l.Warn("load failed", fields.ToSlice()...)

	out := buf.String()
	assert.Contains(t, out, "component=budget")
	assert.Contains(t, out, "operation=load")
	assert.Contains(t, out, "user_id=u1")
	assert.Contains(t, out, "error=boom")
}

func TestFromContextFallsBack(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, ComponentApp, l.Component())

	custom := Discard().WithComponent(ComponentHTTP)
	got := FromContext(WithContext(context.Background(), custom))
	assert.Equal(t, ComponentHTTP, got.Component())
}

func TestAnnotate(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})

	ctx := Annotate(WithContext(context.Background(), base), FieldUserID, "u7")
	FromContext(ctx).InfoContext(ctx, "handled")

	assert.Contains(t, buf.String(), "component=http")
	assert.Contains(t, buf.String(), "user_id=u7")
}
