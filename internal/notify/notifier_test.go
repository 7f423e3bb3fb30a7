package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name  string
	err   error
	calls int
}

func (f *fakeSender) Send(context.Context, string, string) error {
	f.calls++
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersUnsubscribedEvents(t *testing.T) {
	s := &fakeSender{name: "telegram"}
	n := NewNotifier([]Sender{s}, []string{"breaker.transition"}, testLogger())

	require.NoError(t, n.Notify(context.Background(), "portfolio", "t", "m"))
	assert.Zero(t, s.calls)

	require.NoError(t, n.Notify(context.Background(), "breaker.transition", "t", "m"))
	assert.Equal(t, 1, s.calls)
}

func TestNotifyAllBypassesFilter(t *testing.T) {
	s := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{s}, []string{"breaker.transition"}, testLogger())

	require.NoError(t, n.NotifyAll(context.Background(), "t", "m"))
	assert.Equal(t, 1, s.calls)
}

func TestFanoutContinuesPastFailedChannel(t *testing.T) {
	bad := &fakeSender{name: "telegram", err: errors.New("rate limited")}
	good := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.NotifyAll(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	assert.Equal(t, 1, good.calls)
}

func TestPostJSONRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := postJSON(context.Background(), srv.Client(), "discord", srv.URL, map[string]string{"content": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
