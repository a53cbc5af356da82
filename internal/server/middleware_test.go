package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedServer(t *testing.T) (*Server, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	s := New(Options{SigningSecret: testSecret, QueueSize: 2}, &fakeLedger{}, &fakeReactor{}, zap.New(core).Sugar())
	return s, logs
}

func requestEntries(logs *observer.ObservedLogs) []observer.LoggedEntry {
	var out []observer.LoggedEntry
	for _, e := range logs.All() {
		if _, ok := e.ContextMap()["request_id"]; ok {
			out = append(out, e)
		}
	}
	return out
}

func TestRequestLoggerRecordsSlackDelivery(t *testing.T) {
	s, logs := observedServer(t)
	req := signedRequest(t, testSecret, mentionPayload("Ev9", "<@UBOT> crash", "1700000000.000100", ""))
	req.Header.Set("X-Slack-Retry-Num", "1")
	req.Header.Set("X-Slack-Retry-Reason", "http_timeout")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	entries := requestEntries(logs)
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, WebhookPath, fields["path"])
	require.Equal(t, "Ev9", fields["event_id"])
	require.Equal(t, "1", fields["slack_retry"])
	require.Equal(t, "http_timeout", fields["slack_retry_reason"])
	require.NotEmpty(t, fields["request_id"])
}

func TestRequestLoggerWarnsOnRejection(t *testing.T) {
	s, logs := observedServer(t)
	resp, err := s.App().Test(httptest.NewRequest(http.MethodPost, WebhookPath, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	entries := requestEntries(logs)
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	require.EqualValues(t, http.StatusUnauthorized, entries[0].ContextMap()["status"])
	_, hasEvent := entries[0].ContextMap()["event_id"]
	require.False(t, hasEvent)
}
