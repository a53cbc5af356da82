package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/brianndofor/wif/internal/slack"
	"github.com/stretchr/testify/require"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type fakeLedger struct {
	seen map[string]bool
	err  error
}

func (f *fakeLedger) MarkEventSeen(id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[id] {
		return false, nil
	}
	f.seen[id] = true
	return true, nil
}

type reaction struct {
	op, channel, ts, from, to string
}

type fakeReactor struct {
	mu    sync.Mutex
	calls []reaction
}

func (f *fakeReactor) React(ctx context.Context, channel, ts, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, reaction{op: "add", channel: channel, ts: ts, to: name})
}

func (f *fakeReactor) SwapReaction(ctx context.Context, channel, ts, from, to string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, reaction{op: "swap", channel: channel, ts: ts, from: from, to: to})
}

func newTestServer(t *testing.T, queueSize int) (*Server, *fakeLedger, *fakeReactor) {
	t.Helper()
	ledger := &fakeLedger{}
	reactor := &fakeReactor{}
	s := New(Options{SigningSecret: testSecret, QueueSize: queueSize}, ledger, reactor, nil)
	return s, ledger, reactor
}

func signedRequest(t *testing.T, secret string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, WebhookPath, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + ts + ":" + string(body)))
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func mentionPayload(eventID, text, ts, threadTS string) []byte {
	event := map[string]any{
		"type":     "app_mention",
		"user":     "U123",
		"text":     text,
		"ts":       ts,
		"channel":  "C42",
		"event_ts": ts,
	}
	if threadTS != "" {
		event["thread_ts"] = threadTS
	}
	body, _ := json.Marshal(map[string]any{
		"token":      "legacy",
		"team_id":    "T1",
		"api_app_id": "A1",
		"type":       "event_callback",
		"event_id":   eventID,
		"event_time": 1700000000,
		"event":      event,
	})
	return body
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t, 1)
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decode(t, resp)["status"])
}

func TestURLVerification(t *testing.T) {
	s, _, _ := newTestServer(t, 1)
	body := []byte(`{"token":"legacy","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P","type":"url_verification"}`)
	resp, err := s.App().Test(signedRequest(t, testSecret, body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P", decode(t, resp)["challenge"])
}

func TestRejectsBadSignature(t *testing.T) {
	s, _, _ := newTestServer(t, 1)
	body := mentionPayload("Ev1", "<@UBOT> crash", "1700000000.000100", "")
	resp, err := s.App().Test(signedRequest(t, "wrong-secret", body))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, decode(t, resp)["error"], "verification failed")
	require.Empty(t, s.jobs)
}

func TestRejectsMissingHeaders(t *testing.T) {
	s, _, _ := newTestServer(t, 1)
	req := httptest.NewRequest(http.MethodPost, WebhookPath, bytes.NewReader([]byte(`{}`)))
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRejectsMalformedPayload(t *testing.T) {
	s, _, _ := newTestServer(t, 1)
	resp, err := s.App().Test(signedRequest(t, testSecret, []byte(`not json`)))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMentionIsQueued(t *testing.T) {
	s, _, reactor := newTestServer(t, 2)
	body := mentionPayload("Ev1", "<@UBOT> Crash on launch\nsentry-cocoa 8.1.0", "1700000000.000200", "1700000000.000100")
	resp, err := s.App().Test(signedRequest(t, testSecret, body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, decode(t, resp)["ok"])

	require.Len(t, s.jobs, 1)
	job := <-s.jobs
	require.Equal(t, "Ev1", job.EventID)
	require.Equal(t, "C42", job.Channel)
	require.Equal(t, "1700000000.000200", job.TS)
	require.Equal(t, "1700000000.000100", job.ThreadTS)
	require.Equal(t, "Crash on launch\nsentry-cocoa 8.1.0", job.Text)
	require.Equal(t, []reaction{{op: "add", channel: "C42", ts: "1700000000.000200", to: slack.ReactionQueued}}, reactor.calls)
}

func TestTopLevelMentionThreadsOnItself(t *testing.T) {
	s, _, _ := newTestServer(t, 1)
	body := mentionPayload("Ev1", "<@UBOT> crash", "1700000000.000300", "")
	resp, err := s.App().Test(signedRequest(t, testSecret, body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	job := <-s.jobs
	require.Equal(t, "1700000000.000300", job.ThreadTS)
}

func TestRedeliveredEventIsIgnored(t *testing.T) {
	s, _, _ := newTestServer(t, 4)
	body := mentionPayload("Ev7", "<@UBOT> crash", "1700000000.000100", "")
	for i := 0; i < 2; i++ {
		resp, err := s.App().Test(signedRequest(t, testSecret, body))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
	require.Len(t, s.jobs, 1)
}

func TestLedgerFailureStillQueues(t *testing.T) {
	s, ledger, _ := newTestServer(t, 1)
	ledger.err = errors.New("database is locked")
	body := mentionPayload("Ev1", "<@UBOT> crash", "1700000000.000100", "")
	resp, err := s.App().Test(signedRequest(t, testSecret, body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, s.jobs, 1)
}

func TestFullQueueDropsMention(t *testing.T) {
	s, _, reactor := newTestServer(t, 1)
	for i, id := range []string{"Ev1", "Ev2"} {
		ts := "1700000000.00010" + strconv.Itoa(i)
		resp, err := s.App().Test(signedRequest(t, testSecret, mentionPayload(id, "<@UBOT> crash", ts, "")))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		if id == "Ev2" {
			require.Equal(t, true, decode(t, resp)["dropped"])
		} else {
			resp.Body.Close()
		}
	}
	require.Len(t, s.jobs, 1)
	require.Equal(t, slack.ReactionFailed, reactor.calls[len(reactor.calls)-1].to)
}

func TestShutdownClosesQueueOnce(t *testing.T) {
	s, _, _ := newTestServer(t, 2)
	require.NoError(t, s.enqueue(Job{EventID: "Ev1"}))

	_ = s.Shutdown(context.Background())
	require.NotPanics(t, func() { _ = s.Shutdown(context.Background()) })

	require.ErrorIs(t, s.enqueue(Job{EventID: "Ev2"}), errShuttingDown)
	job, ok := <-s.jobs
	require.True(t, ok)
	require.Equal(t, "Ev1", job.EventID)
	_, ok = <-s.jobs
	require.False(t, ok)
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	s, _, _ := newTestServer(t, 1)
	require.NoError(t, s.enqueue(Job{EventID: "Ev1"}))
	require.ErrorIs(t, s.enqueue(Job{EventID: "Ev2"}), errQueueFull)
}

func TestStripMentions(t *testing.T) {
	require.Equal(t, "crash in 8.1.0", StripMentions("<@U0BOT> crash in 8.1.0"))
	require.Equal(t, "hey there", StripMentions("hey <@U1|alice> there"))
	require.Equal(t, "line one\nline two", StripMentions("<@U0BOT>\nline one\nline two"))
}
