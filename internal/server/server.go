// Package server receives Slack events over HTTP and feeds app mentions to a
// single analysis worker.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/brianndofor/wif/internal/slack"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"
)

const WebhookPath = "/api/webhooks/slack"

// Job is one app mention waiting for analysis.
type Job struct {
	EventID  string
	Channel  string
	TS       string
	ThreadTS string
	User     string
	Text     string
	Received time.Time
}

// EventLedger remembers delivered event ids.
type EventLedger interface {
	MarkEventSeen(id string) (bool, error)
}

// Reactor adds and swaps message reactions. Implementations log failures.
type Reactor interface {
	React(ctx context.Context, channel, ts, name string)
	SwapReaction(ctx context.Context, channel, ts, from, to string)
}

type Options struct {
	SigningSecret string
	QueueSize     int
	ReadTimeout   time.Duration
}

type Server struct {
	app     *fiber.App
	jobs    chan Job
	secret  string
	events  EventLedger
	reactor Reactor
	logger  *zap.SugaredLogger

	// mu guards closing; senders hold it for reading so jobs is never
	// closed under them.
	mu       sync.RWMutex
	closing  bool
	shutdown sync.Once
	stopErr  error
}

var (
	errShuttingDown = errors.New("server is shutting down")
	errQueueFull    = errors.New("job queue is full")
)

func New(opts Options, events EventLedger, reactor Reactor, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	s := &Server{
		app: fiber.New(fiber.Config{
			ReadTimeout:           opts.ReadTimeout,
			DisableStartupMessage: true,
		}),
		jobs:    make(chan Job, opts.QueueSize),
		secret:  opts.SigningSecret,
		events:  events,
		reactor: reactor,
		logger:  logger,
	}
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(requestLogger(logger))

	s.app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	s.app.Post(WebhookPath, s.handleSlack)
	return s
}

func (s *Server) App() *fiber.App { return s.app }

// Jobs is drained by the worker, one job at a time.
func (s *Server) Jobs() <-chan Job { return s.jobs }

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops accepting mentions, drains the HTTP server and closes the
// job queue. Later calls return the first result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdown.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()

		s.stopErr = s.app.ShutdownWithContext(ctx)

		s.mu.Lock()
		close(s.jobs)
		s.mu.Unlock()
	})
	return s.stopErr
}

func (s *Server) draining() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closing
}

// enqueue never blocks.
func (s *Server) enqueue(job Job) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closing {
		return errShuttingDown
	}
	select {
	case s.jobs <- job:
		return nil
	default:
		return errQueueFull
	}
}

func (s *Server) handleSlack(c *fiber.Ctx) error {
	body := c.Body()
	if err := verifySignature(requestHeader(c), s.secret, body); err != nil {
		s.logger.Warnw("rejected slack request", "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed event payload"})
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed challenge"})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"challenge": challenge.Challenge})
	case slackevents.CallbackEvent:
		mention, ok := event.InnerEvent.Data.(*slackevents.AppMentionEvent)
		if !ok {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
		}
		eventID := ""
		if cb, ok := event.Data.(*slackevents.EventsAPICallbackEvent); ok {
			eventID = cb.EventID
			c.Locals(localEventID, eventID)
		}
		return s.acceptMention(c, eventID, mention)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

func (s *Server) acceptMention(c *fiber.Ctx, eventID string, mention *slackevents.AppMentionEvent) error {
	if s.draining() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": errShuttingDown.Error()})
	}
	first, err := s.events.MarkEventSeen(eventID)
	if err != nil {
		s.logger.Warnw("event de-duplication unavailable", "event_id", eventID, "error", err)
		first = true
	}
	if !first {
		s.logger.Infow("ignoring redelivered event", "event_id", eventID)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	threadTS := mention.ThreadTimeStamp
	if threadTS == "" {
		threadTS = mention.TimeStamp
	}
	job := Job{
		EventID:  eventID,
		Channel:  mention.Channel,
		TS:       mention.TimeStamp,
		ThreadTS: threadTS,
		User:     mention.User,
		Text:     StripMentions(mention.Text),
		Received: time.Now(),
	}

	ctx := c.UserContext()
	switch err := s.enqueue(job); {
	case err == nil:
		s.reactor.React(ctx, job.Channel, job.TS, slack.ReactionQueued)
		s.logger.Infow("queued app mention", "event_id", eventID, "channel", job.Channel, "queued", len(s.jobs))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	case errors.Is(err, errShuttingDown):
		s.logger.Warnw("mention arrived during shutdown", "event_id", eventID, "channel", job.Channel)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		s.logger.Errorw("job queue full, dropping mention", "event_id", eventID, "channel", job.Channel)
		s.reactor.React(ctx, job.Channel, job.TS, slack.ReactionFailed)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": false, "dropped": true})
	}
}

var mentionRe = regexp.MustCompile(`<@[A-Z0-9]+(\|[^>]*)?>[ \t]*`)

// StripMentions removes user mention tokens such as <@U123> from text.
func StripMentions(text string) string {
	return strings.TrimSpace(mentionRe.ReplaceAllString(text, ""))
}
