package server

import (
	"context"
	"fmt"
	"time"

	"github.com/brianndofor/wif/internal/analysis"
	"github.com/brianndofor/wif/internal/blocks"
	"github.com/brianndofor/wif/internal/slack"
	"github.com/brianndofor/wif/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Analyzer interface {
	Run(ctx context.Context, chat analysis.Chat, req analysis.Request) (analysis.Result, error)
}

// Conversations reads threads and hands out a chat bound to one thread.
type Conversations interface {
	Reactor
	ReadThread(ctx context.Context, channel, rootTS, fallback string) string
	ChatFor(channel, threadTS string) analysis.Chat
}

type RunLedger interface {
	RecordRun(r store.Run) error
}

// Worker processes queued mentions sequentially.
type Worker struct {
	analyzer Analyzer
	convs    Conversations
	runs     RunLedger
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewWorker(analyzer Analyzer, convs Conversations, runs RunLedger, logger *zap.SugaredLogger) *Worker {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Worker{analyzer: analyzer, convs: convs, runs: runs, logger: logger, now: time.Now}
}

// Run drains jobs until the channel is closed or ctx is cancelled.
func (w *Worker) Run(ctx context.Context, jobs <-chan Job) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job, ok := <-jobs:
			if !ok {
				return nil
			}
			w.Process(ctx, job)
		}
	}
}

// Process runs one analysis and reports its outcome on the thread.
func (w *Worker) Process(ctx context.Context, job Job) {
	start := w.now()
	runID := uuid.NewString()
	log := w.logger.With("run_id", runID, "event_id", job.EventID, "channel", job.Channel)

	w.convs.SwapReaction(ctx, job.Channel, job.TS, slack.ReactionQueued, slack.ReactionWorking)
	thread := w.convs.ReadThread(ctx, job.Channel, job.ThreadTS, job.Text)
	chat := w.convs.ChatFor(job.Channel, job.ThreadTS)

	res, err := w.run(ctx, chat, analysis.Request{RunID: runID, Report: job.Text, Thread: thread})

	rec := store.Run{
		ID:        runID,
		EventID:   job.EventID,
		Channel:   job.Channel,
		ThreadTS:  job.ThreadTS,
		CreatedAt: start,
	}
	if err != nil {
		log.Errorw("analysis failed", "error", err)
		if _, perr := chat.PostMessage(ctx, blocks.Error(err.Error())); perr != nil {
			log.Warnw("failed to post error message", "error", perr)
		}
		w.convs.SwapReaction(ctx, job.Channel, job.TS, slack.ReactionWorking, slack.ReactionFailed)
		rec.Kind = store.KindFailed
		rec.Error = err.Error()
	} else {
		w.convs.SwapReaction(ctx, job.Channel, job.TS, slack.ReactionWorking, slack.ReactionDone)
		rec.Kind = string(res.Kind)
		rec.Repo = res.Repo
		rec.SDK = res.SDK
		rec.ReportedVersion = res.ReportedVersion
		rec.Message = res.Rendered.Text
		if best, ok := res.Best(); ok {
			rec.FixedVersion = best.Version
			rec.PRNumber = best.PRNumber
		}
	}
	rec.Duration = w.now().Sub(start)

	if w.runs != nil {
		if err := w.runs.RecordRun(rec); err != nil {
			log.Warnw("failed to record run", "error", err)
		}
	}
}

func (w *Worker) run(ctx context.Context, chat analysis.Chat, req analysis.Request) (res analysis.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panicked: %v", r)
		}
	}()
	return w.analyzer.Run(ctx, chat, req)
}

// SlackConversations adapts a slack.Client to Conversations.
type SlackConversations struct {
	*slack.Client
}

func (s SlackConversations) ChatFor(channel, threadTS string) analysis.Chat {
	return s.Thread(channel, threadTS)
}
