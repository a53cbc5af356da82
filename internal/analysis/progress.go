package analysis

import (
	"context"
	"sync"

	"github.com/brianndofor/wif/internal/blocks"
	"go.uber.org/zap"
)

// reporter keeps the progress message in sync with the trail. Updates are
// posted in the background and only the newest pending render is kept; the
// trail is cumulative, so a dropped render loses no steps.
type reporter struct {
	chat   Chat
	id     string
	logger *zap.SugaredLogger

	mu      sync.Mutex
	trail   blocks.Trail
	pending chan blocks.Message
	done    chan struct{}
	closed  bool
}

func startReporter(ctx context.Context, chat Chat, first string, logger *zap.SugaredLogger) (*reporter, error) {
	trail := blocks.NewTrail(first)
	id, err := chat.PostMessage(ctx, blocks.ProgressFor(trail))
	if err != nil {
		return nil, err
	}
	r := &reporter{
		chat:    chat,
		id:      id,
		logger:  logger,
		trail:   trail,
		pending: make(chan blocks.Message, 1),
		done:    make(chan struct{}),
	}
	go r.loop(ctx)
	return r, nil
}

func (r *reporter) loop(ctx context.Context) {
	defer close(r.done)
	for msg := range r.pending {
		if err := r.chat.UpdateMessage(ctx, r.id, msg); err != nil {
			r.logger.Warnw("failed to update progress", "error", err)
		}
	}
}

// Append adds a step; every earlier step becomes done.
func (r *reporter) Append(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.trail = r.trail.Append(label)
	r.publish(blocks.ProgressFor(r.trail))
}

// Finish appends a last step, marks the trail done and waits for the final
// render to be posted.
func (r *reporter) Finish(label string) {
	r.mu.Lock()
	if !r.closed {
		r.trail = r.trail.Append(label).Finish()
		r.publish(blocks.ProgressFor(r.trail))
	}
	r.mu.Unlock()
	r.Close()
}

// Close stops the reporter after flushing any pending render.
func (r *reporter) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.pending)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *reporter) Trail() blocks.Trail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trail
}

// publish replaces any render still waiting to be posted. Callers hold mu.
func (r *reporter) publish(msg blocks.Message) {
	for {
		select {
		case r.pending <- msg:
			return
		default:
		}
		select {
		case <-r.pending:
		default:
		}
	}
}
