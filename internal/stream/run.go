package stream

import (
	"context"
	"strings"
	"time"

	"docqa/internal/domain"
)

// Run consumes deltas on its own goroutine, the only writer of the answer's Emitter, and
// returns the event stream. The channel closes after done or error, or when ctx is cancelled.
func Run(ctx context.Context, deltas <-chan domain.Delta, opts Options) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		em := NewEmitter(opts)

		send := func(events []Event) bool {
			for _, ev := range events {
				select {
				case out <- ev:
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		var beat <-chan time.Time
		reset := func() {}
		if opts.Heartbeat > 0 {
			ticker := time.NewTicker(opts.Heartbeat)
			defer ticker.Stop()
			beat = ticker.C
			reset = func() { ticker.Reset(opts.Heartbeat) }
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-beat:
				if !send([]Event{{Type: EventHeartbeat}}) {
					return
				}
			case d, ok := <-deltas:
				if !ok {
					send(finish(ctx, em, opts))
					return
				}
				if d.Err != nil {
					send(em.Fail(d.Err))
					return
				}
				if !send(em.Push(d.Text)) {
					return
				}
				reset()
			}
		}
	}()
	return out
}

func finish(ctx context.Context, em *Emitter, opts Options) []Event {
	raw := em.Raw()
	if strings.TrimSpace(raw) == "" && opts.Fallback != nil {
		text, err := opts.Fallback(ctx)
		if err != nil {
			return em.Fail(err)
		}
		raw = text
	}
	return em.Finish(raw)
}
