// Package stream renders a model answer progressively. Deltas are cut into sentence-sized
// pieces, and each piece is followed by a full re-normalized preview of everything emitted so
// far. The stream ends with the authoritative canonical answer.
package stream

import (
	"context"
	"regexp"
	"strings"
	"time"

	"docqa/internal/answer"
	"docqa/internal/domain"
	"docqa/internal/markdown"
)

const (
	DefaultMinChars  = 16
	DefaultMaxChars  = 120
	DefaultHeartbeat = 15 * time.Second

	terminators = "\n。！？!?；;"
)

// EventType discriminates stream events.
type EventType string

const (
	EventContent   EventType = "content"
	EventReplace   EventType = "replace"
	EventDone      EventType = "done"
	EventError     EventType = "error"
	EventHeartbeat EventType = "heartbeat"
)

// Event is one message to the renderer. A replace carries a snapshot of the whole answer,
// never a diff; Partial marks previews that the final replace will supersede.
type Event struct {
	Type     EventType        `json:"type"`
	Content  string           `json:"content,omitempty"`
	Replace  string           `json:"replace,omitempty"`
	Blocks   []markdown.Block `json:"blocks,omitempty"`
	Partial  bool             `json:"partial,omitempty"`
	Done     bool             `json:"done,omitempty"`
	Sources  []domain.Source  `json:"sources,omitempty"`
	AnswerID string           `json:"answer_id,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Options configures an Emitter and Run.
type Options struct {
	MinChars  int
	MaxChars  int
	Heartbeat time.Duration // zero disables heartbeats

	// Finalize produces the authoritative text from the raw answer. Defaults to answer
	// normalization with example synthesis.
	Finalize func(raw string) string
	// Fallback supplies the answer when the stream ends without any text.
	Fallback func(ctx context.Context) (string, error)
	// OnDone receives the authoritative text once, right before the done event.
	OnDone func(final string)

	Sources  []domain.Source
	AnswerID string
}

// DefaultOptions returns the standard cut points and heartbeat.
func DefaultOptions() Options {
	return Options{MinChars: DefaultMinChars, MaxChars: DefaultMaxChars, Heartbeat: DefaultHeartbeat}
}

func (o Options) withDefaults() Options {
	if o.MinChars <= 0 {
		o.MinChars = DefaultMinChars
	}
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	if o.MaxChars < o.MinChars {
		o.MaxChars = o.MinChars
	}
	if o.Finalize == nil {
		o.Finalize = func(raw string) string { return answer.Normalize(raw, true).Text }
	}
	return o
}

var (
	horizontalRunRe = regexp.MustCompile(`[ \t]*-{3,}[ \t]*`)
	spaceRunRe      = regexp.MustCompile(`[ \t]+`)
)

// sanitizeDelta unifies line endings, drops ornamental glyphs, turns horizontal rule runs into
// line breaks and collapses space runs.
func sanitizeDelta(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = markdown.StripDecorative(s)
	s = horizontalRunRe.ReplaceAllString(s, "\n")
	return spaceRunRe.ReplaceAllString(s, " ")
}

// heldTail is what may still merge with the next delta: a CR before LF, a dash run that may
// grow into a rule, and spaces that may join a run.
const heldTail = "\r- \t"

// splitHeld separates the trailing run of heldTail characters from s.
func splitHeld(s string) (ready, held string) {
	cut := len(strings.TrimRight(s, heldTail))
	return s[:cut], s[cut:]
}

// Emitter holds the state of one streaming answer. It is not safe for concurrent use.
type Emitter struct {
	opts    Options
	raw     strings.Builder
	held    string
	pending []rune
	emitted strings.Builder
}

// NewEmitter returns an Emitter for one answer.
func NewEmitter(opts Options) *Emitter {
	return &Emitter{opts: opts.withDefaults()}
}

// Raw returns the unsanitized text received so far.
func (e *Emitter) Raw() string { return e.raw.String() }

// Push appends a delta and returns the events for every piece that became ready.
func (e *Emitter) Push(delta string) []Event {
	if delta == "" {
		return nil
	}
	e.raw.WriteString(delta)
	ready, held := splitHeld(e.held + delta)
	e.held = held
	e.pending = append(e.pending, []rune(sanitizeDelta(ready))...)

	var events []Event
	for {
		piece, ok := e.pop()
		if !ok {
			return events
		}
		events = append(events, e.emit(piece)...)
	}
}

// pop cuts the next piece: at the first terminator reaching MinChars, else at the last space
// before MaxChars once the buffer is that long, else exactly at MaxChars.
func (e *Emitter) pop() (string, bool) {
	for i, r := range e.pending {
		if i+1 < e.opts.MinChars {
			continue
		}
		if strings.ContainsRune(terminators, r) {
			return e.take(i + 1), true
		}
	}
	if len(e.pending) < e.opts.MaxChars {
		return "", false
	}
	cut := e.opts.MaxChars
	for i := e.opts.MaxChars - 1; i > 0; i-- {
		if e.pending[i] == ' ' {
			cut = i
			break
		}
	}
	return e.take(cut), true
}

func (e *Emitter) take(n int) string {
	piece := string(e.pending[:n])
	e.pending = append([]rune(nil), e.pending[n:]...)
	return piece
}

// emit records a piece and returns its content event plus a preview of everything emitted.
// Pieces keep their line breaks so the preview sees the structure of the answer.
func (e *Emitter) emit(piece string) []Event {
	e.emitted.WriteString(piece)
	var events []Event
	if strings.TrimSpace(piece) != "" {
		events = append(events, Event{Type: EventContent, Content: piece})
	}
	preview := answer.Normalize(e.emitted.String(), false).Text
	if preview == "" {
		return events
	}
	return append(events, Event{Type: EventReplace, Replace: preview, Blocks: answer.Blocks(preview), Partial: true})
}

// Finish emits the unflushed tail, then the authoritative replace built from raw, then done.
// raw is normally Raw(); callers pass a fallback answer when the stream produced no text.
func (e *Emitter) Finish(raw string) []Event {
	var events []Event
	e.pending = append(e.pending, []rune(sanitizeDelta(e.held))...)
	e.held = ""
	if tail := string(e.pending); strings.TrimSpace(tail) != "" {
		events = append(events, e.emit(tail)...)
	}
	e.pending = nil

	final := e.opts.Finalize(raw)
	blocks := answer.Blocks(final)
	if e.opts.OnDone != nil {
		e.opts.OnDone(final)
	}
	return append(events,
		Event{Type: EventReplace, Replace: final, Blocks: blocks},
		Event{Type: EventDone, Done: true, Blocks: blocks, Sources: e.opts.Sources, AnswerID: e.opts.AnswerID},
	)
}

// Fail flushes the canonical form of what arrived so far and reports err.
func (e *Emitter) Fail(err error) []Event {
	var events []Event
	if raw := e.Raw(); strings.TrimSpace(raw) != "" {
		final := e.opts.Finalize(raw)
		events = append(events, Event{Type: EventReplace, Replace: final, Blocks: answer.Blocks(final)})
	}
	e.pending, e.held = nil, ""
	return append(events, Event{Type: EventError, Error: err.Error(), AnswerID: e.opts.AnswerID})
}
