package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docqa/internal/answer"
	"docqa/internal/domain"
	"docqa/internal/markdown"
	"docqa/internal/stream"
)

const systemPrompt = `You answer questions about the indexed documentation.
Use only the context below. If the context does not cover the question, say so.
Format answers as Markdown and put code in fenced blocks with a language tag.`

const exampleGuardrail = `No example, demo, test or quick-start source was retrieved for this question.
Do not write API usage that the examples do not confirm; say when they do not cover it.`

// Answer is a finished reply with its renderer blocks.
type Answer struct {
	ID      string           `json:"answer_id"`
	Text    string           `json:"text"`
	Blocks  []markdown.Block `json:"blocks"`
	Sources []domain.Source  `json:"sources"`
	Notes   []string         `json:"notes,omitempty"`
}

func (s *RAGServiceImpl) policy() answer.Policy {
	return answer.Policy{
		ConfidenceThreshold: s.cfg.Answer.ConfidenceThreshold,
		MaxCitations:        s.cfg.Answer.MaxCitations,
	}
}

// buildMessages assembles system prompt, context, prior turns and the question.
func (s *RAGServiceImpl) buildMessages(session, question string, results []domain.SearchResult) []domain.Message {
	var sys strings.Builder
	sys.WriteString(systemPrompt)
	if answer.IsUsageQuery(question) && !answer.HasExampleSource(results) {
		sys.WriteString("\n\n")
		sys.WriteString(exampleGuardrail)
	}
	sys.WriteString("\n\nContext:\n\n")
	sys.WriteString(formatContext(results))

	msgs := []domain.Message{{Role: domain.RoleSystem, Content: sys.String()}}
	msgs = append(msgs, s.sessions.History(session)...)
	return append(msgs, domain.Message{Role: domain.RoleUser, Content: question})
}

func formatContext(results []domain.SearchResult) string {
	parts := make([]string, 0, len(results))
	for i, r := range results {
		md := r.Chunk.Metadata
		parts = append(parts, fmt.Sprintf("[%d] %s/%s\n%s", i+1, md[domain.MetaProject], md[domain.MetaSource], r.Chunk.Text))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// finalize runs normalization and the guards over a raw answer.
func (s *RAGServiceImpl) finalize(logger *zap.Logger, raw, question string, results []domain.SearchResult) (string, []string) {
	res := answer.Normalize(raw, !s.cfg.Answer.DisableExampleVariants)
	if len(res.Notes) > 0 {
		logger.Warn("answer code auto-corrected", zap.Strings("notes", res.Notes))
	}
	return s.policy().Guard(res.Text, question, results), res.Notes
}

// Ask answers a question in one model call and records the turn under session.
func (s *RAGServiceImpl) Ask(ctx context.Context, session, question string) (Answer, error) {
	id := uuid.NewString()
	logger := s.logger.With(zap.String("answer_id", id), zap.String("session", session))
	start := time.Now()

	results, err := s.Query(ctx, question, s.cfg.Answer.TopK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	if len(results) == 0 {
		logger.Info("no context for question")
		return Answer{ID: id, Text: answer.NoContextAnswer, Blocks: answer.Blocks(answer.NoContextAnswer)}, nil
	}

	raw, err := s.model.Complete(ctx, s.buildMessages(session, question, results))
	if err != nil {
		return Answer{}, fmt.Errorf("%s complete: %w", s.model.Name(), err)
	}
	text, notes := s.finalize(logger, raw, question, results)

	blocks, err := answer.BuildBlocks(text)
	if err != nil {
		logger.Warn("block extraction failed, using one paragraph", zap.Error(err))
	}
	s.sessions.Append(session, question, text)
	logger.Info("answered",
		zap.Int("contexts", len(results)),
		zap.Int("blocks", len(blocks)),
		zap.Duration("took", time.Since(start)),
	)
	return Answer{ID: id, Text: text, Blocks: blocks, Sources: answer.Sources(results), Notes: notes}, nil
}

// AskStream answers a question as a stream of render events. The channel closes after the
// done or error event, or when ctx is cancelled.
func (s *RAGServiceImpl) AskStream(ctx context.Context, session, question string) (<-chan stream.Event, error) {
	id := uuid.NewString()
	logger := s.logger.With(zap.String("answer_id", id), zap.String("session", session))

	results, err := s.Query(ctx, question, s.cfg.Answer.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(results) == 0 {
		logger.Info("no context for question")
		return noContextStream(id), nil
	}

	messages := s.buildMessages(session, question, results)
	deltas, err := s.model.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%s stream: %w", s.model.Name(), err)
	}

	opts := stream.Options{
		MinChars:  s.cfg.Stream.MinChars,
		MaxChars:  s.cfg.Stream.MaxChars,
		Heartbeat: time.Duration(s.cfg.Stream.HeartbeatSecs) * time.Second,
		Finalize: func(raw string) string {
			text, _ := s.finalize(logger, raw, question, results)
			return text
		},
		Fallback: func(ctx context.Context) (string, error) {
			logger.Info("stream produced no text, retrying without streaming")
			return s.model.Complete(ctx, messages)
		},
		OnDone: func(final string) {
			s.sessions.Append(session, question, final)
		},
		Sources:  answer.Sources(results),
		AnswerID: id,
	}
	return stream.Run(ctx, deltas, opts), nil
}

func noContextStream(id string) <-chan stream.Event {
	out := make(chan stream.Event, 2)
	out <- stream.Event{
		Type:    stream.EventReplace,
		Replace: answer.NoContextAnswer,
		Blocks:  answer.Blocks(answer.NoContextAnswer),
	}
	out <- stream.Event{Type: stream.EventDone, Done: true, AnswerID: id}
	close(out)
	return out
}

// ResetSession forgets the turns recorded under session.
func (s *RAGServiceImpl) ResetSession(session string) { s.sessions.Reset(session) }
