package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/markdown"
)

const (
	embedBatchSize   = 64
	embedParallelism = 4
)

// RAGServiceImpl indexes documentation and answers questions over it.
type RAGServiceImpl struct {
	cfg        *config.AppConfig
	loader     *Loader
	chunker    domain.Chunker
	embedder   domain.Embedder
	store      domain.VectorStore
	summarizer domain.Summarizer
	model      domain.ChatModel
	logger     *zap.Logger
	sessions   *sessionStore

	// ingestMu serializes ingestion; mu guards chunks.
	ingestMu sync.Mutex
	mu       sync.RWMutex
	chunks   []domain.Chunk
}

var _ domain.RAGService = (*RAGServiceImpl)(nil)

func NewRAGService(cfg *config.AppConfig, chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, summarizer domain.Summarizer, model domain.ChatModel, logger *zap.Logger) *RAGServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RAGServiceImpl{
		cfg:        cfg,
		loader:     NewLoader(cfg.Docs),
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		summarizer: summarizer,
		model:      model,
		logger:     logger,
		sessions:   newSessionStore(maxSessions, maxHistoryRounds),
	}
}

// IngestDocuments rebuilds the index from the given files, directories or globs and returns
// a short summary of the prose it indexed.
func (s *RAGServiceImpl) IngestDocuments(ctx context.Context, paths []string) (string, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	documents, err := s.loader.Load(paths)
	if err != nil {
		return "", err
	}

	var allChunks []domain.Chunk
	var prose strings.Builder
	for _, d := range documents {
		d.Content = markdown.Clean(d.Content, markdown.Kind(d.Kind))
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		chunks, err := s.chunker.Chunk(d)
		if err != nil {
			return "", fmt.Errorf("chunk %s: %w", d.Path, err)
		}
		allChunks = append(allChunks, chunks...)
		if d.Kind == domain.KindMarkdown {
			prose.WriteString("\n\n")
			prose.WriteString(d.Content)
		}
	}
	if len(allChunks) == 0 {
		return "", domain.ErrNoDocuments
	}
	s.logger.Info("documents loaded",
		zap.Int("documents", len(documents)),
		zap.Int("chunks", len(allChunks)),
	)

	texts := make([]string, len(allChunks))
	for i, ch := range allChunks {
		texts[i] = ch.Text
	}
	if err := s.embedder.Prepare(texts); err != nil {
		return "", fmt.Errorf("prepare %s embedder: %w", s.embedder.Name(), err)
	}
	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return "", err
	}

	dim := s.embedder.Dimension()
	if len(vectors) > 0 && len(vectors[0]) > 0 {
		dim = len(vectors[0])
	}
	if err := s.store.Init(ctx, dim); err != nil {
		return "", fmt.Errorf("init store: %w", err)
	}
	if err := s.store.Clear(ctx); err != nil {
		return "", fmt.Errorf("clear store: %w", err)
	}
	if err := s.store.Upsert(ctx, allChunks, vectors); err != nil {
		return "", fmt.Errorf("upsert: %w", err)
	}

	s.mu.Lock()
	s.chunks = allChunks
	s.mu.Unlock()
	s.logger.Info("index built",
		zap.String("embedder", s.embedder.Name()),
		zap.Int("dimension", dim),
	)

	return s.summarizer.Summarize(prose.String(), s.cfg.Summarizer.MaxSentences)
}

// embedAll embeds texts in fixed batches with bounded parallelism, keeping input order.
func (s *RAGServiceImpl) embedAll(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedParallelism)
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		g.Go(func() error {
			vecs, err := s.embedder.Embed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end, len(vecs))
			}
			copy(vectors[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Query returns the topK chunks for query. It falls back to token overlap when the query
// vector or every score is zero, which happens with TF-IDF on out-of-vocabulary questions.
func (s *RAGServiceImpl) Query(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if errors.Is(err, domain.ErrNotPrepared) {
		return s.lexical(query, topK), nil
	}
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || isZero(vecs[0]) {
		return s.lexical(query, topK), nil
	}
	res, err := s.store.Search(ctx, vecs[0], topK)
	if err != nil {
		return nil, err
	}
	allZero := true
	for _, r := range res {
		if r.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		s.logger.Debug("vector scores are zero, using lexical ranking", zap.String("query", query))
		return s.lexical(query, topK), nil
	}
	return res, nil
}

func (s *RAGServiceImpl) lexical(query string, topK int) []domain.SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lexicalSearch(s.chunks, query, topK)
}

// Stats reports how many chunks the vector store holds.
func (s *RAGServiceImpl) Stats(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}
