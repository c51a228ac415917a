package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type recorded struct {
	method, path string
	body         map[string]any
}

func fakeQdrant(t *testing.T, reqs *[]recorded) *httptest.Server {
	t.Helper()
	exists := false
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		rec := recorded{method: r.Method, path: r.URL.Path}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		*reqs = append(*reqs, rec)
		switch {
		case r.URL.Path == "/collections/docs" && r.Method == http.MethodPut:
			if exists {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"status":{"error":"Wrong input: Collection docs already exists!"}}`))
				return
			}
			exists = true
			_, _ = w.Write([]byte(`{"result":true}`))
		case r.URL.Path == "/collections/docs" && r.Method == http.MethodDelete:
			exists = false
			_, _ = w.Write([]byte(`{"result":true}`))
		case r.URL.Path == "/collections/docs/points/search":
			_, _ = w.Write([]byte(`{"result":[{"score":0.9,"payload":{"document_id":"d","chunk_id":"d:1","index":1,"text":"hello","meta_project":"galay-http"}}]}`))
		case r.URL.Path == "/collections/docs/points/count":
			_, _ = w.Write([]byte(`{"result":{"count":7}}`))
		default:
			_, _ = w.Write([]byte(`{"result":true}`))
		}
	}))
}

func TestStorage_RoundTrip(t *testing.T) {
	var reqs []recorded
	srv := fakeQdrant(t, &reqs)
	defer srv.Close()
	ctx := context.Background()
	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "docs"})

	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{DocumentID: "d", ChunkID: "d:1", Index: 1, Text: "hello"}}, [][]float64{{1, 0}}))
	res, err := s.Search(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	n, err := s.Count(ctx)
	require.NoError(t, err)

	assert.Equal(t, 7, n)
	require.Len(t, res, 1)
	assert.Equal(t, "d:1", res[0].Chunk.ChunkID)
	assert.Equal(t, 1, res[0].Chunk.Index)
	assert.Equal(t, "galay-http", res[0].Chunk.Metadata[domain.MetaProject])

	require.Len(t, reqs, 4)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/collections/docs", reqs[0].path)
	points := reqs[1].body["points"].([]any)
	id := points[0].(map[string]any)["id"].(string)
	assert.Equal(t, pointID("d:1"), id)
	assert.Len(t, id, 36)
}

func TestStorage_ClearRecreatesCollection(t *testing.T) {
	var reqs []recorded
	srv := fakeQdrant(t, &reqs)
	defer srv.Close()
	ctx := context.Background()
	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "docs"})
	require.NoError(t, s.Init(ctx, 4))
	require.NoError(t, s.Clear(ctx))

	require.Len(t, reqs, 3)
	assert.Equal(t, http.MethodDelete, reqs[1].method)
	assert.Equal(t, http.MethodPut, reqs[2].method)
}

func TestStorage_InitReusesExistingCollection(t *testing.T) {
	var reqs []recorded
	srv := fakeQdrant(t, &reqs)
	defer srv.Close()
	ctx := context.Background()
	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "docs"})
	require.NoError(t, s.Init(ctx, 4))

	// A later run sees the collection from the first one.
	again := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "docs"})
	require.NoError(t, again.Init(ctx, 4))
	require.NoError(t, again.Clear(ctx))
	require.NoError(t, again.Upsert(ctx, []domain.Chunk{{ChunkID: "d:0"}}, [][]float64{{1, 0, 0, 0}}))

	require.Len(t, reqs, 5)
	assert.Equal(t, http.MethodPut, reqs[1].method)
	assert.Equal(t, http.MethodDelete, reqs[2].method)
	assert.Equal(t, http.MethodPut, reqs[3].method)
}

func TestStorage_RejectsWrongDimension(t *testing.T) {
	var reqs []recorded
	srv := fakeQdrant(t, &reqs)
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "docs"})
	require.NoError(t, s.Init(context.Background(), 3))
	err := s.Upsert(context.Background(), []domain.Chunk{{ChunkID: "x"}}, [][]float64{{1}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestStorage_HTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL, Collection: "docs"})
	assert.ErrorContains(t, s.Init(context.Background(), 2), "400")
}
