package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler func(req embeddingRequest) (int, interface{})) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_EmbedNormalizesAndOrders(t *testing.T) {
	var batches int
	srv := newTestServer(t, func(req embeddingRequest) (int, interface{}) {
		batches++
		data := make([]embeddingData, 0, len(req.Input))
		// reply in reverse order to exercise index mapping
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, embeddingData{Index: i, Embedding: []float32{float32(len(req.Input[i])), 0}})
		}
		return http.StatusOK, embeddingResponse{Data: data}
	})

	c, err := NewClient(ClientConfig{APIKey: "secret", Model: "m", BaseURL: srv.URL, Dimension: 2, BatchSize: 2})
	require.NoError(t, err)

	vecs, err := c.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, 2, batches)
	for _, v := range vecs {
		assert.InDelta(t, 1.0, float64(v[0]), 1e-6)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := newTestServer(t, func(req embeddingRequest) (int, interface{}) {
		return http.StatusUnauthorized, embeddingResponse{Error: &apiError{Message: "bad key", Type: "auth"}}
	})

	c, err := NewClient(ClientConfig{APIKey: "secret", Model: "m", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.EmbedSingle(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestClient_DimensionMismatch(t *testing.T) {
	srv := newTestServer(t, func(req embeddingRequest) (int, interface{}) {
		return http.StatusOK, embeddingResponse{Data: []embeddingData{{Index: 0, Embedding: []float32{1, 2, 3}}}}
	})

	c, err := NewClient(ClientConfig{APIKey: "secret", Model: "m", BaseURL: srv.URL, Dimension: 2})
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestClient_MissingEmbedding(t *testing.T) {
	srv := newTestServer(t, func(req embeddingRequest) (int, interface{}) {
		return http.StatusOK, embeddingResponse{Data: []embeddingData{{Index: 0, Embedding: []float32{1}}}}
	})

	c, err := NewClient(ClientConfig{APIKey: "secret", Model: "m", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), []string{"x", "y"})
	assert.Error(t, err)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(ClientConfig{Model: "m"})
	assert.Error(t, err)
	_, err = NewClient(ClientConfig{APIKey: "k"})
	assert.Error(t, err)
}
