package insight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urjabill/urjabill/pkg/types"
)

func testClient(url string) *Client {
	return &Client{
		url:      url,
		key:      "test-key",
		attempts: 3,
		backoff:  time.Millisecond,
		hc:       &http.Client{Timeout: time.Second},
	}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	result := types.CalculationResult{TotalUnits: 250}
	tariff := types.StateTariff{ID: "flat_demo"}

	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req insightRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 250.0, req.Result.TotalUnits)
			assert.Equal(t, "hi", req.Language)

			json.NewEncoder(w).Encode(insightResponse{Insight: "AC dominates your bill"})
		}))
		defer server.Close()

		text, err := testClient(server.URL).Generate(ctx, result, tariff, "hi")
		require.NoError(t, err)
		assert.Equal(t, "AC dominates your bill", text)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(insightResponse{Insight: "ok"})
		}))
		defer server.Close()

		text, err := testClient(server.URL).Generate(ctx, result, tariff, "en")
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		assert.Equal(t, int64(3), calls.Load())
	})

	t.Run("caps attempts", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := testClient(server.URL).Generate(ctx, result, tariff, "en")
		require.Error(t, err)
		assert.Equal(t, int64(3), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		_, err := testClient(server.URL).Generate(ctx, result, tariff, "en")
		require.Error(t, err)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("empty insight is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(insightResponse{})
		}))
		defer server.Close()

		_, err := testClient(server.URL).Generate(ctx, result, tariff, "en")
		assert.Error(t, err)
	})

	t.Run("disabled without a URL", func(t *testing.T) {
		c := testClient("")
		assert.False(t, c.Enabled())
		_, err := c.Generate(ctx, result, tariff, "en")
		assert.Error(t, err)
	})

	t.Run("respects context cancellation between attempts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := testClient(server.URL)
		c.backoff = time.Minute
		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err := c.Generate(cctx, result, tariff, "en")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
