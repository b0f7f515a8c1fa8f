package n9e

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msp-toolkit/internal/config"
	"msp-toolkit/internal/model"
)

// setupTestServer creates a test server and N9E client for testing.
func setupTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	cfg := &config.N9EConfig{
		Endpoint:  server.URL,
		Timeout:   5 * time.Second,
		ClientTag: "client",
	}
	retryCfg := &config.RetryConfig{
		MaxRetries: 2,
		BaseDelay:  10 * time.Millisecond,
	}
	client := NewClient(cfg, "test-token", retryCfg, zerolog.Nop())
	return server, client
}

func writeTargets(w http.ResponseWriter, targets ...TargetData) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TargetsResponse{
		Dat: TargetListData{List: targets, Total: len(targets)},
	})
}

// =============================================================================
// Basic Functionality Tests
// =============================================================================

func TestNewClient(t *testing.T) {
	tests := []struct {
		name          string
		cfg           *config.N9EConfig
		retryCfg      *config.RetryConfig
		wantTimeout   time.Duration
		wantRetries   int
		wantClientTag string
	}{
		{
			name: "with all config",
			cfg: &config.N9EConfig{
				Endpoint:  "http://localhost:17000",
				Timeout:   10 * time.Second,
				ClientTag: "customer",
			},
			retryCfg:      &config.RetryConfig{MaxRetries: 5, BaseDelay: time.Second},
			wantTimeout:   10 * time.Second,
			wantRetries:   5,
			wantClientTag: "customer",
		},
		{
			name:          "with defaults",
			cfg:           &config.N9EConfig{Endpoint: "http://localhost:17000"},
			wantTimeout:   30 * time.Second,
			wantRetries:   3,
			wantClientTag: DefaultClientTag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.cfg, "token", tt.retryCfg, zerolog.Nop())
			require.NotNil(t, client)
			assert.Equal(t, tt.wantTimeout, client.timeout)
			assert.Equal(t, tt.wantRetries, client.retry.MaxRetries)
			assert.Equal(t, tt.wantClientTag, client.clientTag)
			assert.Equal(t, "n9e", client.Name())
		})
	}
}

func TestGetTargets(t *testing.T) {
	server, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/n9e/targets", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-User-Token"))
		assert.Equal(t, "10000", r.URL.Query().Get("limit"))
		assert.Equal(t, "client=acme", r.URL.Query().Get("query"))
		writeTargets(w, TargetData{Ident: "web-1"}, TargetData{Ident: "web-2"})
	})
	defer server.Close()

	targets, err := client.GetTargets(context.Background(), "client=acme")
	require.NoError(t, err)
	assert.Len(t, targets, 2)
}

func TestGetTargets_BaseQueryCombined(t *testing.T) {
	var received string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.URL.Query().Get("query")
		writeTargets(w)
	}))
	defer server.Close()

	cfg := &config.N9EConfig{Endpoint: server.URL, Query: "env=prod"}
	client := NewClient(cfg, "t", &config.RetryConfig{}, zerolog.Nop())

	_, err := client.GetTargets(context.Background(), "client=acme")
	require.NoError(t, err)
	assert.Equal(t, "env=prod client=acme", received)
}

func TestListDevicesFor(t *testing.T) {
	server, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeTargets(w,
			TargetData{Ident: "web-1@10.0.0.1", TagsMaps: map[string]string{"client": "acme"}, UpdateAt: 1702483200},
			TargetData{Ident: "fw-1", Tags: []string{"client=acme", "device_type=network"}},
			// Fuzzy search also returns near matches.
			TargetData{Ident: "web-9", TagsMaps: map[string]string{"client": "acme-labs"}},
		)
	})
	defer server.Close()

	refs, err := client.ListDevicesFor(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, refs, 2)

	assert.Equal(t, "web-1@10.0.0.1", refs[0].ID)
	assert.Equal(t, "web-1", refs[0].Name)
	assert.Equal(t, "server", refs[0].Type)
	require.NotNil(t, refs[0].LastSeen)
	assert.Equal(t, int64(1702483200), refs[0].LastSeen.Unix())

	assert.Equal(t, "network", refs[1].Type)
	assert.Nil(t, refs[1].LastSeen)
}

func TestListDevicesFor_NoDevices(t *testing.T) {
	server, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeTargets(w)
	})
	defer server.Close()

	refs, err := client.ListDevicesFor(context.Background(), "acme")
	require.NoError(t, err)
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
}

// =============================================================================
// Error Handling Tests
// =============================================================================

func TestListDevicesFor_APIError(t *testing.T) {
	server, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"dat":{"list":[],"total":0},"err":"permission denied"}`))
	})
	defer server.Close()

	_, err := client.ListDevicesFor(context.Background(), "acme")
	require.Error(t, err)

	var integ *model.IntegrationError
	require.True(t, errors.As(err, &integ))
	assert.Equal(t, "n9e", integ.Integration)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, model.CodeIntegration, model.ErrorCode(err))
}

func TestGetTargets_Unauthorized_NoRetry(t *testing.T) {
	var attempts int32
	server, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer server.Close()

	_, err := client.GetTargets(context.Background(), "")
	assert.ErrorContains(t, err, "401")
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestGetTargets_RetryOnServerError(t *testing.T) {
	var attempts int32
	server, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeTargets(w, TargetData{Ident: "web-1"})
	})
	defer server.Close()

	targets, err := client.GetTargets(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, targets, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestPing(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		server, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			writeTargets(w)
		})
		defer server.Close()
		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("forbidden", func(t *testing.T) {
		server, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		defer server.Close()
		assert.ErrorContains(t, client.Ping(context.Background()), "403")
	})
}
