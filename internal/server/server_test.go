package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawminium/agentkernel/internal/config"
	"github.com/clawminium/agentkernel/internal/server"
)

type alertHook struct {
	mu       sync.Mutex
	messages []string
}

func (h *alertHook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	h.mu.Lock()
	h.messages = append(h.messages, body.Message)
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (h *alertHook) got() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.messages...)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("AGENTKERNEL_CONFIG", "")
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.EnableAuditLogging = false
	return cfg
}

func newKernel(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	s, err := server.New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) map[string]any {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var env map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestEndToEnd(t *testing.T) {
	hook := &alertHook{}
	hookSrv := httptest.NewServer(hook)
	defer hookSrv.Close()

	cfg := testConfig(t)
	cfg.AlertWebhookURL = hookSrv.URL
	ts := newKernel(t, cfg)

	t.Run("initialize", func(t *testing.T) {
		env := post(t, ts.URL+"/rpc", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
		assert.EqualValues(t, 1, env["id"])
		result := env["result"].(map[string]any)
		assert.Equal(t, "2025-11-25", result["protocolVersion"])
		assert.Equal(t, map[string]any{}, result["capabilities"])
		assert.Equal(t, map[string]any{"name": "clawminium-kernel", "version": "1.0.0"}, result["serverInfo"])
	})

	t.Run("save the world", func(t *testing.T) {
		env := post(t, ts.URL+"/rpc", `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"save_the_world","arguments":{}}}`)
		assert.Equal(t, map[string]any{
			"content": []any{map[string]any{"type": "text", "text": "The world has been saved."}},
		}, env["result"])
	})

	t.Run("destroy the world", func(t *testing.T) {
		env := post(t, ts.URL+"/rpc", `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"destroy_the_world","arguments":{}}}`)
		assert.Equal(t, map[string]any{"code": float64(-32000), "message": "Blocked by Device Policy."}, env["error"])
		assert.NotContains(t, env, "result")
		assert.Eventually(t, func() bool { return len(hook.got()) == 1 }, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, []string{"Blocked by Device Policy."}, hook.got())
	})

	t.Run("legacy path accepts rpc", func(t *testing.T) {
		env := post(t, ts.URL+"/sse", `{"jsonrpc":"2.0","id":4,"method":"tools/list"}`)
		tools := env["result"].(map[string]any)["tools"].([]any)
		assert.Len(t, tools, 4)
	})

	t.Run("unknown method", func(t *testing.T) {
		env := post(t, ts.URL+"/rpc", `{"jsonrpc":"2.0","id":5,"method":"foo"}`)
		assert.EqualValues(t, -32601, env["error"].(map[string]any)["code"])
	})
}

func TestDiscoveryAdvertisesRPC(t *testing.T) {
	ts := newKernel(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/discover", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	rd := bufio.NewReader(resp.Body)
	line, err := rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: endpoint\n", line)
	line, err = rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: "+ts.URL+"/rpc\n", line)
}

func TestHealth(t *testing.T) {
	ts := newKernel(t, testConfig(t))
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h struct {
		Status   string `json:"status"`
		Tools    int    `json:"tools"`
		Policies int    `json:"policies"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, 4, h.Tools)
	assert.Equal(t, 2, h.Policies)
}

func TestAuthEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnableAuth = true
	cfg.APIKeys = []string{"k1"}
	ts := newKernel(t, cfg)

	resp, err := http.Post(ts.URL+"/rpc", "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/rpc", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	req.Header.Set("X-API-Key", "k1")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
policies:
  - name: no-saving
    kind: forbidden_tool
    reason: Saving is not allowed here.
    tools: [save_the_world]
`), 0o644))

	cfg := testConfig(t)
	cfg.PolicyFile = path
	cfg.WatchPolicies = false
	ts := newKernel(t, cfg)

	env := post(t, ts.URL+"/rpc", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"save_the_world"}}`)
	assert.Equal(t, "Saving is not allowed here.", env["error"].(map[string]any)["message"])

	// the file replaces the defaults entirely
	env = post(t, ts.URL+"/rpc", `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"destroy_the_world"}}`)
	assert.Contains(t, env, "result")
}

func TestNewRejectsBadPolicyFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PolicyFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := server.New(cfg)
	assert.Error(t, err)
}

func TestRunShutsDown(t *testing.T) {
	s, err := server.New(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
