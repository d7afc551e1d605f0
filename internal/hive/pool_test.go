package hive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func rpcServer(t *testing.T, hits *int, handler func(method string) (any, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		var req struct {
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		result, rpcErr := handler(req.Method)
		w.Header().Set("Content-Type", "application/json")
		if rpcErr != "" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": -32000, "message": rpcErr},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	}))
}

func newTestPool(t *testing.T, nodes []string) *Pool {
	t.Helper()
	pool, err := NewPool(nodes, WithBackoff(0))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return pool
}

func TestCallExhaustsAllNodesExactlyOnce(t *testing.T) {
	hits := make([]int, 3)
	nodes := make([]string, 3)
	for i := range nodes {
		i := i
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits[i]++
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()
		nodes[i] = srv.URL
	}

	pool := newTestPool(t, nodes)
	err := pool.Call(context.Background(), "condenser_api.get_block", []any{1}, nil)
	if !errors.Is(err, ErrAllNodesFailed) {
		t.Fatalf("expected ErrAllNodesFailed, got %v", err)
	}

	for i, h := range hits {
		if h != 1 {
			t.Fatalf("node %d tried %d times, want exactly 1", i, h)
		}
	}
	if pool.idx != 0 {
		t.Fatalf("index should wrap to start after full rotation, got %d", pool.idx)
	}
}

func TestCallSticksToHealthyNode(t *testing.T) {
	var badHits int
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badHits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	var goodHits int
	good := rpcServer(t, &goodHits, func(method string) (any, string) {
		return map[string]any{"head_block_number": 42}, ""
	})
	defer good.Close()

	pool := newTestPool(t, []string{bad.URL, good.URL})

	var props DynamicGlobalProperties
	if err := pool.Call(context.Background(), "condenser_api.get_dynamic_global_properties", nil, &props); err != nil {
		t.Fatalf("call: %v", err)
	}
	if props.HeadBlockNumber != 42 {
		t.Fatalf("head = %d, want 42", props.HeadBlockNumber)
	}
	if badHits != 1 || goodHits != 1 {
		t.Fatalf("attempts bad=%d good=%d, want 1 and 1", badHits, goodHits)
	}
	if pool.idx != 1 {
		t.Fatalf("index = %d, want sticky on successful node 1", pool.idx)
	}

	// Second call must go straight to the known-good node.
	if err := pool.Call(context.Background(), "condenser_api.get_dynamic_global_properties", nil, &props); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if badHits != 1 {
		t.Fatalf("bad node retried after success, hits=%d", badHits)
	}
	if goodHits != 2 {
		t.Fatalf("good node hits = %d, want 2", goodHits)
	}
}

func TestCallFailsOverOnRPCErrorField(t *testing.T) {
	var hits1 int
	erroring := rpcServer(t, &hits1, func(method string) (any, string) {
		return nil, "Assert Exception: unknown method"
	})
	defer erroring.Close()

	var hits2 int
	healthy := rpcServer(t, &hits2, func(method string) (any, string) {
		return "ok", ""
	})
	defer healthy.Close()

	pool := newTestPool(t, []string{erroring.URL, healthy.URL})

	var out string
	if err := pool.Call(context.Background(), "condenser_api.get_block", []any{1}, &out); err != nil {
		t.Fatalf("call: %v", err)
	}
	if out != "ok" {
		t.Fatalf("result = %q", out)
	}
	if hits1 != 1 || hits2 != 1 {
		t.Fatalf("attempts = %d,%d want 1,1", hits1, hits2)
	}
}

func TestCallFailsOverOnMalformedResponse(t *testing.T) {
	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer malformed.Close()

	var hits int
	healthy := rpcServer(t, &hits, func(method string) (any, string) {
		return 7, ""
	})
	defer healthy.Close()

	pool := newTestPool(t, []string{malformed.URL, healthy.URL})

	var out int
	if err := pool.Call(context.Background(), "condenser_api.get_block", []any{1}, &out); err != nil {
		t.Fatalf("call: %v", err)
	}
	if out != 7 {
		t.Fatalf("result = %d, want 7", out)
	}
}

func TestNewPoolRequiresNodes(t *testing.T) {
	if _, err := NewPool(nil); err == nil {
		t.Fatalf("expected empty node list to fail")
	}
}
