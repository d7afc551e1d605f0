package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeHead struct {
	head uint64
	err  error
}

func (f fakeHead) HeadBlockNumber(ctx context.Context) (uint64, error) {
	return f.head, f.err
}

func checkOnce(t *testing.T, checker Checker) (int, map[string]string) {
	t.Helper()

	srv := Serve("127.0.0.1:0", checker)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = Shutdown(ctx, srv)
	})

	// Serve binds asynchronously; hit the handler directly instead.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec.Code, body
}

func TestHealthzAllOK(t *testing.T) {
	checker := Checker{
		StorePing: func(ctx context.Context) error { return nil },
		RPCPing:   NewRPCChecker(fakeHead{head: 1}).Ping,
	}

	code, body := checkOnce(t, checker)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["store"] != "ok" || body["rpc"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestHealthzRPCFailure(t *testing.T) {
	checker := Checker{
		RPCPing: NewRPCChecker(fakeHead{err: errors.New("all hive nodes failed")}).Ping,
	}

	code, body := checkOnce(t, checker)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if body["rpc"] != "fail" {
		t.Fatalf("body = %v", body)
	}
}

func TestHealthzStoreFailure(t *testing.T) {
	checker := Checker{
		StorePing: func(ctx context.Context) error { return errors.New("db closed") },
		RPCPing:   NewRPCChecker(fakeHead{head: 1}).Ping,
	}

	code, body := checkOnce(t, checker)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if body["store"] != "fail" || body["rpc"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}
