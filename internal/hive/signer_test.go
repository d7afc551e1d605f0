package hive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPSignerSignsTransaction(t *testing.T) {
	var got signRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(signResponse{Signature: "20aabb"})
	}))
	defer srv.Close()

	signer, err := NewHTTPSigner(srv.URL)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	trx := &UnsignedTransaction{RefBlockNum: 7, Expiration: "2026-08-30T12:01:00", Extensions: []any{}}
	sig, err := signer.SignTransaction(context.Background(), MainnetChainID, trx)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if sig != "20aabb" {
		t.Fatalf("sig = %q", sig)
	}
	if got.ChainID != MainnetChainID {
		t.Fatalf("chain id = %q", got.ChainID)
	}
	if got.Transaction == nil || got.Transaction.RefBlockNum != 7 {
		t.Fatalf("transaction = %+v", got.Transaction)
	}
}

func TestHTTPSignerRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	signer, err := NewHTTPSigner(srv.URL)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if _, err := signer.SignTransaction(context.Background(), MainnetChainID, &UnsignedTransaction{}); err == nil {
		t.Fatalf("expected error status to fail")
	}
}

func TestHTTPSignerRejectsEmptySignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(signResponse{})
	}))
	defer srv.Close()

	signer, _ := NewHTTPSigner(srv.URL)
	if _, err := signer.SignTransaction(context.Background(), MainnetChainID, &UnsignedTransaction{}); err == nil {
		t.Fatalf("expected empty signature to fail")
	}
}
