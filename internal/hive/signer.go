package hive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPSigner delegates signing to a remote signing service holding the
// account's posting key (a beekeeper-style sidecar). The service receives
// the chain id and the unsigned transaction and answers with a hex
// signature.
type HTTPSigner struct {
	url    string
	client *http.Client
}

func NewHTTPSigner(url string) (*HTTPSigner, error) {
	if url == "" {
		return nil, errors.New("signer url required")
	}
	return &HTTPSigner{
		url:    url,
		client: &http.Client{Timeout: 8 * time.Second},
	}, nil
}

type signRequest struct {
	ChainID     string               `json:"chain_id"`
	Transaction *UnsignedTransaction `json:"transaction"`
}

type signResponse struct {
	Signature string `json:"signature"`
}

func (s *HTTPSigner) SignTransaction(ctx context.Context, chainID string, trx *UnsignedTransaction) (string, error) {
	body, err := json.Marshal(signRequest{ChainID: chainID, Transaction: trx})
	if err != nil {
		return "", fmt.Errorf("marshal sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call signer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("signer status %d", resp.StatusCode)
	}

	var sr signResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode signer response: %w", err)
	}
	if sr.Signature == "" {
		return "", errors.New("signer returned empty signature")
	}
	return sr.Signature, nil
}
