package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-lint/internal/config"
)

func TestNewAppliesSettings(t *testing.T) {
	cfg := &config.Config{HTTPClient: config.HTTPClient{
		RetryCount: 2,
		Timeout:    7 * time.Second,
	}}

	client := New(hclog.NewNullLogger(), cfg)
	if client.RetryCount != 2 {
		t.Fatalf("expected retry count 2, got %d", client.RetryCount)
	}
	if client.GetClient().Timeout != 7*time.Second {
		t.Fatalf("expected timeout 7s, got %s", client.GetClient().Timeout)
	}
}

func TestNewDefaults(t *testing.T) {
	client := New(nil, nil)
	if client.RetryCount != config.DefaultRestySettings().RetryCount {
		t.Fatalf("expected default retry count, got %d", client.RetryCount)
	}
}

func TestNewSendsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := New(hclog.NewNullLogger(), &config.Config{}).R().Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode() != http.StatusNoContent {
		t.Fatalf("unexpected status %d", resp.StatusCode())
	}
}
