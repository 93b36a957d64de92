package coincap

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crypto_dash/internal/domain"
)

// MockRoundTripper allows us to mock HTTP responses
type MockRoundTripper struct {
	Func func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Func(req)
}

func jsonResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func newMockClient(t *testing.T, fn func(req *http.Request) (*http.Response, error)) *Client {
	t.Helper()
	c := NewClient("https://api.example.test/v2", "", time.Second, nil)
	c.httpClient.Transport = &MockRoundTripper{Func: fn}
	return c
}

func TestClient_Assets(t *testing.T) {
	c := newMockClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v2/assets" {
			t.Errorf("Unexpected path: %s", req.URL.Path)
		}
		if req.Method != http.MethodGet {
			t.Errorf("Unexpected method: %s", req.Method)
		}
		if req.Header.Get("User-Agent") == "" {
			t.Error("User-Agent not set")
		}
		if req.Header.Get("Authorization") != "" {
			t.Error("Authorization must be absent without an API key")
		}
		return jsonResponse(200, `{"data":[
			{"id":"bitcoin","rank":"1","symbol":"BTC","name":"Bitcoin","priceUsd":"50000","marketCapUsd":"900000000000"},
			{"id":"ethereum","rank":"2","symbol":"ETH","name":"Ethereum","priceUsd":"3000","marketCapUsd":"350000000000"}
		],"timestamp":1704067200000}`), nil
	})

	assets, err := c.Assets(context.Background())
	if err != nil {
		t.Fatalf("Assets failed: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("Expected 2 assets, got %d", len(assets))
	}
	want := domain.Asset{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", PriceUsd: "50000", MarketCapUsd: "900000000000"}
	if assets[0] != want {
		t.Errorf("Expected %+v, got %+v", want, assets[0])
	}
}

func TestClient_AssetNullData(t *testing.T) {
	c := newMockClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v2/assets/bitcoin" {
			t.Errorf("Unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(200, `{"data":null}`), nil
	})

	asset, err := c.Asset(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("null data is not an error: %v", err)
	}
	if asset != nil {
		t.Errorf("Expected nil asset, got %+v", asset)
	}
}

func TestClient_History(t *testing.T) {
	c := newMockClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v2/assets/bitcoin/history" {
			t.Errorf("Unexpected path: %s", req.URL.Path)
		}
		if req.URL.Query().Get("interval") != "d1" {
			t.Errorf("Unexpected interval: %s", req.URL.RawQuery)
		}
		return jsonResponse(200, `{"data":[{"priceUsd":"42000.5","time":1704067200000,"date":"2024-01-01T00:00:00.000Z"}]}`), nil
	})

	points, err := c.History(context.Background(), "bitcoin", "d1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(points) != 1 || points[0].Time != 1704067200000 || points[0].PriceUsd != "42000.5" {
		t.Errorf("unexpected points: %+v", points)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		resp    func() (*http.Response, error)
		wantErr error
	}{
		{
			name:    "Transport failure",
			resp:    func() (*http.Response, error) { return nil, errors.New("connection refused") },
			wantErr: ErrNetwork,
		},
		{
			name:    "Non-2xx status",
			resp:    func() (*http.Response, error) { return jsonResponse(429, `{"error":"rate limited"}`), nil },
			wantErr: ErrNetwork,
		},
		{
			name:    "Invalid JSON",
			resp:    func() (*http.Response, error) { return jsonResponse(200, `{"data":[`), nil },
			wantErr: ErrDecode,
		},
		{
			name:    "Missing data field",
			resp:    func() (*http.Response, error) { return jsonResponse(200, `{"error":"not found"}`), nil },
			wantErr: ErrDecode,
		},
		{
			name:    "Wrong shape",
			resp:    func() (*http.Response, error) { return jsonResponse(200, `{"data":{"id":"bitcoin"}}`), nil },
			wantErr: ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMockClient(t, func(*http.Request) (*http.Response, error) { return tt.resp() })
			_, err := c.Assets(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestClient_StatusError(t *testing.T) {
	c := newMockClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(503, ``), nil
	})

	_, err := c.Assets(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 503 {
		t.Fatalf("Expected StatusError 503, got %v", err)
	}
	if errors.Is(err, ErrDecode) {
		t.Error("status error must not match ErrDecode")
	}
}

func TestClient_APIKeyHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Unexpected Authorization header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "secret", time.Second, nil)
	assets, err := c.Assets(context.Background())
	if err != nil {
		t.Fatalf("Assets failed: %v", err)
	}
	if len(assets) != 0 {
		t.Errorf("Expected empty list, got %d", len(assets))
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	c := NewClient(server.URL, "", 5*time.Second, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.Assets(ctx); !errors.Is(err, ErrNetwork) {
		t.Errorf("Expected ErrNetwork, got %v", err)
	}
}
