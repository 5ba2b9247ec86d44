package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewTransport_Proxy(t *testing.T) {
	tests := []struct {
		name      string
		proxyURL  string
		wantErr   bool
		wantProxy string
		wantDial  bool
	}{
		{name: "none", proxyURL: ""},
		{name: "http proxy", proxyURL: "http://proxy.local:3128", wantProxy: "http://proxy.local:3128"},
		{name: "https proxy with auth", proxyURL: "https://user:pw@proxy.local:443", wantProxy: "https://user:pw@proxy.local:443"},
		{name: "socks5", proxyURL: "socks5://127.0.0.1:1080", wantDial: true},
		{name: "socks5 with auth", proxyURL: "socks5://user:pw@127.0.0.1:1080", wantDial: true},
		{name: "unsupported scheme", proxyURL: "ftp://proxy.local", wantErr: true},
		{name: "unparsable", proxyURL: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := newTransport(tt.proxyURL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newTransport() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if tt.wantProxy != "" {
				req, _ := http.NewRequest(http.MethodGet, "https://oda.ft.dk/api/Dokument", nil)
				got, err := tr.Proxy(req)
				if err != nil {
					t.Fatalf("Proxy() error = %v", err)
				}
				if got == nil || got.String() != tt.wantProxy {
					t.Errorf("Proxy() = %v, want %s", got, tt.wantProxy)
				}
			}
			if tt.wantDial {
				if tr.DialContext == nil {
					t.Error("DialContext = nil, want SOCKS5 dialer")
				}
				if tr.Proxy != nil {
					t.Error("Proxy should be cleared for SOCKS5")
				}
			}
		})
	}
}

func TestNewHTTPClient_Timeout(t *testing.T) {
	client, err := NewHTTPClient(context.Background(), Options{Timeout: 7 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	if client.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", client.Timeout)
	}
}

func TestNewHTTPClient_InvalidProxy(t *testing.T) {
	if _, err := NewHTTPClient(context.Background(), Options{ProxyURL: "gopher://x"}); err == nil {
		t.Error("NewHTTPClient() error = nil, want unsupported scheme")
	}
}

func TestNewHTTPClient_OAuthClientCredentials(t *testing.T) {
	var tokenRequests atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("scope") != "odata.read" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-token","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	var authHeader atomic.Value
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{"d":{}}`))
	}))
	defer api.Close()

	client, err := NewHTTPClient(context.Background(), Options{
		Timeout: 5 * time.Second,
		OAuth: &OAuthOptions{
			TokenURL:     tokenServer.URL,
			ClientID:     "client",
			ClientSecret: "secret",
			Scopes:       []string{"odata.read"},
		},
	})
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		resp, err := client.Get(api.URL + "/api/Dokument(1)")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		resp.Body.Close()
	}

	if got := authHeader.Load(); got != "Bearer test-token" {
		t.Errorf("Authorization = %v, want Bearer test-token", got)
	}
	if got := tokenRequests.Load(); got != 1 {
		t.Errorf("token requests = %d, want 1 (token reused)", got)
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.Timeout)
	}
}
