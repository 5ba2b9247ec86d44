// Package transport builds the HTTP client used by odata-fetch.
package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Options configures NewHTTPClient.
type Options struct {
	Timeout time.Duration
	// ProxyURL is an http://, https:// or socks5:// proxy. Empty means
	// the environment proxy settings apply.
	ProxyURL string
	// OAuth enables the client credentials flow when non-nil.
	OAuth *OAuthOptions
}

// OAuthOptions holds OAuth2 client credentials.
type OAuthOptions struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// NewHTTPClient returns a client honoring opts. ctx bounds token fetches
// made by the OAuth2 transport.
func NewHTTPClient(ctx context.Context, opts Options) (*http.Client, error) {
	transport, err := newTransport(opts.ProxyURL)
	if err != nil {
		return nil, err
	}

	base := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}
	if opts.OAuth == nil {
		return base, nil
	}

	cc := clientcredentials.Config{
		ClientID:     opts.OAuth.ClientID,
		ClientSecret: opts.OAuth.ClientSecret,
		TokenURL:     opts.OAuth.TokenURL,
		Scopes:       opts.OAuth.Scopes,
	}

	// Token requests go through the same proxy and timeout.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := cc.Client(ctx)
	client.Timeout = opts.Timeout
	return client, nil
}

func newTransport(proxyURL string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL == "" {
		return transport, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}

	switch u.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if u.User != nil {
			password, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return transport, nil
}
