package proxypool

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"github.com/mumumusf/MonsterKombat/proxypool/model"
)

const dialTimeout = 10 * time.Second

// TransportConfig holds the dial parameters for one endpoint. A nil
// *TransportConfig means a direct connection.
type TransportConfig struct {
	Endpoint *model.Endpoint

	// ProxyURL is set for http/https proxies, credentials in its userinfo.
	ProxyURL *url.URL
	// Dialer is set for socks5 proxies.
	Dialer proxy.ContextDialer
}

// BuildTransportConfig maps an endpoint to transport parameters.
// A nil endpoint yields a nil config.
func BuildTransportConfig(ep *model.Endpoint) (*TransportConfig, error) {
	if ep == nil {
		return nil, nil
	}

	tc := &TransportConfig{Endpoint: ep}
	switch ep.Protocol {
	case model.ProtocolHTTP, model.ProtocolHTTPS:
		u := &url.URL{Scheme: ep.Protocol, Host: ep.Addr()}
		if ep.HasAuth() {
			u.User = url.UserPassword(ep.Username, ep.Password)
		}
		tc.ProxyURL = u
	case model.ProtocolSOCKS5:
		var auth *proxy.Auth
		if ep.HasAuth() {
			auth = &proxy.Auth{User: ep.Username, Password: ep.Password}
		}
		d, err := proxy.SOCKS5("tcp", ep.Addr(), auth, &net.Dialer{Timeout: dialTimeout})
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", ep, err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", ep)
		}
		tc.Dialer = cd
	default:
		return nil, fmt.Errorf("%w: unsupported protocol %q", ErrMalformedProxy, ep.Protocol)
	}
	return tc, nil
}

// Key identifies the endpoint, used to cache one http.Client per proxy.
// It is not meant for logging.
func (tc *TransportConfig) Key() string {
	if tc == nil || tc.Endpoint == nil {
		return "direct"
	}
	return tc.Endpoint.Protocol + "://" + tc.Endpoint.Username + ":" + tc.Endpoint.Password + "@" + tc.Endpoint.Addr()
}

// String is the log-safe form.
func (tc *TransportConfig) String() string {
	if tc == nil || tc.Endpoint == nil {
		return "direct"
	}
	return tc.Endpoint.String()
}

// NewTransport builds an http.Transport dialing through the configured proxy.
// Environment proxy variables are ignored so "direct" really is direct.
func (tc *TransportConfig) NewTransport(timeout time.Duration) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}
	t := &http.Transport{
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout / 2,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if tc == nil {
		return t
	}
	if tc.ProxyURL != nil {
		t.Proxy = http.ProxyURL(tc.ProxyURL)
	}
	if tc.Dialer != nil {
		t.DialContext = tc.Dialer.DialContext
	}
	return t
}
