package proxypool

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mumumusf/MonsterKombat/proxypool/model"
)

// ErrMalformedProxy is wrapped by every Parse failure.
var ErrMalformedProxy = errors.New("malformed proxy entry")

// Parse converts a raw entry into an Endpoint. Accepted forms:
//
//	scheme://[user:pass@]host:port   (scheme: http, https, socks5)
//	host:port:user:pass
//	host:port
//
// Errors carry only the redacted entry.
func Parse(entry string) (*model.Endpoint, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil, fmt.Errorf("%w: empty entry", ErrMalformedProxy)
	}
	if strings.Contains(entry, "://") {
		return parseURL(entry)
	}
	return parseColon(entry)
}

func parseURL(entry string) (*model.Endpoint, error) {
	u, err := url.Parse(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: invalid url", ErrMalformedProxy, Redact(entry))
	}

	protocol := strings.ToLower(u.Scheme)
	switch protocol {
	case model.ProtocolHTTP, model.ProtocolHTTPS, model.ProtocolSOCKS5:
	default:
		return nil, fmt.Errorf("%w: %s: unsupported protocol %q", ErrMalformedProxy, Redact(entry), u.Scheme)
	}

	ep := &model.Endpoint{Protocol: protocol, Host: u.Hostname()}
	if ep.Port, err = parsePort(u.Port()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedProxy, Redact(entry), err)
	}
	if ep.Host == "" {
		return nil, fmt.Errorf("%w: %s: missing host", ErrMalformedProxy, Redact(entry))
	}
	if u.User != nil {
		password, hasPassword := u.User.Password()
		if u.User.Username() != "" && hasPassword && password != "" {
			ep.Username = u.User.Username()
			ep.Password = password
		}
	}
	return ep, nil
}

func parseColon(entry string) (*model.Endpoint, error) {
	parts := strings.Split(entry, ":")
	if len(parts) != 2 && len(parts) != 4 {
		return nil, fmt.Errorf("%w: %s: expected host:port or host:port:user:pass", ErrMalformedProxy, Redact(entry))
	}

	ep := &model.Endpoint{Protocol: model.ProtocolHTTP, Host: strings.TrimSpace(parts[0])}
	if ep.Host == "" {
		return nil, fmt.Errorf("%w: %s: missing host", ErrMalformedProxy, Redact(entry))
	}
	port, err := parsePort(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedProxy, Redact(entry), err)
	}
	ep.Port = port

	if len(parts) == 4 && parts[2] != "" && parts[3] != "" {
		ep.Username = parts[2]
		ep.Password = parts[3]
	}
	return ep, nil
}

func parsePort(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("missing port")
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", raw)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}
