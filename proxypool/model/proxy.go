package model

import (
	"net"
	"strconv"
)

// Supported proxy protocols.
const (
	ProtocolHTTP   = "http"
	ProtocolHTTPS  = "https"
	ProtocolSOCKS5 = "socks5"
)

// Endpoint 是一个解析后的出站代理。
// Username/Password 只有在两者都存在时才会被设置。
type Endpoint struct {
	Protocol string `json:"protocol"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"-"`
}

// Addr returns host:port suitable for dialing.
func (e *Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// HasAuth reports whether basic credentials are attached.
func (e *Endpoint) HasAuth() bool {
	return e.Username != "" && e.Password != ""
}

// String renders the endpoint for logs. The password is never included.
func (e *Endpoint) String() string {
	if e.HasAuth() {
		return e.Protocol + "://" + e.Username + ":****@" + e.Addr()
	}
	return e.Protocol + "://" + e.Addr()
}
