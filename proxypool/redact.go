package proxypool

import (
	"strconv"
	"strings"
)

// CredentialMask replaces password segments in logged proxy identifiers.
const CredentialMask = "****"

// Redact masks the password of a raw proxy entry. The username, host and port
// stay readable so operators can still tell entries apart.
//
// A host:port:user:pass entry is masked as such even when its password
// contains '@'.
func Redact(entry string) string {
	if !strings.Contains(entry, "://") {
		parts := strings.Split(entry, ":")
		if len(parts) >= 4 && (isPort(parts[1]) || !strings.Contains(entry, "@")) {
			return strings.Join(parts[:3], ":") + ":" + CredentialMask
		}
	}

	at := strings.LastIndex(entry, "@")
	if at < 0 {
		return entry
	}
	head, tail := entry[:at], entry[at:]
	start := 0
	if i := strings.Index(head, "://"); i >= 0 {
		start = i + len("://")
	}
	user := head[start:]
	if colon := strings.Index(user, ":"); colon >= 0 {
		user = user[:colon]
	}
	return head[:start] + user + ":" + CredentialMask + tail
}

func isPort(s string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil
}
