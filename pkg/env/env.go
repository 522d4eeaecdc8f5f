package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Instance names the running process for log fields so lock holders and
// publishers can be told apart: DYNO, then HOSTNAME, then the OS hostname.
func Instance() string {
	for _, key := range []string{"DYNO", "HOSTNAME"} {
		if val := Get(key, ""); val != "" {
			return val
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
