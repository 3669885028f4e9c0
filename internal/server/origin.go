// Package server normalizes and validates HTTP origins for WebSocket
// requests to enforce configured access control.
package server

import (
	"net/http"
	"net/url"
	"strings"
)

type originChecker struct {
	allowed  map[string]struct{}
	allowAll bool
	logger   Logger
}

func newOriginChecker(origins []string, logger Logger) *originChecker {
	if logger == nil {
		logger = defaultLogger{}
	}

	checker := &originChecker{
		allowed: make(map[string]struct{}, len(origins)),
		logger:  logger,
	}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			checker.allowAll = true
			continue
		}

		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			logger.Logf("Ignoring invalid origin in configuration: %q", origin)
			continue
		}

		checker.allowed[normalized] = struct{}{}
	}

	return checker
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	normalized := strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host)
	return normalized, true
}

func (c *originChecker) isOriginAllowed(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		return false
	}

	normalized, ok := normalizeOrigin(originHeader)
	if !ok {
		return false
	}

	if c.allowAll {
		return true
	}

	_, exists := c.allowed[normalized]
	return exists
}

func (c *originChecker) check(r *http.Request) bool {
	if c.isOriginAllowed(r) {
		return true
	}

	c.logger.Logf("Blocked WebSocket connection from disallowed origin: %q", r.Header.Get("Origin"))
	return false
}
