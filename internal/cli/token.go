package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/jwt"

	"github.com/google/uuid"
)

// GenerateSessionToken mints a browser cookie value for curl-driven testing.
// An empty browserID gets a fresh one. Pages are still opened with GET /, which answers
// with the X-Page-ID to send on later calls.
//
// Keep this package dev/internal only. Do not call it from production code paths.
func GenerateSessionToken(secret, browserID string, ttl time.Duration) (string, jwt.Claims, error) {
	if strings.TrimSpace(secret) == "" {
		return "", jwt.Claims{}, fmt.Errorf("secret is required")
	}
	// fresh browser when none is given
	if strings.TrimSpace(browserID) == "" {
		browserID = uuid.NewString()
	}

	mgr := jwt.NewManager(secret, ttl)

	token, claims, err := mgr.IssueSessionToken(browserID)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("issue token: %w", err)
	}

	return token, *claims, nil
}
