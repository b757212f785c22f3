// Package store persists the client session (tokens and cached profile)
// across restarts. Values are plain strings; nothing is encrypted and nothing
// expires.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Keys written by the session layer.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// SessionKeys lists every key that makes up a persisted session.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("store: key not found")

// Store is a durable key-value store scoped to one API origin.
// A Set or Remove is visible to every later Get in the same process.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Clear removes every session key. It keeps going after a failure and
// returns the first error.
func Clear(ctx context.Context, s Store) error {
	var first error
	for _, key := range SessionKeys {
		if err := s.Remove(ctx, key); err != nil && first == nil {
			first = fmt.Errorf("store.Clear %s: %w", key, err)
		}
	}
	return first
}

// Origin returns scheme://host[:port] for an API base URL.
func Origin(apiURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("api url %q has no scheme or host", apiURL)
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), nil
}

// OriginSlug turns an origin into a name safe for files and key prefixes,
// e.g. "https://zohaib.no" -> "https_zohaib.no".
func OriginSlug(origin string) string {
	var b strings.Builder
	for _, r := range strings.Replace(origin, "://", "_", 1) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
