//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package auth parses the bearer-token allowlist ("tok:uid:name,...") and
// resolves incoming Authorization headers against it.
package auth

import (
	"strings"
)

// User is the record a bearer token maps to.
type User struct {
	ID   string
	Name string
}

// Registry is a read-only, in-memory map of bearer token to user record.
// It is loaded once at startup from configuration and never mutated.
type Registry struct {
	tokens map[string]User
}

// ParseTokens parses the "tok:uid:name,tok2:uid2:name2" configuration
// format into a Registry.
func ParseTokens(spec string) *Registry {
	tokens := make(map[string]User)

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			continue
		}
		tok, uid, name := parts[0], parts[1], parts[2]
		if tok == "" {
			continue
		}
		tokens[tok] = User{ID: uid, Name: name}
	}

	return &Registry{tokens: tokens}
}

// Resolve looks up the user for a raw "Authorization" header value. It
// returns ok=false if the header is missing the "Bearer " prefix or the
// token is not registered.
func (r *Registry) Resolve(authorizationHeader string) (User, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorizationHeader, prefix) {
		return User{}, false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorizationHeader, prefix))
	if token == "" {
		return User{}, false
	}
	u, ok := r.tokens[token]
	return u, ok
}

// Empty reports whether the registry has no tokens, e.g. when the
// deployment has no auth configured. Callers may choose to treat an empty
// registry as "accept any token" or "reject all requests" depending on
// their security posture.
func (r *Registry) Empty() bool {
	return len(r.tokens) == 0
}
