package supabase

import (
	"errors"
	"strings"
)

// Kind classifies remote failures so business logic never matches on
// upstream message wording directly. The substring tables below are
// best-effort compatibility shims for upstream services that do not expose
// stable machine-readable codes for every condition.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNetwork covers transport failures and transient remote errors.
	KindNetwork
	// KindInvalidCredentials is a rejected email/password pair.
	KindInvalidCredentials
	// KindSessionMissing means the remote no longer recognizes the session.
	KindSessionMissing
	// KindNotFound is the designated "no matching row" condition.
	KindNotFound
	// KindConflict is a uniqueness violation.
	KindConflict
	// KindSchemaMismatch is a reference to a column that does not exist.
	KindSchemaMismatch
)

// Error is a classified remote-service failure.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "supabase: remote error"
}

// PostgREST error codes for the designated structural conditions.
const (
	codeNoRows          = "PGRST116"
	codeUniqueViolation = "23505"
	codeUndefinedColumn = "42703"
)

var sessionMissingPhrases = []string{
	"Auth session missing",
	"session_not_found",
	"Invalid Refresh Token",
	"refresh_token_not_found",
	"invalid_grant",
}

var transientPhrases = []string{"network", "timeout", "connection", "fetch"}

func classify(status int, code, message string) Kind {
	switch code {
	case codeNoRows:
		return KindNotFound
	case codeUniqueViolation:
		return KindConflict
	case codeUndefinedColumn:
		return KindSchemaMismatch
	}
	for _, phrase := range sessionMissingPhrases {
		if strings.Contains(message, phrase) || code == phrase {
			return KindSessionMissing
		}
	}
	if strings.Contains(message, "Invalid login credentials") {
		return KindInvalidCredentials
	}
	lower := strings.ToLower(message)
	for _, phrase := range transientPhrases {
		if strings.Contains(lower, phrase) {
			return KindNetwork
		}
	}
	if status == 404 {
		return KindNotFound
	}
	if status == 409 {
		return KindConflict
	}
	return KindUnknown
}

// KindOf extracts the classification from err, unwrapping as needed.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is worth a bounded retry.
func IsRetryable(err error) bool {
	return KindOf(err) == KindNetwork
}

// IsSessionMissing reports whether err means the session is gone remotely.
func IsSessionMissing(err error) bool {
	return KindOf(err) == KindSessionMissing
}

// IsNotFound reports the designated no-matching-row condition.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
