//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package apperror defines the typed error taxonomy shared by the
// retrieval, generation, and orchestration layers.
package apperror

import "errors"

// Code identifies the class of failure, matching the taxonomy in the
// service specification.
type Code string

const (
	CodeUnknownCollection    Code = "unknown_collection"
	CodeAuthMissing          Code = "auth_missing"
	CodeAuthInvalid          Code = "auth_invalid"
	CodeRetrievalPartial     Code = "retrieval_partial"
	CodeRetrievalUnavailable Code = "retrieval_unavailable"
	CodeEmbeddingFailure     Code = "embedding_failure"
	CodeLLMFailure           Code = "llm_failure"
	CodeDeadlineExceeded     Code = "deadline_exceeded"
	CodeMalformedRequest     Code = "malformed_request"
	CodeFileserverFailure    Code = "fileserver_failure"
)

// Error is a typed application error carrying the code the HTTP layer (for
// pre-stream failures) or the stream layer (for in-band failures) needs to
// decide how to surface it.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an *Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an *Error with the given code, message, and underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the Code from err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
