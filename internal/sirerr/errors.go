// Package sirerr defines the error kinds shared across the control node and
// sira-client, per the error handling design: ConfigError, SignatureError,
// TransportError, ActionError and InternalError all carry enough context to
// name the offending file, host and action ordinal in a one-line cause.
package sirerr

import "fmt"

// ConfigError covers invalid YAML, missing includes, empty host lists, bad
// variable names and missing required fields. Surfaced before any action
// runs.
type ConfigError struct {
	File  string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("config error: %v", e.Cause)
	}
	return fmt.Sprintf("config error in %s: %v", e.File, e.Cause)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// SignatureError covers an absent signature when required, an invalid
// signature, or a missing allowed-signers file.
type SignatureError struct {
	Subject string // file path or "action payload"
	Cause   error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature error for %s: %v", e.Subject, e.Cause)
}

func (e *SignatureError) Unwrap() error { return e.Cause }

// TransportError covers an unreachable host at connect time, or a mid-stream
// SSH session drop.
type TransportError struct {
	Host  string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on host %s: %v", e.Host, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ActionError covers a non-zero exit from sira-client or one of the
// subprocesses it spawned.
type ActionError struct {
	Host    string
	Ordinal int
	Cause   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action error on host %s (action #%d): %v", e.Host, e.Ordinal, e.Cause)
}

func (e *ActionError) Unwrap() error { return e.Cause }

// InternalError covers I/O errors on the control node while signing or
// serializing, i.e. failures that are not attributable to any one host.
type InternalError struct {
	Context string
	Cause   error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error (%s): %v", e.Context, e.Cause)
}

func (e *InternalError) Unwrap() error { return e.Cause }
