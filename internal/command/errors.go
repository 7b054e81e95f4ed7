package command

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload indicates a command payload that could not be decoded.
	ErrMalformedPayload = errors.New("malformed command payload")
	// ErrUnknownVariantTag indicates a tag with no registered command.
	ErrUnknownVariantTag = errors.New("unknown command tag")
	// ErrUnhandledFormatVersion indicates a save form version this build cannot read.
	ErrUnhandledFormatVersion = errors.New("unhandled command format version")
	// ErrScriptTooLong indicates a LuaScript over MaxScriptName or MaxScriptSource.
	ErrScriptTooLong = errors.New("script too long")
)

// PayloadError wraps a decode failure with the command and field it hit.
type PayloadError struct {
	Tag   Tag
	Field string
	Err   error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%s: malformed %s: %v", e.Tag, e.Field, e.Err)
}

func (e *PayloadError) Unwrap() []error {
	return []error{ErrMalformedPayload, e.Err}
}

// VersionError reports a save form version outside the supported range.
type VersionError struct {
	Tag      Tag
	Observed uint16
	Min, Max uint16
}

func (e *VersionError) Error() string {
	if e.Min == e.Max {
		return fmt.Sprintf("%s: unhandled format version %d (supported %d)", e.Tag, e.Observed, e.Max)
	}
	return fmt.Sprintf("%s: unhandled format version %d (supported %d..%d)", e.Tag, e.Observed, e.Min, e.Max)
}

func (e *VersionError) Unwrap() error { return ErrUnhandledFormatVersion }

// TagError reports a tag the factory does not know.
type TagError struct {
	Tag Tag
}

func (e *TagError) Error() string {
	return fmt.Sprintf("command tag %d: not registered", uint16(e.Tag))
}

func (e *TagError) Unwrap() error { return ErrUnknownVariantTag }

func malformed(t Tag, field string, err error) error {
	return &PayloadError{Tag: t, Field: field, Err: err}
}
