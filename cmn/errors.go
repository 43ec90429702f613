// Package cmn provides ambient facilities shared across the module:
// typed errors, configuration loading, and small validation helpers.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"fmt"

	"github.com/pkg/errors"
)

// ParseError wraps malformed-input failures: bad ETF, bad manifest encoding.
type ParseError struct {
	Ctx string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse error (%s): %v", e.Ctx, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

func NewParseError(ctx string, err error) *ParseError {
	return &ParseError{Ctx: ctx, Err: err}
}

func NewParseErrorf(ctx, format string, args ...any) *ParseError {
	return &ParseError{Ctx: ctx, Err: errors.Errorf(format, args...)}
}

// IntegrityError wraps CRC, magic/version, and framing mismatches.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string { return e.Msg }

func NewIntegrityError(format string, args ...any) *IntegrityError {
	return &IntegrityError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that a manifest (or other expected object) is
// absent in the backing store for a given tag or path.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func NewNotFoundError(format string, args ...any) *NotFoundError {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// ConfigError reports a missing or invalid configuration key, a malformed
// tag, or a malformed URL.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config error (%s): %v", e.Key, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{Key: key, Err: err}
}

func NewConfigErrorf(key, format string, args ...any) *ConfigError {
	return &ConfigError{Key: key, Err: errors.Errorf(format, args...)}
}

// IOError wraps disk/network propagation failures that don't fit one of
// the more specific kinds above.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

func NewIOError(op string, err error) *IOError {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Err: err}
}

// IsNotFound reports whether err (or anything it wraps) is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
