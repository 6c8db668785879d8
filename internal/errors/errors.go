// Package errors provides structured error types for dht.
// It implements error classification, wrapping, and recovery detection.
package errors

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind represents the category of an error.
type Kind uint8

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindSpawn indicates a command could not be started at all.
	KindSpawn
	// KindConfig indicates a configuration error.
	KindConfig
	// KindTool indicates a wrapped external tool error.
	KindTool
	// KindDetect indicates a project detection error.
	KindDetect
	// KindSnapshot indicates an environment snapshot error.
	KindSnapshot
	// KindGit indicates a git operation error.
	KindGit
	// KindPlugin indicates a tool-provider plugin error.
	KindPlugin
	// KindIO indicates a file I/O error.
	KindIO
	// KindValidation indicates a validation error.
	KindValidation
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindTimeout indicates a timeout error.
	KindTimeout
	// KindCanceled indicates the operation was canceled.
	KindCanceled
	// KindInternal indicates an internal error.
	KindInternal
)

// String returns a human-readable string for the error kind.
func (k Kind) String() string {
	switch k {
	case KindSpawn:
		return "spawn"
	case KindConfig:
		return "configuration"
	case KindTool:
		return "tool"
	case KindDetect:
		return "detection"
	case KindSnapshot:
		return "snapshot"
	case KindGit:
		return "git"
	case KindPlugin:
		return "plugin"
	case KindIO:
		return "io"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the standard error type for dht.
type Error struct {
	// Kind is the category of the error.
	Kind Kind
	// Op is the operation being performed when the error occurred.
	Op string
	// Message is a human-readable error message.
	Message string
	// Err is the underlying error.
	Err error
	// Recoverable indicates if the error can be recovered from.
	Recoverable bool
	// Details contains additional context about the error.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches this error.
// For *Error types, it checks if both the Kind and Op match.
// For sentinel errors (errors without Op), only Kind is compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op
}

// WithDetail adds a single detail to the error and returns the modified error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Newf creates a new Error with the given kind and formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, kind Kind, op string, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, kind Kind, op string, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// GetKind returns the Kind of an error.
// If the error is not an *Error, it returns KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRecoverable returns true if the error is recoverable.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return false
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// Common error constructors for frequently used error types.

// Spawn creates a spawn error: the command never ran.
func Spawn(op, message string) *Error {
	return &Error{
		Kind:    KindSpawn,
		Op:      op,
		Message: message,
	}
}

// SpawnWrap wraps an error as a spawn error.
func SpawnWrap(err error, op, message string) *Error {
	return Wrap(err, KindSpawn, op, message)
}

// Config creates a configuration error.
func Config(op, message string) *Error {
	return &Error{
		Kind:    KindConfig,
		Op:      op,
		Message: message,
	}
}

// ConfigWrap wraps an error as a configuration error.
func ConfigWrap(err error, op, message string) *Error {
	return Wrap(err, KindConfig, op, message)
}

// Tool creates a wrapped-tool error.
func Tool(op, message string) *Error {
	return &Error{
		Kind:    KindTool,
		Op:      op,
		Message: message,
	}
}

// ToolWrap wraps an error as a wrapped-tool error.
func ToolWrap(err error, op, message string) *Error {
	return Wrap(err, KindTool, op, message)
}

// Detect creates a project detection error.
func Detect(op, message string) *Error {
	return &Error{
		Kind:    KindDetect,
		Op:      op,
		Message: message,
	}
}

// Snapshot creates a snapshot error.
func Snapshot(op, message string) *Error {
	return &Error{
		Kind:    KindSnapshot,
		Op:      op,
		Message: message,
	}
}

// SnapshotWrap wraps an error as a snapshot error.
func SnapshotWrap(err error, op, message string) *Error {
	return Wrap(err, KindSnapshot, op, message)
}

// Git creates a git operation error.
func Git(op, message string) *Error {
	return &Error{
		Kind:    KindGit,
		Op:      op,
		Message: message,
	}
}

// GitWrap wraps an error as a git error.
func GitWrap(err error, op, message string) *Error {
	return Wrap(err, KindGit, op, message)
}

// Plugin creates a plugin error.
func Plugin(op, message string) *Error {
	return &Error{
		Kind:    KindPlugin,
		Op:      op,
		Message: message,
	}
}

// PluginWrap wraps an error as a plugin error.
func PluginWrap(err error, op, message string) *Error {
	return Wrap(err, KindPlugin, op, message)
}

// Validation creates a validation error.
func Validation(op, message string) *Error {
	return &Error{
		Kind:        KindValidation,
		Op:          op,
		Message:     message,
		Recoverable: true,
	}
}

// ValidationWrap wraps an error as a validation error.
func ValidationWrap(err error, op, message string) *Error {
	e := Wrap(err, KindValidation, op, message)
	e.Recoverable = true
	return e
}

// NotFound creates a not found error.
func NotFound(op, message string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Op:      op,
		Message: message,
	}
}

// IO creates an I/O error.
func IO(op, message string) *Error {
	return &Error{
		Kind:    KindIO,
		Op:      op,
		Message: message,
	}
}

// IOWrap wraps an error as an I/O error.
func IOWrap(err error, op, message string) *Error {
	return Wrap(err, KindIO, op, message)
}

// Timeout creates a timeout error.
func Timeout(op, message string) *Error {
	return &Error{
		Kind:        KindTimeout,
		Op:          op,
		Message:     message,
		Recoverable: true,
	}
}

// TimeoutWrap wraps an error as a timeout error.
func TimeoutWrap(err error, op, message string) *Error {
	e := Wrap(err, KindTimeout, op, message)
	e.Recoverable = true
	return e
}

// Internal creates an internal error.
func Internal(op, message string) *Error {
	return &Error{
		Kind:    KindInternal,
		Op:      op,
		Message: message,
	}
}

// InternalWrap wraps an error as an internal error.
func InternalWrap(err error, op, message string) *Error {
	return Wrap(err, KindInternal, op, message)
}

// Sensitive data redaction patterns.
// These match tokens that commonly leak through tool output, environment
// captures, and error messages (package index credentials, VCS tokens,
// basic-auth URLs).
var sensitivePatterns = []*regexp.Regexp{
	// GitHub tokens: ghp_..., gho_..., ghs_..., ghr_...
	regexp.MustCompile(`\bgh[posh]_[a-zA-Z0-9]{36,}\b`),
	// PyPI upload tokens
	regexp.MustCompile(`\bpypi-[a-zA-Z0-9_-]{20,}\b`),
	// npm automation tokens
	regexp.MustCompile(`\bnpm_[a-zA-Z0-9]{36,}\b`),
	// Generic bearer tokens
	regexp.MustCompile(`\bBearer\s+[a-zA-Z0-9_.-]{20,}\b`),
}

// basicAuthPattern matches user:password@ credentials embedded in URLs.
// It gets its own replacement so the URL stays readable.
var basicAuthPattern = regexp.MustCompile(`://[^:/@\s]+:[^@\s]+@`)

// RedactSensitive removes sensitive information from a string.
// It redacts tokens and embedded credentials that should not appear in
// logs or snapshot files.
func RedactSensitive(s string) string {
	result := s
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return basicAuthPattern.ReplaceAllString(result, "://[REDACTED]@")
}

// RedactError creates a new error with sensitive data redacted from its
// message. If the error is nil, returns nil.
func RedactError(err error) error {
	if err == nil {
		return nil
	}
	redacted := RedactSensitive(err.Error())
	if redacted == err.Error() {
		return err
	}
	return fmt.Errorf("%s", redacted)
}
