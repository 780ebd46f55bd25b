package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Pipeline error taxonomy.
var (
	// ErrContentUnavailable: no reader strategy produced text for a file.
	ErrContentUnavailable = errors.New("content unavailable")
	// ErrClassificationAmbiguous is informational; classification always yields a category.
	ErrClassificationAmbiguous = errors.New("classification ambiguous")
	// ErrOracleFailure: transport error, timeout, or no locatable JSON in the reply.
	ErrOracleFailure = errors.New("oracle failure")
	// ErrSchemaValidation: parseable JSON that does not satisfy the section schema.
	ErrSchemaValidation = errors.New("schema validation failure")
	// ErrCacheCorruption: a cached value could not be decoded; treated as a miss.
	ErrCacheCorruption = errors.New("cache corruption")
	// ErrBatchItemExhausted: a batch item failed every retry attempt.
	ErrBatchItemExhausted = errors.New("batch item exhausted")
)

// ErrorKind is the short taxonomy label recorded alongside failures.
type ErrorKind string

const (
	KindContentUnavailable      ErrorKind = "ContentUnavailable"
	KindClassificationAmbiguous ErrorKind = "ClassificationAmbiguous"
	KindOracleFailure           ErrorKind = "OracleFailure"
	KindSchemaValidation        ErrorKind = "SchemaValidationFailure"
	KindCacheCorruption         ErrorKind = "CacheCorruption"
	KindBatchItemExhausted      ErrorKind = "BatchItemExhausted"
	KindCanceled                ErrorKind = "Canceled"
	KindUnknown                 ErrorKind = "Unknown"
)

var kindOrder = []struct {
	err  error
	kind ErrorKind
}{
	{ErrContentUnavailable, KindContentUnavailable},
	{ErrOracleFailure, KindOracleFailure},
	{ErrSchemaValidation, KindSchemaValidation},
	{ErrCacheCorruption, KindCacheCorruption},
	{ErrClassificationAmbiguous, KindClassificationAmbiguous},
}

// Kind maps err onto the pipeline taxonomy. BatchItemExhausted wraps the
// last attempt's error, so the underlying cause wins when one is present.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	if errors.Is(err, ErrBatchItemExhausted) {
		return KindBatchItemExhausted
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindUnknown
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ContentUnavailable builds the error returned when every reader strategy failed for path.
func ContentUnavailable(path string, cause error) error {
	return NewAppError("CONTENT_UNAVAILABLE", path, Tag(ErrContentUnavailable, cause))
}

// OracleFailure wraps a transport or parse failure at the oracle boundary.
func OracleFailure(message string, cause error) error {
	return NewAppError("ORACLE_FAILURE", message, Tag(ErrOracleFailure, cause))
}

// SchemaValidationFailure wraps a schema mismatch for the named section.
func SchemaValidationFailure(section string, cause error) error {
	return NewAppError("SCHEMA_VALIDATION", section, Tag(ErrSchemaValidation, cause))
}

// BatchItemExhausted marks a batch item whose every attempt failed; cause is the last attempt's error.
func BatchItemExhausted(file string, attempts int, cause error) error {
	return NewAppError("BATCH_ITEM_EXHAUSTED", fmt.Sprintf("%s: %d attempts", file, attempts), Tag(ErrBatchItemExhausted, cause))
}

// CacheCorruption wraps an undecodable cache entry.
func CacheCorruption(key string, cause error) error {
	return NewAppError("CACHE_CORRUPTION", key, Tag(ErrCacheCorruption, cause))
}

// Tag wraps cause under sentinel so errors.Is matches both. The message
// stays on one line: "sentinel: cause".
func Tag(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

type joined []error

func (j joined) Error() string {
	msgs := make([]string, len(j))
	for i, err := range j {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (j joined) Unwrap() []error { return j }

// JoinErrors is errors.Join with the messages separated by "; " instead
// of newlines. Nil errors are dropped; it returns nil when none remain.
func JoinErrors(errs ...error) error {
	var out joined
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func NotFoundErrorf(format string, args ...interface{}) error {
	return NotFoundError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}
