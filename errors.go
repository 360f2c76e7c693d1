package threatscore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"

	"github.com/zero-day-ai/threatscore/score"
)

// Sentinels for errors.Is checks.
var (
	// ErrActorNotFound means no ATT&CK group matches the actor ID, name or alias.
	ErrActorNotFound = errors.New("actor not found")

	// ErrInsufficientData marks a composite score left undefined because a
	// component had no data. It is the score package sentinel.
	ErrInsufficientData = score.ErrInsufficientData

	// ErrDatasetUnavailable means a reference dataset could not be read.
	ErrDatasetUnavailable = errors.New("dataset unavailable")

	// ErrInvalidConfig means the configuration or a flag value is unusable.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidTechnique means a technique ID is not of the form T1234 or T1234.001.
	ErrInvalidTechnique = errors.New("invalid technique")
)

// Error kinds.
const (
	// KindNotFound marks an unknown actor.
	KindNotFound = "not_found"

	// KindValidation marks malformed caller input such as a technique list.
	KindValidation = "validation"

	// KindConfiguration marks an unusable config file or flag.
	KindConfiguration = "configuration"

	// KindInsufficientData marks an undefined score. The profile is still returned.
	KindInsufficientData = "insufficient_data"

	// KindInternal marks failures not caused by the caller.
	KindInternal = "internal"
)

// Error records the failing operation and a failure kind around an underlying
// error. errors.Is and errors.As see through it:
//
//	errors.Is(err, ErrActorNotFound)
//	errors.Is(err, &Error{Kind: KindNotFound})
//	errors.As(err, new(*score.InsufficientDataError))
type Error struct {
	Op      string // e.g. "Profiler.Profile"
	Kind    string
	Err     error
	Context map[string]any // actor, query and similar identifiers
}

// Error formats the error as "threatscore: <op> (<kind>): <cause>".
func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("threatscore: %s: %s", e.Op, e.Kind)
	case len(e.Context) == 0:
		return fmt.Sprintf("threatscore: %s (%s): %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("threatscore: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports a match against an *Error target with the same Kind, and the same
// Op when the target names one. Other targets are matched against Err.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok && t.Kind != "" && t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op) {
		return true
	}
	return target != nil && errors.Is(e.Err, target)
}

// WithContext returns a copy carrying the union of both context maps. The
// receiver is left unchanged.
func (e *Error) WithContext(ctx map[string]any) *Error {
	c := *e
	c.Context = make(map[string]any, len(e.Context)+len(ctx))
	maps.Copy(c.Context, e.Context)
	maps.Copy(c.Context, ctx)
	return &c
}

func newError(kind, op string, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewNotFoundError wraps err as a KindNotFound error of op.
func NewNotFoundError(op string, err error) *Error {
	return newError(KindNotFound, op, err)
}

// NewValidationError wraps err as a KindValidation error of op.
func NewValidationError(op string, err error) *Error {
	return newError(KindValidation, op, err)
}

// NewConfigurationError wraps err as a KindConfiguration error of op.
func NewConfigurationError(op string, err error) *Error {
	return newError(KindConfiguration, op, err)
}

// NewInsufficientDataError wraps err as a KindInsufficientData error of op.
func NewInsufficientDataError(op string, err error) *Error {
	return newError(KindInsufficientData, op, err)
}

// NewInternalError wraps err as a KindInternal error of op.
func NewInternalError(op string, err error) *Error {
	return newError(KindInternal, op, err)
}

// CloseWithLog closes c and logs a failure at warn level. A nil logger means
// slog.Default().
//
//	defer threatscore.CloseWithLog(cache, logger, "profile cache")
func CloseWithLog(c io.Closer, logger *slog.Logger, name string) {
	if c == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := c.Close(); err != nil {
		logger.Warn("failed to close resource", "resource", name, "error", err)
	}
}
