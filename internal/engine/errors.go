package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies engine errors.
type Kind int

// Error kinds
const (
	KindValidation Kind = iota + 1
	KindNotFound
	// KindStage is a validation failure caused by the workflow stage or
	// the edit lock.
	KindStage
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStage:
		return "stage"
	case KindPersistence:
		return "persistence"
	}
	return "unknown"
}

// Error is returned by every intent that fails.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// Sentinels for errors.Is. A stage error also matches ErrValidation.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrStage       = &Error{Kind: KindStage}
	ErrPersistence = &Error{Kind: KindPersistence}
)

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Msg != "" {
		return false
	}
	if t.Kind == KindValidation && e.Kind == KindStage {
		return true
	}
	return t.Kind == e.Kind
}

func validationf(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func stageErr(op, reason string) *Error {
	return &Error{Kind: KindStage, Op: op, Msg: reason}
}

func wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err, or 0 when err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Result is the outcome of an intent in the shape JSON callers expect:
// {"success": true, ...extra} or {"success": false, "error": "..."}.
type Result struct {
	Success bool
	Error   string
	Extra   map[string]any
}

// ResultOf builds a Result from an intent's error and extra fields.
func ResultOf(err error, extra map[string]any) Result {
	if err != nil {
		return Result{Error: err.Error(), Extra: extra}
	}
	return Result{Success: true, Extra: extra}
}

// Get returns an extra field.
func (r Result) Get(key string) any {
	return r.Extra[key]
}

// MarshalJSON flattens Extra next to success and error.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+2)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["success"] = r.Success
	if r.Error != "" {
		out["error"] = r.Error
	}
	return json.Marshal(out)
}
