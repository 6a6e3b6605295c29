package convert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/talentflow/docconv/pkg/retry"
)

// Kind is the stable error classification exposed to callers, so upstream
// HTTP layers can map to a status code without string matching.
type Kind string

const (
	// KindPermanentInput marks invalid, corrupted or unsupported input.
	// Never retried; maps to a 400-class response.
	KindPermanentInput Kind = "permanent_input"

	// KindProcessing marks an unexpected failure during an otherwise valid
	// conversion, surfaced after retry exhaustion; maps to a 500-class
	// response.
	KindProcessing Kind = "processing"
)

// Error is a conversion failure with a stable kind tag.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind tag of a conversion error, defaulting to
// KindProcessing for untagged errors.
func KindOf(err error) Kind {
	var convErr *Error
	if errors.As(err, &convErr) {
		return convErr.Kind
	}
	return KindProcessing
}

// permanentMarkers identify codec failures that no amount of retrying will
// fix: the input itself is bad.
var permanentMarkers = []string{
	"invalid",
	"corrupt",
	"unsupported",
	"malformed",
}

// isPermanent reports whether an error message indicates a permanent input
// problem.
func isPermanent(err error) bool {
	var convErr *Error
	if errors.As(err, &convErr) {
		return convErr.Kind == KindPermanentInput
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// classifyError is the retry classifier for codec operations.
func classifyError(err error) retry.Class {
	if isPermanent(err) {
		return retry.ClassPermanent
	}
	return retry.ClassTransient
}

// wrapError tags an error from a retried codec operation with its kind.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var convErr *Error
	if errors.As(err, &convErr) {
		return err
	}
	kind := KindProcessing
	if isPermanent(err) {
		kind = KindPermanentInput
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
