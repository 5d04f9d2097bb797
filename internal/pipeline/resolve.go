package pipeline

import (
	"errors"
	"fmt"

	"github.com/marcelocantos/sqlops/internal/op"
	"github.com/marcelocantos/sqlops/internal/tool"
)

// unresolvedError names the reference that had nothing to point at.
type unresolvedError struct {
	arg string
	ref op.Ref
}

func (e *unresolvedError) Error() string {
	return fmt.Sprintf("argument %q: %s: %v", e.arg, e.ref, ErrNoPriorResult)
}

func (e *unresolvedError) Unwrap() error { return ErrNoPriorResult }

// resolve builds the invocation parameters for args, replacing references
// with payloads from history. args is never modified.
func resolve(args op.Args, history []op.Record) (tool.Params, error) {
	params := make(tool.Params, len(args))
	for k, v := range args {
		ref, ok := v.Ref()
		if !ok {
			params[k], _ = v.Literal()
			continue
		}
		payload, found := lookup(history, ref)
		if !found {
			return nil, &unresolvedError{arg: k, ref: ref}
		}
		params[k] = payload
	}
	return params, nil
}

// lookup searches history from the end.
func lookup(history []op.Record, ref op.Ref) (any, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if ref.Tool == "" || history[i].Tool == ref.Tool {
			return history[i].Payload, true
		}
	}
	return nil, false
}

func unresolvedStatus(err error) string {
	var ue *unresolvedError
	if errors.As(err, &ue) && ue.ref.Tool != "" {
		return fmt.Sprintf("No previous result from '%s' found for substitution.", ue.ref.Tool)
	}
	return "No previous result found for substitution."
}
