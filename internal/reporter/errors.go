package reporter

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an expected remote entity that does not exist:
	// project, suite, configuration label, plan.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument reports an empty build name, plan name or
	// configuration list.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvariantViolation reports a state the reporter cannot work from,
	// such as zero or several active milestones or an unbound run.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrConsistency reports a remote plan entry whose runs do not match
	// the locally buffered configurations.
	ErrConsistency = errors.New("consistency error")
)

// RemoteCallError wraps any failed TestRail call. Context carries request
// details such as section or case identifiers when they are known.
type RemoteCallError struct {
	Op      string
	Context string
	Err     error
}

func (e *RemoteCallError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s (%s): %v", e.Op, e.Context, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

func remoteErr(op string, err error, context string) error {
	return &RemoteCallError{Op: op, Context: context, Err: err}
}

// IsRemote reports whether err came from a failed TestRail call.
func IsRemote(err error) bool {
	var rce *RemoteCallError
	return errors.As(err, &rce)
}
