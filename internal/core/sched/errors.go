package sched

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownDependency = errors.New("unknown dependency chain")
	ErrDuplicateChain    = errors.New("duplicate chain name")
	ErrDependencyCycle   = errors.New("chain dependency cycle")
	ErrGraphCycle        = errors.New("task graph cycle")
	ErrDeadlock          = errors.New("scheduling deadlock")
	ErrTaskPanic         = errors.New("task panicked")
)

// GraphError wraps a declaration error found while building the task graph.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func graphErrorf(kind error, format string, args ...any) error {
	return &GraphError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// DeadlockError reports a tick that stopped making progress. Stuck lists the
// nodes that never ran, which usually points at the bad declaration.
type DeadlockError struct {
	Remaining  int
	Iterations int
	Stuck      []string
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("%s: %d tasks never ran after %d iterations [%s]",
		ErrDeadlock.Error(), e.Remaining, e.Iterations, strings.Join(e.Stuck, ", "))
}

func (e *DeadlockError) Unwrap() error { return ErrDeadlock }

// TaskPanicError carries a panic recovered from a task body.
type TaskPanicError struct {
	Task      string
	Recovered any
	Stack     []byte
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTaskPanic.Error(), e.Task, e.Recovered)
}

func (e *TaskPanicError) Unwrap() error { return ErrTaskPanic }
