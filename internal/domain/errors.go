package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("invalid request")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrResetRequiresForce = errors.New("cannot reset from HALT without force")
	// ErrDependencyDegraded marks a tolerated outbound failure (the Event
	// Graph lookup). Evaluation proceeds with reduced signal.
	ErrDependencyDegraded = errors.New("dependency degraded")
	// ErrDependencyFailed marks an outbound failure on a decision path.
	// The request must not be approved when this occurs.
	ErrDependencyFailed = errors.New("dependency failed")
)
