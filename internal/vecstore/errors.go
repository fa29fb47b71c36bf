package vecstore

import "errors"

var (
	ErrUnreachable       = errors.New("qdrant server unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrTenantIsolation marks a retrieved chunk whose tenant id does not
	// match the querying tenant. Must never occur; detected chunks are
	// excluded and the event is logged as a defect.
	ErrTenantIsolation = errors.New("tenant isolation violation")
)
