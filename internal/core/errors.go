package core

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrUnknownHandle indicates resolution of an out-of-range handle.
type ErrUnknownHandle struct {
	Handle Handle
	Size   int
}

func (e *ErrUnknownHandle) Error() string {
	return fmt.Sprintf("unknown handle %d (interner size %d)", e.Handle, e.Size)
}

func NewUnknownHandleError(h Handle, size int) error {
	return &ErrUnknownHandle{Handle: h, Size: size}
}

// HydrationKind classifies a HydrationError.
type HydrationKind int

const (
	HydrationSchema HydrationKind = iota
	HydrationDecode
	HydrationIO
)

func (k HydrationKind) String() string {
	switch k {
	case HydrationSchema:
		return "schema"
	case HydrationDecode:
		return "decode"
	case HydrationIO:
		return "io"
	default:
		return "unknown"
	}
}

// ErrHydration indicates a failure ingesting an Arrow IPC stream. The core's
// state is left exactly as it was before the failed batch.
type ErrHydration struct {
	Kind    HydrationKind
	Message string
	Cause   error
}

func (e *ErrHydration) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("hydration %s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("hydration %s error: %s", e.Kind, e.Message)
}

func (e *ErrHydration) Unwrap() error {
	return e.Cause
}

func NewHydrationError(kind HydrationKind, message string, cause error) error {
	return &ErrHydration{Kind: kind, Message: message, Cause: cause}
}

// SnapshotKind classifies a SnapshotError.
type SnapshotKind int

const (
	SnapshotIO SnapshotKind = iota
	SnapshotCorrupt
	SnapshotVersion
)

func (k SnapshotKind) String() string {
	switch k {
	case SnapshotIO:
		return "io"
	case SnapshotCorrupt:
		return "corrupt"
	case SnapshotVersion:
		return "version"
	default:
		return "unknown"
	}
}

// ErrSnapshot indicates a failure saving or loading a binary snapshot.
type ErrSnapshot struct {
	Kind    SnapshotKind
	Message string
	Cause   error
}

func (e *ErrSnapshot) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("snapshot %s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("snapshot %s error: %s", e.Kind, e.Message)
}

func (e *ErrSnapshot) Unwrap() error {
	return e.Cause
}

func NewSnapshotError(kind SnapshotKind, message string, cause error) error {
	return &ErrSnapshot{Kind: kind, Message: message, Cause: cause}
}

// ErrPattern indicates a malformed subgraph pattern.
type ErrPattern struct {
	Message string
}

func (e *ErrPattern) Error() string {
	return fmt.Sprintf("pattern error: %s", e.Message)
}

// NewUnboundPatternError reports a constraint whose two ends are both
// unbound at the point the matcher processed it.
func NewUnboundPatternError(constraintIdx int) error {
	return &ErrPattern{Message: fmt.Sprintf("constraint %d has both ends unbound", constraintIdx)}
}

// ErrAlloc indicates a capacity-growth request the allocator could not
// satisfy. Growth is transactional: the in-memory state is guaranteed to
// remain exactly as it was before the call.
type ErrAlloc struct {
	Requested int
	Cause     error
}

func (e *ErrAlloc) Error() string {
	return fmt.Sprintf("allocation failed growing to %d: %v", e.Requested, e.Cause)
}

func (e *ErrAlloc) Unwrap() error {
	return e.Cause
}

func NewAllocError(requested int, cause error) error {
	return &ErrAlloc{Requested: requested, Cause: cause}
}

// ErrNotFound indicates a requested resource does not exist.
type ErrNotFound struct {
	Resource string
	Name     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Name)
}

func NewNotFoundError(resource, name string) error {
	return &ErrNotFound{Resource: resource, Name: name}
}

// ErrInvalidArgument indicates invalid input from the caller.
type ErrInvalidArgument struct {
	Field   string
	Message string
}

func (e *ErrInvalidArgument) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid argument for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid argument: %s", e.Message)
}

func NewInvalidArgumentError(field, message string) error {
	return &ErrInvalidArgument{Field: field, Message: message}
}

// ErrInternal indicates an unexpected internal error.
type ErrInternal struct {
	Operation string
	Cause     error
}

func (e *ErrInternal) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("internal error during %s", e.Operation)
}

func (e *ErrInternal) Unwrap() error {
	return e.Cause
}

func NewInternalError(operation string, cause error) error {
	return &ErrInternal{Operation: operation, Cause: cause}
}

// ToGRPCStatus converts a domain error into a gRPC status error with an
// appropriate code. The core never depends on gRPC itself; this exists so
// an eventual RPC front-end can translate core errors without redefining
// the mapping.
func ToGRPCStatus(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	var (
		unknownHandleErr *ErrUnknownHandle
		hydrationErr     *ErrHydration
		snapshotErr      *ErrSnapshot
		patternErr       *ErrPattern
		allocErr         *ErrAlloc
		notFoundErr      *ErrNotFound
		invalidArgErr    *ErrInvalidArgument
		internalErr      *ErrInternal
	)

	switch {
	case errors.As(err, &unknownHandleErr):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &hydrationErr):
		return status.Error(codes.DataLoss, err.Error())
	case errors.As(err, &snapshotErr):
		return status.Error(codes.DataLoss, err.Error())
	case errors.As(err, &patternErr):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &allocErr):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.As(err, &notFoundErr):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &invalidArgErr):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &internalErr):
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// MustToGRPCStatus is like ToGRPCStatus but panics if conversion fails.
// Useful in tests.
func MustToGRPCStatus(err error) error {
	result := ToGRPCStatus(err)
	if result == nil && err != nil {
		panic(fmt.Sprintf("failed to convert error to gRPC status: %v", err))
	}
	return result
}
