package store

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/HoodieCollin/dbexp-sub000/pkg/util"
)

var (
	errBlockNotFound      = status.Error(codes.Internal, "current block is missing from the roster")
	errStoreTableMismatch = status.Error(codes.FailedPrecondition, "record's table does not match this store's table")
)

// IsBlockNotFound reports whether err is the BlockNotFound or
// BlockCreationError condition: both are internal invariant
// violations carrying codes.Internal, fatal at the call site.
// Unreachable in correct operation.
func IsBlockNotFound(err error) bool {
	return err != nil && status.Code(err) == codes.Internal
}

// IsTableMismatch reports whether err is the store-level TableMismatch
// condition, or a TableMismatch bubbled up from the block layer
// (both carry codes.FailedPrecondition).
func IsTableMismatch(err error) bool {
	return err != nil && status.Code(err) == codes.FailedPrecondition
}

func blockCreationError(format string, args ...interface{}) error {
	return status.Errorf(codes.Internal, format, args...)
}

// wrapUnexpected turns a plain I/O or OS error into the Unexpected
// condition, prefixing it with msg rather than discarding its original
// text.
func wrapUnexpected(err error, msg string) error {
	return util.StatusWrapfWithCode(status.New(codes.Unknown, err.Error()).Err(), codes.Unknown, "%s", msg)
}

// wrapBlockCreation turns a plain decode/map error into the
// BlockCreationError condition, prefixing it with msg.
func wrapBlockCreation(err error, msg string) error {
	return util.StatusWrapfWithCode(status.New(codes.Internal, err.Error()).Err(), codes.Internal, "%s", msg)
}

// IsBlockCreationError is an alias of IsBlockNotFound: both internal
// conditions share codes.Internal per the taxonomy.
func IsBlockCreationError(err error) bool {
	return IsBlockNotFound(err)
}

// IsUnexpected reports whether err is a passed-through I/O or OS
// error.
func IsUnexpected(err error) bool {
	return err != nil && status.Code(err) == codes.Unknown
}
