package block

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	errTableMismatch = status.Error(codes.FailedPrecondition, "record's table does not match this block's table")
	errAlreadyExists = status.Error(codes.AlreadyExists, "record already has a live slot in this block")
	errFull          = status.Error(codes.ResourceExhausted, "block has no free slot")
)

// IsTableMismatch reports whether err is the TableMismatch condition:
// an insert supplied a record id belonging to a different table.
func IsTableMismatch(err error) bool {
	return err != nil && status.Code(err) == codes.FailedPrecondition
}

// IsAlreadyExists reports whether err is the AlreadyExists condition:
// an insert supplied a record id already live in this block.
func IsAlreadyExists(err error) bool {
	return err != nil && status.Code(err) == codes.AlreadyExists
}

// IsFull reports whether err is the internal BlockFull condition. This
// is surfaced to pkg/store so it can advance to the next block; callers
// above the store layer should never observe it.
func IsFull(err error) bool {
	return err != nil && status.Code(err) == codes.ResourceExhausted
}
