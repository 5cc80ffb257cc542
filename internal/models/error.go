package models

import "errors"

var (
	ErrConflictData             = errors.New("data conflicts with existing data")
	ErrDataNotFound             = errors.New("data not found")
	ErrPreconditionFailed       = errors.New("operation precondition failed")
	ErrInvalidStage             = errors.New("invalid progress stage")
	ErrStageNotReachable        = errors.New("stage is not reachable from current stage")
	ErrDeliveredExceedsQuantity = errors.New("delivered count exceeds item quantity")
	ErrInvalidQuantity          = errors.New("item quantity must be positive")
	ErrNoMatch                  = errors.New("no matching order for external event")
	ErrQuantityMismatch         = errors.New("external event quantity does not match item")
	ErrInternalError            = errors.New("internal error")
)
