package domain

import "errors"

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidJurisdiction  = errors.New("invalid_jurisdiction")
	ErrInvalidOperationCode = errors.New("invalid_operation_code")
	ErrInvalidExitCode      = errors.New("invalid_exit_code")
	ErrInvalidRate          = errors.New("invalid_rate")
	ErrNotFound             = errors.New("not_found")
	ErrDuplicateRule        = errors.New("duplicate_rule")
)
