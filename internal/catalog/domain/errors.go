package domain

import "errors"

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidCode       = errors.New("invalid_code")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrNotFound          = errors.New("not_found")
	ErrStockConflict     = errors.New("stock_conflict")
	ErrDuplicateItemCode = errors.New("duplicate_item_code")
)
