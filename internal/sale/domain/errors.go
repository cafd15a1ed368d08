package domain

import "errors"

var (
	ErrInvalidID     = errors.New("invalid_sale_id")
	ErrInvalidInput  = errors.New("invalid_input")
	ErrNotFound      = errors.New("sale_not_found")
	ErrLineNotFound  = errors.New("sale_line_not_found")
	ErrNotDraft      = errors.New("sale_not_draft")
	ErrUnbalanced    = errors.New("sale_unbalanced")
	ErrItemNotFound  = errors.New("catalog_item_not_found")
	ErrInvalidMethod = errors.New("invalid_payment_method")
)
