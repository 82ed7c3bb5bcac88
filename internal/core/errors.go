package core

import "errors"

var (
	ErrDuplicateName      = errors.New("duplicate name")
	ErrNotFound           = errors.New("not found")
	ErrImmutable          = errors.New("system default cannot be modified")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidSubcategory = errors.New("invalid subcategory")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrIntegrityViolation = errors.New("integrity violation")
	ErrInvalidKind        = errors.New("invalid kind")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidDate        = errors.New("invalid date")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)
