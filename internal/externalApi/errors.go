package externalApi

import "errors"

var (
	ErrNotFound         = errors.New("error not found")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrInvalidQuotation = errors.New("invalid quotation")
)
