package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation общий признак ошибки входных данных
	ErrValidation = errors.New("validation error")

	ErrSlotTaken    = errors.New("slot already taken")
	ErrNotFound     = errors.New("booking not found")
	ErrForbidden    = errors.New("action not allowed for this user")
	ErrAlreadyPaid  = errors.New("booking already paid")
	ErrInvalidState = errors.New("booking is in a different state")
)

// ValidationError ошибка входных данных с указанием поля
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// Is позволяет проверять любую ValidationError через errors.Is(err, ErrValidation)
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var (
	ErrPastDate         = &ValidationError{Field: "date", Msg: "date is in the past"}
	ErrInvalidHour      = &ValidationError{Field: "hour", Msg: "hour is outside working hours"}
	ErrInvalidMonth     = &ValidationError{Field: "month", Msg: "month must be between 1 and 12"}
	ErrInvalidDay       = &ValidationError{Field: "day", Msg: "no such day in month"}
	ErrInvalidName      = &ValidationError{Field: "name", Msg: "name must be 1..100 characters"}
	ErrInvalidPhone     = &ValidationError{Field: "phone", Msg: "phone must be 10..20 characters"}
	ErrInvalidSelection = &ValidationError{Field: "selection", Msg: "selection is incomplete or out of range"}
)
