package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

const (
	ErrInvalidArgument ErrorCode = iota + 1000
	ErrScheduleNotFound
	ErrServiceNotFound
	ErrAppointmentNotFound
	ErrSlotUnavailable
	ErrNoProviderAvailable
	ErrRepository
	ErrNotification
	ErrInternal
)

// AppError represents an application error. Slots is populated on slot
// conflicts so callers can offer alternatives without a second round trip.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Slots   []string  `json:"slots,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code so errors.Is works across wrapping.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// Error constructors
func InvalidArgument(message string, err error) *AppError {
	return &AppError{Code: ErrInvalidArgument, Message: message, Err: err}
}

func ScheduleNotFound(id string) *AppError {
	return &AppError{Code: ErrScheduleNotFound, Message: fmt.Sprintf("schedule %s not found", id)}
}

func ServiceNotFound(id string) *AppError {
	return &AppError{Code: ErrServiceNotFound, Message: fmt.Sprintf("service %s not found", id)}
}

func AppointmentNotFound(message string) *AppError {
	if message == "" {
		message = "appointment not found"
	}
	return &AppError{Code: ErrAppointmentNotFound, Message: message}
}

func SlotUnavailable(message string, slots []string) *AppError {
	return &AppError{Code: ErrSlotUnavailable, Message: message, Slots: slots}
}

func NoProviderAvailable(message string) *AppError {
	return &AppError{Code: ErrNoProviderAvailable, Message: message}
}

func Repository(err error) *AppError {
	return &AppError{Code: ErrRepository, Message: "storage unavailable, retry later", Err: err}
}

func Notification(err error) *AppError {
	return &AppError{Code: ErrNotification, Message: "notification delivery failed", Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}

// Code extracts the error code from any error chain; unknown errors map to
// ErrInternal.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsNotFound reports whether err belongs to the not-found family.
func IsNotFound(err error) bool {
	switch Code(err) {
	case ErrScheduleNotFound, ErrServiceNotFound, ErrAppointmentNotFound:
		return true
	}
	return false
}
