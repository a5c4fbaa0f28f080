// Package errors defines the error taxonomy of the swap router.
//
// Every failure a caller can observe carries a stable string code and the
// numeric custom error the on-chain program reports for it, so a failure seen
// locally and one parsed out of a transaction result compare equal with Is.
package errors

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	ErrCodeAlreadyInitialized = "ALREADY_INITIALIZED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeDuplicateEntry     = "DUPLICATE_ENTRY"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUnknownPool        = "UNKNOWN_POOL"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeExternalCallFailed = "EXTERNAL_CALL_FAILED"
	ErrCodePaused             = "PAUSED"
	ErrCodeWhitelistFull      = "WHITELIST_FULL"
	ErrCodeNotInitialized     = "NOT_INITIALIZED"
	ErrCodeInvalidAccounts    = "INVALID_ACCOUNTS"
	ErrCodeInvalidInstruction = "INVALID_INSTRUCTION"
)

// CustomErrorOffset is the first custom error number used by the program.
const CustomErrorOffset uint32 = 6000

var codeNumbers = map[string]uint32{
	ErrCodeAlreadyInitialized: CustomErrorOffset + 0,
	ErrCodeUnauthorized:       CustomErrorOffset + 1,
	ErrCodeDuplicateEntry:     CustomErrorOffset + 2,
	ErrCodeNotFound:           CustomErrorOffset + 3,
	ErrCodeUnknownPool:        CustomErrorOffset + 4,
	ErrCodeInvalidAmount:      CustomErrorOffset + 5,
	ErrCodeExternalCallFailed: CustomErrorOffset + 6,
	ErrCodePaused:             CustomErrorOffset + 7,
	ErrCodeWhitelistFull:      CustomErrorOffset + 8,
	ErrCodeNotInitialized:     CustomErrorOffset + 9,
	ErrCodeInvalidAccounts:    CustomErrorOffset + 10,
	ErrCodeInvalidInstruction: CustomErrorOffset + 11,
}

// ProgramError is an error raised by the router or one of its collaborators.
type ProgramError struct {
	// Code is a unique error code for this error type.
	Code string

	// Number is the custom program error number, zero when the code has none.
	Number uint32

	// Message is a human-readable error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error

	// Details contains additional error context.
	Details map[string]any
}

// Error implements the error interface.
func (e *ProgramError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProgramError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target.
func (e *ProgramError) Is(target error) bool {
	t, ok := target.(*ProgramError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with cause attached.
func (e *ProgramError) WithCause(cause error) *ProgramError {
	c := *e
	c.Cause = cause
	return &c
}

// WithDetails returns a copy of the error with details attached.
func (e *ProgramError) WithDetails(details map[string]any) *ProgramError {
	c := *e
	c.Details = details
	return &c
}

// NewError creates a new ProgramError.
func NewError(code, message string) *ProgramError {
	return &ProgramError{
		Code:    code,
		Number:  codeNumbers[code],
		Message: message,
	}
}

// Sentinels for comparison with Is. Use the constructors below to build
// errors that carry context.
var (
	ErrAlreadyInitialized = NewError(ErrCodeAlreadyInitialized, "whitelist already initialized")
	ErrUnauthorized       = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrDuplicateEntry     = NewError(ErrCodeDuplicateEntry, "entry already whitelisted")
	ErrNotFound           = NewError(ErrCodeNotFound, "entry not whitelisted")
	ErrUnknownPool        = NewError(ErrCodeUnknownPool, "unknown pool program")
	ErrInvalidAmount      = NewError(ErrCodeInvalidAmount, "invalid amount")
	ErrExternalCallFailed = NewError(ErrCodeExternalCallFailed, "external call failed")
	ErrPaused             = NewError(ErrCodePaused, "swaps are paused")
	ErrWhitelistFull      = NewError(ErrCodeWhitelistFull, "whitelist is full")
	ErrNotInitialized     = NewError(ErrCodeNotInitialized, "whitelist not initialized")
	ErrInvalidAccounts    = NewError(ErrCodeInvalidAccounts, "invalid accounts")
	ErrInvalidInstruction = NewError(ErrCodeInvalidInstruction, "invalid instruction")
)

// AlreadyInitialized creates an error for a second initialize at key.
func AlreadyInitialized(key string) *ProgramError {
	return NewError(ErrCodeAlreadyInitialized, fmt.Sprintf("whitelist %s already initialized", key))
}

// Unauthorized creates an error naming the rejected signer.
func Unauthorized(signer, reason string) *ProgramError {
	return NewError(ErrCodeUnauthorized, fmt.Sprintf("%s: %s", signer, reason))
}

// DuplicateEntry creates an error for adding an address that is already present.
func DuplicateEntry(address string) *ProgramError {
	return NewError(ErrCodeDuplicateEntry, fmt.Sprintf("%s is already whitelisted", address))
}

// NotFound creates an error for removing an address that is absent.
func NotFound(address string) *ProgramError {
	return NewError(ErrCodeNotFound, fmt.Sprintf("%s is not whitelisted", address))
}

// UnknownPool creates an error for a swap aimed at an unregistered program.
func UnknownPool(programID string) *ProgramError {
	return NewError(ErrCodeUnknownPool, fmt.Sprintf("no adapter registered for program %s", programID))
}

// InvalidAmount creates an amount validation error.
func InvalidAmount(reason string) *ProgramError {
	return NewError(ErrCodeInvalidAmount, reason)
}

// ExternalCallFailed wraps a failure reported by an external pool program.
func ExternalCallFailed(adapter string, cause error) *ProgramError {
	return NewError(ErrCodeExternalCallFailed, fmt.Sprintf("%s swap failed", adapter)).WithCause(cause)
}

// Paused creates an error for a swap attempted while the whitelist is paused.
func Paused(key string) *ProgramError {
	return NewError(ErrCodePaused, fmt.Sprintf("swaps paused by whitelist %s", key))
}

// WhitelistFull creates an error for exceeding the preallocated capacity.
func WhitelistFull(capacity int) *ProgramError {
	return NewError(ErrCodeWhitelistFull, fmt.Sprintf("whitelist holds at most %d users", capacity))
}

// NotInitialized creates an error for a whitelist that does not exist yet.
func NotInitialized(key string) *ProgramError {
	return NewError(ErrCodeNotInitialized, fmt.Sprintf("whitelist %s not initialized", key))
}

// InvalidAccounts creates an account validation error.
func InvalidAccounts(reason string) *ProgramError {
	return NewError(ErrCodeInvalidAccounts, reason)
}

// InvalidInstruction creates an instruction decoding error.
func InvalidInstruction(reason string, cause error) *ProgramError {
	return NewError(ErrCodeInvalidInstruction, reason).WithCause(cause)
}

// FromCustomCode maps a custom program error number back to its sentinel.
// It reports false for numbers the program does not define.
func FromCustomCode(number uint32) (*ProgramError, bool) {
	for code, n := range codeNumbers {
		if n == number {
			return NewError(code, sentinelMessage(code)), true
		}
	}
	return nil, false
}

func sentinelMessage(code string) string {
	for _, s := range []*ProgramError{
		ErrAlreadyInitialized, ErrUnauthorized, ErrDuplicateEntry, ErrNotFound,
		ErrUnknownPool, ErrInvalidAmount, ErrExternalCallFailed, ErrPaused,
		ErrWhitelistFull, ErrNotInitialized, ErrInvalidAccounts, ErrInvalidInstruction,
	} {
		if s.Code == code {
			return s.Message
		}
	}
	return code
}

// CodeOf returns the code of the first ProgramError in err's chain.
func CodeOf(err error) (string, bool) {
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
