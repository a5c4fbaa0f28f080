package cpi

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/errors"
)

// ProgramError maps a failure raised by programID itself back to the router's
// typed error. Custom codes raised by other programs in the call chain, such as
// an external pool, are not mapped even when they fall in the router's range.
func ProgramError(err error, programID solana.PublicKey) (*errors.ProgramError, bool) {
	var txErr *TransactionError
	if !errors.As(err, &txErr) {
		return nil, false
	}
	code, ok := txErr.CustomCode()
	if !ok {
		return nil, false
	}
	if txErr.Failure == nil || txErr.Failure.ProgramID != programID.String() {
		return nil, false
	}
	pe, ok := errors.FromCustomCode(code)
	if !ok {
		return nil, false
	}
	if txErr.Failure.Message != "" {
		pe = pe.WithDetails(map[string]any{"log": txErr.Failure.Message})
	}
	return pe, true
}

// FailingProgram names the program that failed, if the logs say.
func FailingProgram(err error) (string, bool) {
	var txErr *TransactionError
	if !errors.As(err, &txErr) || txErr.Failure == nil {
		return "", false
	}
	return txErr.Failure.ProgramID, true
}
