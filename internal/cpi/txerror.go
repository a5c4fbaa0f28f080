package cpi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/lugondev/go-cpiswap/pkg/log"
)

// InstructionErrorCustom is the InstructionError key of a program's own error code.
const InstructionErrorCustom = "Custom"

// CustomError is the numeric error a program returned.
type CustomError uint32

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x", uint32(c))
}

// InstructionError is the InstructionError variant of a transaction error.
type InstructionError struct {
	Index int
	Err   error
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", i.Index, i.Err)
}

// CustomError returns the custom code, or nil for builtin instruction errors.
func (i InstructionError) CustomError() *CustomError {
	if ce, ok := i.Err.(CustomError); ok {
		return &ce
	}
	return nil
}

// TransactionError is a transaction that was rejected in preflight, failed
// after landing, or failed in simulation.
type TransactionError struct {
	Signature   solana.Signature
	Err         error
	Instruction *InstructionError
	Logs        []string

	// Failure is the innermost failing program found in Logs, if any.
	Failure *log.Failure

	Raw any
}

func (e *TransactionError) Error() string {
	var b strings.Builder
	if e.Instruction != nil {
		b.WriteString(e.Instruction.Error())
	} else {
		b.WriteString(e.Err.Error())
	}
	if e.Failure != nil {
		b.WriteString(": ")
		b.WriteString(e.Failure.String())
	}
	return b.String()
}

func (e *TransactionError) Unwrap() error {
	if e.Instruction != nil {
		return e.Instruction.Err
	}
	return e.Err
}

// CustomCode returns the custom error code carried by the failing instruction.
func (e *TransactionError) CustomCode() (uint32, bool) {
	if e.Instruction == nil {
		return 0, false
	}
	ce := e.Instruction.CustomError()
	if ce == nil {
		return 0, false
	}
	return uint32(*ce), true
}

// withLogs attaches logs and the failure they describe.
func (e *TransactionError) withLogs(logs []string) *TransactionError {
	e.Logs = logs
	e.Failure = log.NewParser().FindFailure(logs)
	return e
}

// ParseTransactionError parses the "err" value returned by getSignatureStatuses,
// getTransaction, simulateTransaction and preflight failures. It returns nil
// for a nil value.
func ParseTransactionError(raw any) (*TransactionError, error) {
	if raw == nil {
		return nil, nil
	}

	switch t := raw.(type) {
	case string:
		return &TransactionError{Err: errors.New(t), Raw: raw}, nil
	case map[string]any:
		if len(t) != 1 {
			return &TransactionError{Err: errors.New("unhandled transaction error"), Raw: raw},
				errors.Errorf("invalid transaction result size: %d", len(t))
		}

		var k string
		var v any
		for k, v = range t {
		}

		if k != "InstructionError" {
			return &TransactionError{Err: errors.New(k), Raw: raw}, nil
		}

		ie, err := parseInstructionError(v)
		if err != nil {
			return &TransactionError{Err: errors.New("unhandled transaction error"), Raw: raw},
				errors.Wrap(err, "failed to parse instruction error")
		}
		return &TransactionError{Err: errors.New("InstructionError"), Instruction: &ie, Raw: raw}, nil
	default:
		return &TransactionError{Err: errors.New("unhandled transaction error"), Raw: raw},
			errors.Errorf("unexpected transaction error type %T", raw)
	}
}

func parseInstructionError(v any) (e InstructionError, err error) {
	values, ok := v.([]any)
	if !ok {
		return e, errors.New("unexpected instruction error format")
	}
	if len(values) != 2 {
		return e, errors.Errorf("unexpected entries in InstructionError tuple: %d", len(values))
	}

	e.Index, err = parseJSONNumber(values[0])
	if err != nil {
		return e, err
	}

	switch t := values[1].(type) {
	case string:
		e.Err = errors.New(t)
	case map[string]any:
		if len(t) != 1 {
			return e, errors.Errorf("invalid instruction result size: %d", len(t))
		}

		var k string
		var v any
		for k, v = range t {
		}

		if k != InstructionErrorCustom {
			e.Err = errors.New(k)
			break
		}

		code, err := parseJSONNumber(v)
		if err != nil {
			return e, errors.Wrap(err, "invalid custom error code")
		}
		e.Err = CustomError(code)
	default:
		return e, errors.Errorf("unexpected instruction error value %T", values[1])
	}

	return e, nil
}

func parseJSONNumber(v any) (int, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		return int(n), err
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint32:
		return int(t), nil
	default:
		return 0, errors.Errorf("unexpected number type %T", v)
	}
}

// parseLogs reads a "logs" array out of loosely typed RPC error data.
func parseLogs(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	logs := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}
