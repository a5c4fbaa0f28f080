package cpi

import (
	"bytes"
	"encoding/json"
	"testing"
)

func decodeRaw(t *testing.T, s string) any {
	t.Helper()
	d := json.NewDecoder(bytes.NewBufferString(s))
	d.UseNumber()
	var raw any
	if err := d.Decode(&raw); err != nil {
		t.Fatalf("failed to decode %s: %v", s, err)
	}
	return raw
}

func TestParseTransactionError(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		index    int
		custom   *uint32
		key      string
		hasInstr bool
	}{
		{name: "custom", raw: `{"InstructionError":[2,{"Custom":6001}]}`, index: 2, custom: ptr(6001), hasInstr: true},
		{name: "builtin", raw: `{"InstructionError":[0,"InvalidArgument"]}`, key: "InvalidArgument", hasInstr: true},
		{name: "transaction level", raw: `"BlockhashNotFound"`, key: "BlockhashNotFound"},
		{name: "keyed transaction level", raw: `{"InsufficientFundsForRent":{"account_index":0}}`, key: "InsufficientFundsForRent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseTransactionError(decodeRaw(t, tt.raw))
			if err != nil {
				t.Fatalf("ParseTransactionError failed: %v", err)
			}
			if (e.Instruction != nil) != tt.hasInstr {
				t.Fatalf("expected instruction error=%v, got %v", tt.hasInstr, e.Instruction)
			}

			code, ok := e.CustomCode()
			if tt.custom != nil {
				if !ok || code != *tt.custom {
					t.Errorf("expected custom code %d, got %d (ok=%v)", *tt.custom, code, ok)
				}
				if e.Instruction.Index != tt.index {
					t.Errorf("expected index %d, got %d", tt.index, e.Instruction.Index)
				}
				return
			}
			if ok {
				t.Errorf("expected no custom code, got %d", code)
			}
			if e.Unwrap().Error() != tt.key {
				t.Errorf("expected %s, got %s", tt.key, e.Unwrap())
			}
		})
	}

	if e, err := ParseTransactionError(nil); e != nil || err != nil {
		t.Errorf("expected nil for nil input, got %v, %v", e, err)
	}
}

func TestParseTransactionErrorMalformed(t *testing.T) {
	for _, raw := range []string{
		`{"InstructionError":[0]}`,
		`{"InstructionError":"x"}`,
		`{"a":1,"b":2}`,
		`{"InstructionError":[0,{"Custom":"x"}]}`,
	} {
		t.Run(raw, func(t *testing.T) {
			e, err := ParseTransactionError(decodeRaw(t, raw))
			if err == nil {
				t.Error("expected parse error")
			}
			if e == nil {
				t.Error("expected a placeholder TransactionError alongside the parse error")
			}
		})
	}
}

func TestParseJSONNumber(t *testing.T) {
	for _, v := range []any{1.0, json.Number("1"), 1, int64(1), uint32(1)} {
		n, err := parseJSONNumber(v)
		if err != nil || n != 1 {
			t.Errorf("%T: expected 1, got %d (%v)", v, n, err)
		}
	}
	if _, err := parseJSONNumber("1"); err == nil {
		t.Error("expected error for string")
	}
}

func TestCustomErrorString(t *testing.T) {
	if got := CustomError(30).Error(); got != "custom program error: 0x1e" {
		t.Errorf("unexpected %q", got)
	}
}

func ptr(v uint32) *uint32 { return &v }
