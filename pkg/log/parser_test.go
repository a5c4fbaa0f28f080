package log

import (
	"testing"
)

const (
	routerID  = "CPiSwap1111111111111111111111111111111111111"
	raydiumID = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	tokenID   = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

var failedSwapLogs = []string{
	"Program " + routerID + " invoke [1]",
	"Program log: Instruction: SwapOnRaydium",
	"Program " + raydiumID + " invoke [2]",
	"Program log: ray_log: AwDKmjsAAAAA",
	"Program " + tokenID + " invoke [3]",
	"Program log: Instruction: Transfer",
	"Program " + tokenID + " consumed 4645 of 180000 compute units",
	"Program " + tokenID + " success",
	"Program log: Error: exceeds desired slippage limit",
	"Program " + raydiumID + " consumed 30000 of 200000 compute units",
	"Program " + raydiumID + " failed: custom program error: 0x1e",
	"Program " + routerID + " consumed 41000 of 200000 compute units",
	"Program " + routerID + " failed: custom program error: 0x1e",
}

func TestParse(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name    string
		log     string
		typ     LogType
		program string
		message string
	}{
		{name: "invoke", log: "Program " + raydiumID + " invoke [2]", typ: LogTypeInvoke, program: raydiumID},
		{name: "success", log: "Program " + tokenID + " success", typ: LogTypeSuccess, program: tokenID},
		{name: "failed", log: "Program " + raydiumID + " failed: custom program error: 0x1e", typ: LogTypeFailed, program: raydiumID, message: "custom program error: 0x1e"},
		{name: "log", log: "Program log: Instruction: Swap", typ: LogTypeLog, message: "Instruction: Swap"},
		{name: "compute", log: "Program " + tokenID + " consumed 4645 of 180000 compute units", typ: LogTypeComputeUnits, program: tokenID},
		{name: "unknown", log: "Program return: abc", typ: LogTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.log)
			if got.Type != tt.typ {
				t.Errorf("expected type %s, got %s", tt.typ, got.Type)
			}
			if got.ProgramID != tt.program {
				t.Errorf("expected program %q, got %q", tt.program, got.ProgramID)
			}
			if got.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, got.Message)
			}
		})
	}

	if got := p.Parse("Program " + raydiumID + " invoke [2]"); got.StackHeight != 2 {
		t.Errorf("expected stack height 2, got %d", got.StackHeight)
	}
	if got := p.Parse("Program " + tokenID + " consumed 4645 of 180000 compute units"); got.ComputeUnits == nil || *got.ComputeUnits != 4645 {
		t.Errorf("expected 4645 compute units, got %v", got.ComputeUnits)
	}
}

func TestFindFailure(t *testing.T) {
	f := NewParser().FindFailure(failedSwapLogs)
	if f == nil {
		t.Fatal("expected a failure")
	}
	if f.ProgramID != raydiumID {
		t.Errorf("expected innermost failing program %s, got %s", raydiumID, f.ProgramID)
	}
	if f.CustomCode == nil || *f.CustomCode != 30 {
		t.Errorf("expected custom code 30, got %v", f.CustomCode)
	}
	if f.Message != "Error: exceeds desired slippage limit" {
		t.Errorf("unexpected message %q", f.Message)
	}
	if f.StackHeight != 2 {
		t.Errorf("expected stack height 2, got %d", f.StackHeight)
	}

	ok := []string{
		"Program " + routerID + " invoke [1]",
		"Program " + routerID + " success",
	}
	if f := NewParser().FindFailure(ok); f != nil {
		t.Errorf("expected no failure, got %v", f)
	}
}

func TestInstructionNames(t *testing.T) {
	names := NewParser().InstructionNames(failedSwapLogs)
	if len(names) != 2 || names[0] != "SwapOnRaydium" || names[1] != "Transfer" {
		t.Errorf("expected [SwapOnRaydium Transfer], got %v", names)
	}
}

func TestFilterByInstructionPath(t *testing.T) {
	p := NewParser()

	tests := []struct {
		path InstructionPath
		want []string
	}{
		{path: InstructionPath{0}, want: []string{"Program log: Instruction: SwapOnRaydium"}},
		{path: InstructionPath{0, 0}, want: []string{"Program log: ray_log: AwDKmjsAAAAA", "Program log: Error: exceeds desired slippage limit"}},
		{path: InstructionPath{0, 0, 0}, want: []string{"Program log: Instruction: Transfer"}},
		{path: InstructionPath{1}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.path.String(), func(t *testing.T) {
			got := p.FilterByInstructionPath(failedSwapLogs, tt.path)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestFilterSecondTopLevelInstruction(t *testing.T) {
	logs := []string{
		"Program " + tokenID + " invoke [1]",
		"Program log: first",
		"Program " + tokenID + " success",
		"Program " + routerID + " invoke [1]",
		"Program log: second",
		"Program " + routerID + " success",
	}
	got := NewParser().FilterByInstructionPath(logs, InstructionPath{1})
	if len(got) != 1 || got[0] != "Program log: second" {
		t.Errorf("expected second instruction's log, got %v", got)
	}
}
