// Package log parses Solana transaction log messages.
//
// The router uses it to find which program in a CPI chain failed and the
// reason that program logged, so an external pool's error can be surfaced
// verbatim. It also recovers the instruction name an Anchor program logs on
// entry ("Program log: Instruction: Swap").
package log

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LogType represents the type of a log message.
type LogType int

const (
	LogTypeUnknown LogType = iota
	// LogTypeInvoke is "Program X invoke [N]".
	LogTypeInvoke
	// LogTypeSuccess is "Program X success".
	LogTypeSuccess
	// LogTypeFailed is "Program X failed: REASON".
	LogTypeFailed
	// LogTypeLog is "Program log: MESSAGE".
	LogTypeLog
	// LogTypeComputeUnits is "Program X consumed N of M compute units".
	LogTypeComputeUnits
)

func (lt LogType) String() string {
	switch lt {
	case LogTypeInvoke:
		return "Invoke"
	case LogTypeSuccess:
		return "Success"
	case LogTypeFailed:
		return "Failed"
	case LogTypeLog:
		return "Log"
	case LogTypeComputeUnits:
		return "ComputeUnits"
	default:
		return "Unknown"
	}
}

// ParsedLog is one classified log line.
type ParsedLog struct {
	Type LogType

	// StackHeight is the call depth, 1 for top-level. Set on Invoke lines.
	StackHeight int

	ProgramID string

	// Message is the text of a Log line or the reason of a Failed line.
	Message string

	ComputeUnits *uint64

	RawLog string
}

// Failure describes the innermost program that failed in a transaction.
type Failure struct {
	ProgramID string

	// Reason is the text after "failed: ", e.g. "custom program error: 0x1771".
	Reason string

	// CustomCode is set when Reason is a custom program error.
	CustomCode *uint32

	// Message is the last "Program log:" line the failing program wrote,
	// usually its own description of the error.
	Message string

	StackHeight int
}

func (f *Failure) String() string {
	if f.Message != "" {
		return fmt.Sprintf("program %s failed: %s (%s)", f.ProgramID, f.Reason, f.Message)
	}
	return fmt.Sprintf("program %s failed: %s", f.ProgramID, f.Reason)
}

// LogParser parses Solana transaction logs.
type LogParser struct {
	invoke       *regexp.Regexp
	success      *regexp.Regexp
	failed       *regexp.Regexp
	log          *regexp.Regexp
	computeUnits *regexp.Regexp
	custom       *regexp.Regexp
	instruction  *regexp.Regexp
}

// NewParser creates a new LogParser.
func NewParser() *LogParser {
	return &LogParser{
		invoke:       regexp.MustCompile(`^Program (\S+) invoke \[(\d+)\]`),
		success:      regexp.MustCompile(`^Program (\S+) success`),
		failed:       regexp.MustCompile(`^Program (\S+) failed(?:: (.+))?$`),
		log:          regexp.MustCompile(`^Program log: (.+)$`),
		computeUnits: regexp.MustCompile(`^Program (\S+) consumed (\d+) of \d+ compute units`),
		custom:       regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`),
		instruction:  regexp.MustCompile(`^Instruction: (\w+)$`),
	}
}

// Parse classifies a single log message.
func (p *LogParser) Parse(logMessage string) *ParsedLog {
	result := &ParsedLog{
		Type:   LogTypeUnknown,
		RawLog: logMessage,
	}

	if m := p.invoke.FindStringSubmatch(logMessage); m != nil {
		result.Type = LogTypeInvoke
		result.ProgramID = m[1]
		result.StackHeight, _ = strconv.Atoi(m[2])
		return result
	}

	if m := p.success.FindStringSubmatch(logMessage); m != nil {
		result.Type = LogTypeSuccess
		result.ProgramID = m[1]
		return result
	}

	if m := p.failed.FindStringSubmatch(logMessage); m != nil {
		result.Type = LogTypeFailed
		result.ProgramID = m[1]
		result.Message = m[2]
		return result
	}

	if m := p.log.FindStringSubmatch(logMessage); m != nil {
		result.Type = LogTypeLog
		result.Message = m[1]
		return result
	}

	if m := p.computeUnits.FindStringSubmatch(logMessage); m != nil {
		result.Type = LogTypeComputeUnits
		result.ProgramID = m[1]
		if cu, err := strconv.ParseUint(m[2], 10, 64); err == nil {
			result.ComputeUnits = &cu
		}
		return result
	}

	return result
}

// ParseAll parses all log messages.
func (p *LogParser) ParseAll(logMessages []string) []*ParsedLog {
	results := make([]*ParsedLog, 0, len(logMessages))
	for _, l := range logMessages {
		results = append(results, p.Parse(l))
	}
	return results
}

// ExtractProgramLogs returns the text of every "Program log:" line.
func (p *LogParser) ExtractProgramLogs(logMessages []string) []string {
	var logs []string
	for _, l := range logMessages {
		if parsed := p.Parse(l); parsed.Type == LogTypeLog {
			logs = append(logs, parsed.Message)
		}
	}
	return logs
}

// InstructionNames returns the names Anchor programs log on entry, in order.
func (p *LogParser) InstructionNames(logMessages []string) []string {
	var names []string
	for _, msg := range p.ExtractProgramLogs(logMessages) {
		if m := p.instruction.FindStringSubmatch(msg); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

// FindFailure returns the first program that failed, which is the innermost
// one since a failing CPI fails before its callers. It returns nil when no
// program failed.
func (p *LogParser) FindFailure(logMessages []string) *Failure {
	type frame struct {
		programID string
		lastLog   string
	}
	var stack []frame

	for _, l := range logMessages {
		parsed := p.Parse(l)

		switch parsed.Type {
		case LogTypeInvoke:
			stack = append(stack, frame{programID: parsed.ProgramID})

		case LogTypeLog:
			if len(stack) > 0 {
				stack[len(stack)-1].lastLog = parsed.Message
			}

		case LogTypeSuccess:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case LogTypeFailed:
			f := &Failure{
				ProgramID:   parsed.ProgramID,
				Reason:      parsed.Message,
				StackHeight: len(stack),
			}
			if len(stack) > 0 && stack[len(stack)-1].programID == parsed.ProgramID {
				f.Message = stack[len(stack)-1].lastLog
			}
			if m := p.custom.FindStringSubmatch(parsed.Message); m != nil {
				if code, err := strconv.ParseUint(m[1], 16, 32); err == nil {
					c := uint32(code)
					f.CustomCode = &c
				}
			}
			return f
		}
	}
	return nil
}

// InstructionPath is the position of an instruction in the call tree:
// [0] is the first top-level instruction, [0, 1] its second inner instruction.
type InstructionPath []uint8

func (path InstructionPath) String() string {
	parts := make([]string, len(path))
	for i, idx := range path {
		parts[i] = strconv.Itoa(int(idx))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Equals checks if two paths are equal.
func (path InstructionPath) Equals(other InstructionPath) bool {
	if len(path) != len(other) {
		return false
	}
	for i := range path {
		if path[i] != other[i] {
			return false
		}
	}
	return true
}

// FilterByInstructionPath keeps the "Program log:" lines written by the
// instruction at targetPath, excluding its inner instructions.
func (p *LogParser) FilterByInstructionPath(logMessages []string, targetPath InstructionPath) []string {
	var filtered []string
	var current InstructionPath
	// next[d] is the index the next invoke at depth d+1 will take.
	var next []uint8

	for _, l := range logMessages {
		parsed := p.Parse(l)

		switch parsed.Type {
		case LogTypeInvoke:
			depth := len(current)
			for len(next) <= depth {
				next = append(next, 0)
			}
			next = next[:depth+1]
			current = append(current, next[depth])
			next[depth]++

		case LogTypeSuccess, LogTypeFailed:
			if len(current) > 0 {
				current = current[:len(current)-1]
			}

		case LogTypeLog:
			if current.Equals(targetPath) {
				filtered = append(filtered, l)
			}
		}
	}

	return filtered
}
