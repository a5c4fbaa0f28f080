// Package program is the router's instruction surface: Anchor-style
// instruction encoding, a processor that executes decoded instructions
// against the whitelist store and the swap router, and builders for clients
// of a deployed router program.
package program

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/pool/whirlpools"
	"github.com/lugondev/go-cpiswap/pkg/anchor"
	"github.com/lugondev/go-cpiswap/pkg/utils"
)

// Instruction names, in the snake case their discriminators are derived from.
const (
	NameInitialize       = "initialize"
	NameManageWhitelist  = "manage_whitelist"
	NameSetPause         = "set_pause"
	NameSwapOnRaydium    = "swap_on_raydium"
	NameSwapOnWhirlpools = "swap_on_whirlpools"
)

var matcher = anchor.NewInstructionMatcher(
	NameInitialize,
	NameManageWhitelist,
	NameSetPause,
	NameSwapOnRaydium,
	NameSwapOnWhirlpools,
)

// Instruction is a decoded router instruction.
type Instruction interface {
	Name() string
	MarshalWithEncoder(enc *bin.Encoder) error
	UnmarshalWithDecoder(dec *bin.Decoder) error
}

type Initialize struct{}

func (*Initialize) Name() string                            { return NameInitialize }
func (*Initialize) MarshalWithEncoder(*bin.Encoder) error   { return nil }
func (*Initialize) UnmarshalWithDecoder(*bin.Decoder) error { return nil }

type ManageWhitelist struct {
	Add bool
}

func (*ManageWhitelist) Name() string { return NameManageWhitelist }

func (m *ManageWhitelist) MarshalWithEncoder(enc *bin.Encoder) error {
	return enc.WriteBool(m.Add)
}

func (m *ManageWhitelist) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	m.Add, err = dec.ReadBool()
	return err
}

type SetPause struct {
	Paused bool
}

func (*SetPause) Name() string { return NameSetPause }

func (s *SetPause) MarshalWithEncoder(enc *bin.Encoder) error {
	return enc.WriteBool(s.Paused)
}

func (s *SetPause) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	s.Paused, err = dec.ReadBool()
	return err
}

type SwapOnRaydium struct {
	AmountIn         uint64
	MinimumAmountOut uint64
}

func (*SwapOnRaydium) Name() string { return NameSwapOnRaydium }

func (s *SwapOnRaydium) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint64(s.AmountIn, bin.LE); err != nil {
		return err
	}
	return enc.WriteUint64(s.MinimumAmountOut, bin.LE)
}

func (s *SwapOnRaydium) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if s.AmountIn, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	s.MinimumAmountOut, err = dec.ReadUint64(bin.LE)
	return err
}

// SwapOnWhirlpools carries the Whirlpools swap arguments unchanged.
type SwapOnWhirlpools struct {
	whirlpools.SwapArgs
}

func (*SwapOnWhirlpools) Name() string { return NameSwapOnWhirlpools }

// Encode returns the discriminator of ix followed by its borsh args.
func Encode(ix Instruction) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(anchor.InstructionDiscriminator(ix.Name()).Bytes(), false); err != nil {
		return nil, err
	}
	if err := ix.MarshalWithEncoder(enc); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", ix.Name(), err)
	}
	return buf.Bytes(), nil
}

// Decode parses instruction data. Unknown discriminators, short data and
// trailing bytes fail with InvalidInstruction.
func Decode(data []byte) (Instruction, error) {
	_, name := matcher.Match(data)

	var ix Instruction
	switch name {
	case NameInitialize:
		ix = &Initialize{}
	case NameManageWhitelist:
		ix = &ManageWhitelist{}
	case NameSetPause:
		ix = &SetPause{}
	case NameSwapOnRaydium:
		ix = &SwapOnRaydium{}
	case NameSwapOnWhirlpools:
		ix = &SwapOnWhirlpools{}
	default:
		return nil, errors.InvalidInstruction("unknown instruction discriminator", nil)
	}

	dec := bin.NewBorshDecoder(data[anchor.Size:])
	if err := ix.UnmarshalWithDecoder(dec); err != nil {
		return nil, errors.InvalidInstruction(fmt.Sprintf("malformed %s arguments", name), err)
	}
	if dec.Remaining() != 0 {
		return nil, errors.InvalidInstruction(fmt.Sprintf("%d trailing bytes after %s arguments", dec.Remaining(), name), nil)
	}
	return ix, nil
}

// LogName is the name an Anchor program logs on entry, e.g. "SwapOnRaydium".
func LogName(ix Instruction) string {
	return utils.ToPascalCase(ix.Name())
}
