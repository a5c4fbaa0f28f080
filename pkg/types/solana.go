// Package types provides the instruction shapes passed between the router,
// the pool adapters and the invoker. They wrap solana-go types so that
// instructions can be inspected and compared in tests.
package types

import (
	"github.com/gagliardetto/solana-go"
)

// Pubkey is a Solana public key (32 bytes).
type Pubkey = solana.PublicKey

// Signature is a Solana transaction signature (64 bytes).
type Signature = solana.Signature

// AccountMeta describes a single account involved in an instruction.
type AccountMeta struct {
	// Pubkey is the public key of the account.
	Pubkey Pubkey `json:"pubkey"`

	// IsSigner indicates if the account is a signer.
	IsSigner bool `json:"is_signer"`

	// IsWritable indicates if the account is writable.
	IsWritable bool `json:"is_writable"`
}

// Readonly is a non-signer, read-only account.
func Readonly(pk Pubkey) AccountMeta {
	return AccountMeta{Pubkey: pk}
}

// Writable is a non-signer, writable account.
func Writable(pk Pubkey) AccountMeta {
	return AccountMeta{Pubkey: pk, IsWritable: true}
}

// Signer is a read-only signer.
func Signer(pk Pubkey) AccountMeta {
	return AccountMeta{Pubkey: pk, IsSigner: true}
}

// WritableSigner is a writable signer, typically a fee payer.
func WritableSigner(pk Pubkey) AccountMeta {
	return AccountMeta{Pubkey: pk, IsSigner: true, IsWritable: true}
}

// ToSolanaAccountMeta converts to solana-go AccountMeta.
func (am AccountMeta) ToSolanaAccountMeta() *solana.AccountMeta {
	return solana.NewAccountMeta(am.Pubkey, am.IsWritable, am.IsSigner)
}

// FromSolanaAccountMeta creates AccountMeta from solana-go AccountMeta.
func FromSolanaAccountMeta(meta *solana.AccountMeta) AccountMeta {
	return AccountMeta{
		Pubkey:     meta.PublicKey,
		IsSigner:   meta.IsSigner,
		IsWritable: meta.IsWritable,
	}
}

// Instruction represents a Solana instruction.
type Instruction struct {
	// ProgramID is the program that will process this instruction.
	ProgramID Pubkey `json:"program_id"`

	// Accounts is the list of accounts to pass to the program.
	Accounts []AccountMeta `json:"accounts"`

	// Data is the instruction data.
	Data []byte `json:"data"`
}

// ToSolana converts to a solana-go instruction ready for a transaction.
func (ix *Instruction) ToSolana() solana.Instruction {
	metas := make(solana.AccountMetaSlice, len(ix.Accounts))
	for i, am := range ix.Accounts {
		metas[i] = am.ToSolanaAccountMeta()
	}
	return solana.NewInstruction(ix.ProgramID, metas, ix.Data)
}

// FromSolana copies a solana-go instruction.
func FromSolana(in solana.Instruction) (*Instruction, error) {
	data, err := in.Data()
	if err != nil {
		return nil, err
	}
	metas := in.Accounts()
	ix := &Instruction{
		ProgramID: in.ProgramID(),
		Accounts:  make([]AccountMeta, len(metas)),
		Data:      data,
	}
	for i, m := range metas {
		ix.Accounts[i] = FromSolanaAccountMeta(m)
	}
	return ix, nil
}

// Signers returns the accounts flagged as signers, in order.
func (ix *Instruction) Signers() []Pubkey {
	var out []Pubkey
	for _, am := range ix.Accounts {
		if am.IsSigner {
			out = append(out, am.Pubkey)
		}
	}
	return out
}

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / float64(solana.LAMPORTS_PER_SOL)
}
