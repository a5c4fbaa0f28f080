// Package whitelist holds the persistent authorization record: one authority
// that may change the record and the set of users allowed to swap.
package whitelist

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/pkg/anchor"
)

// AccountDiscriminator prefixes every serialized Whitelist.
var AccountDiscriminator = anchor.AccountDiscriminator("Whitelist")

// Whitelist is the on-chain account. Users keeps insertion order.
type Whitelist struct {
	Authority solana.PublicKey
	Users     []solana.PublicKey
	Paused    bool
}

// New returns an empty whitelist owned by authority.
func New(authority solana.PublicKey) *Whitelist {
	return &Whitelist{Authority: authority, Users: []solana.PublicKey{}}
}

// Space is the account size needed to hold capacity users.
func Space(capacity int) int {
	return anchor.Size + 32 + 4 + 32*capacity + 1
}

func (w *Whitelist) Contains(user solana.PublicKey) bool {
	return w.indexOf(user) >= 0
}

func (w *Whitelist) indexOf(user solana.PublicKey) int {
	for i, u := range w.Users {
		if u.Equals(user) {
			return i
		}
	}
	return -1
}

func (w *Whitelist) requireAuthority(signer solana.PublicKey) error {
	if !signer.Equals(w.Authority) {
		return errors.Unauthorized(signer.String(), "signer is not the whitelist authority")
	}
	return nil
}

// Add appends user. A user that is already present is rejected rather than
// ignored so callers can tell the two outcomes apart.
func (w *Whitelist) Add(signer, user solana.PublicKey, capacity int) error {
	if err := w.requireAuthority(signer); err != nil {
		return err
	}
	if w.Contains(user) {
		return errors.DuplicateEntry(user.String())
	}
	if capacity > 0 && len(w.Users) >= capacity {
		return errors.WhitelistFull(capacity)
	}
	w.Users = append(w.Users, user)
	return nil
}

// Remove deletes user, preserving the order of the remaining entries.
func (w *Whitelist) Remove(signer, user solana.PublicKey) error {
	if err := w.requireAuthority(signer); err != nil {
		return err
	}
	idx := w.indexOf(user)
	if idx < 0 {
		return errors.NotFound(user.String())
	}
	w.Users = append(w.Users[:idx], w.Users[idx+1:]...)
	return nil
}

func (w *Whitelist) SetPaused(signer solana.PublicKey, paused bool) error {
	if err := w.requireAuthority(signer); err != nil {
		return err
	}
	w.Paused = paused
	return nil
}

func (w *Whitelist) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(AccountDiscriminator.Bytes(), false); err != nil {
		return err
	}
	if err := enc.WriteBytes(w.Authority[:], false); err != nil {
		return err
	}
	if err := enc.WriteUint32(uint32(len(w.Users)), bin.LE); err != nil {
		return err
	}
	for _, u := range w.Users {
		if err := enc.WriteBytes(u[:], false); err != nil {
			return err
		}
	}
	return enc.WriteBool(w.Paused)
}

func (w *Whitelist) UnmarshalWithDecoder(dec *bin.Decoder) error {
	disc, err := dec.ReadNBytes(anchor.Size)
	if err != nil {
		return err
	}
	if !bytes.Equal(disc, AccountDiscriminator.Bytes()) {
		return errors.InvalidAccounts(fmt.Sprintf("account discriminator %x is not a whitelist", disc))
	}

	authority, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	w.Authority = solana.PublicKeyFromBytes(authority)

	n, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return err
	}
	if int(n)*solana.PublicKeyLength > dec.Remaining() {
		return errors.InvalidAccounts(fmt.Sprintf("whitelist claims %d users but holds %d bytes", n, dec.Remaining()))
	}
	w.Users = make([]solana.PublicKey, 0, n)
	for i := uint32(0); i < n; i++ {
		u, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return err
		}
		w.Users = append(w.Users, solana.PublicKeyFromBytes(u))
	}

	w.Paused, err = dec.ReadBool()
	return err
}

// MarshalBinary serializes the whitelist in its account layout.
func (w *Whitelist) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := w.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("failed to encode whitelist: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses account data. Trailing bytes from a pre-sized account are ignored.
func Decode(data []byte) (*Whitelist, error) {
	var w Whitelist
	if err := w.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		if errors.Is(err, errors.ErrInvalidAccounts) {
			return nil, err
		}
		return nil, errors.InvalidAccounts("malformed whitelist account").WithCause(err)
	}
	return &w, nil
}
