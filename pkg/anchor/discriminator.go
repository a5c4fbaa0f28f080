// Package anchor computes and matches the 8-byte discriminators that prefix
// Anchor instruction data and account data.
package anchor

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/lugondev/go-cpiswap/pkg/utils"
)

// Size is the length of a discriminator in bytes.
const Size = 8

type Discriminator [Size]byte

// InstructionDiscriminator returns sha256("global:<snake_name>")[:8].
func InstructionDiscriminator(name string) Discriminator {
	return sighash("global", utils.ToSnakeCase(name))
}

// AccountDiscriminator returns sha256("account:<PascalName>")[:8].
func AccountDiscriminator(name string) Discriminator {
	return sighash("account", utils.ToPascalCase(name))
}

func sighash(namespace, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d Discriminator
	copy(d[:], sum[:Size])
	return d
}

// FromBytes reads the discriminator at the start of data.
func FromBytes(data []byte) (Discriminator, bool) {
	var d Discriminator
	if len(data) < Size {
		return d, false
	}
	copy(d[:], data[:Size])
	return d, true
}

func (d Discriminator) Bytes() []byte {
	return d[:]
}

func (d Discriminator) String() string {
	return hex.EncodeToString(d[:])
}

// Matcher resolves discriminators back to the names they were derived from.
type Matcher struct {
	discriminators map[Discriminator]int
	names          []string
}

// NewInstructionMatcher builds a matcher over instruction names.
func NewInstructionMatcher(names ...string) *Matcher {
	m := &Matcher{
		discriminators: make(map[Discriminator]int, len(names)),
		names:          make([]string, len(names)),
	}
	for i, name := range names {
		m.discriminators[InstructionDiscriminator(name)] = i
		m.names[i] = name
	}
	return m
}

// Match returns the index and name of the instruction whose discriminator
// prefixes data, or -1 when none does.
func (m *Matcher) Match(data []byte) (int, string) {
	d, ok := FromBytes(data)
	if !ok {
		return -1, ""
	}
	if idx, exists := m.discriminators[d]; exists {
		return idx, m.names[idx]
	}
	return -1, ""
}

func (m *Matcher) Len() int {
	return len(m.names)
}
