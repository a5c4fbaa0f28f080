package anchor

import (
	"testing"
)

func TestInstructionDiscriminator(t *testing.T) {
	// Orca publishes the swap discriminator; it is the Anchor sighash of "swap".
	want := Discriminator{248, 198, 158, 145, 225, 117, 135, 200}
	if got := InstructionDiscriminator("swap"); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}

	if InstructionDiscriminator("SwapOnRaydium") != InstructionDiscriminator("swap_on_raydium") {
		t.Error("expected case-insensitive naming to produce the same discriminator")
	}
}

func TestAccountDiscriminatorDiffersFromInstruction(t *testing.T) {
	if AccountDiscriminator("whitelist") == InstructionDiscriminator("whitelist") {
		t.Error("account and instruction namespaces must not collide")
	}
	if AccountDiscriminator("whitelist") != AccountDiscriminator("Whitelist") {
		t.Error("expected account names to normalize to PascalCase")
	}
}

func TestMatcher(t *testing.T) {
	m := NewInstructionMatcher("initialize", "manage_whitelist", "swap_on_raydium")

	tests := []struct {
		name     string
		data     []byte
		expected int
	}{
		{
			name:     "first instruction",
			data:     InstructionDiscriminator("initialize").Bytes(),
			expected: 0,
		},
		{
			name:     "with trailing args",
			data:     append(InstructionDiscriminator("swap_on_raydium").Bytes(), 1, 2, 3),
			expected: 2,
		},
		{
			name:     "unknown",
			data:     InstructionDiscriminator("close").Bytes(),
			expected: -1,
		},
		{
			name:     "too short",
			data:     []byte{1, 2, 3},
			expected: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, _ := m.Match(tt.data)
			if idx != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, idx)
			}
		})
	}

	if m.Len() != 3 {
		t.Errorf("expected 3 names, got %d", m.Len())
	}
}
