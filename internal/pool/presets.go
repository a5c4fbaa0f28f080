package pool

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

// Preset is a named pool account bundle loaded from YAML:
//
//	pools:
//	  - name: sol-usdc
//	    kind: raydium
//	    accounts:
//	      amm: 58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2
//	      ...
type Preset struct {
	Name      string            `yaml:"name"`
	Kind      Kind              `yaml:"kind"`
	ProgramID string            `yaml:"program_id,omitempty"`
	Accounts  map[string]string `yaml:"accounts"`
}

type presetsFile struct {
	Pools []Preset `yaml:"pools"`
}

// Presets indexes presets by name.
type Presets map[string]Preset

// LoadPresets reads a presets file.
func LoadPresets(path string) (Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}
	return ParsePresets(data)
}

func ParsePresets(data []byte) (Presets, error) {
	var f presetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	out := make(Presets, len(f.Pools))
	for _, p := range f.Pools {
		if p.Name == "" {
			return nil, fmt.Errorf("preset without name")
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("duplicate preset %q", p.Name)
		}
		switch p.Kind {
		case KindRaydium, KindWhirlpools:
		default:
			return nil, fmt.Errorf("preset %q: unknown kind %q", p.Name, p.Kind)
		}
		out[p.Name] = p
	}
	return out, nil
}

// Get returns the preset called name.
func (ps Presets) Get(name string) (Preset, error) {
	p, ok := ps[name]
	if !ok {
		return Preset{}, fmt.Errorf("no pool preset named %q", name)
	}
	return p, nil
}

// Resolve orders the preset's accounts by names. Names absent from the preset
// resolve to the zero key so adapters can apply their own defaults.
func (p Preset) Resolve(names []string) ([]solana.PublicKey, error) {
	known := make(map[string]bool, len(names))
	out := make([]solana.PublicKey, len(names))
	for i, name := range names {
		known[name] = true
		value, ok := p.Accounts[name]
		if !ok || value == "" {
			continue
		}
		pk, err := solana.PublicKeyFromBase58(value)
		if err != nil {
			return nil, fmt.Errorf("preset %q account %s: %w", p.Name, name, err)
		}
		out[i] = pk
	}
	for name := range p.Accounts {
		if !known[name] {
			return nil, fmt.Errorf("preset %q has unknown account %q", p.Name, name)
		}
	}
	return out, nil
}
