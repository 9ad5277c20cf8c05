// Package persona holds the fixed generation profile injected into every
// relayed request: model identifier, temperature and system instruction.
//
// The instruction text is opaque to the relay. A compiled default is used
// unless PERSONA_FILE points at a YAML, TOML or JSON override.
package persona

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultName        = "ketonai"
	DefaultModel       = "gemini-2.5-flash-preview-04-17"
	DefaultTemperature = float32(0.7)

	// DefaultInstruction is the built-in persona.
	DefaultInstruction = "Make it a really friendly tone with lots of emojis and fun with kids, " +
		"sassy and cool to teenagers, polite and mature to adults, and extremely friendly " +
		"and detail-oriented to elders. Recommend keto diets and recipes tailored by age, " +
		"location, budget, food preference, and Jain/vegan/nonveg types. Recreate local " +
		"dishes as keto-friendly."

	maxTemperature = 2.0
)

var (
	ErrUnsupportedFormat = errors.New("unsupported persona file format")
	ErrEmptyInstruction  = errors.New("persona system instruction is empty")
	ErrTemperatureRange  = errors.New("persona temperature out of range")
)

// Profile is the immutable generation profile shared by all requests.
type Profile struct {
	Name              string
	Model             string
	Temperature       float32
	SystemInstruction string
}

// file mirrors the on-disk layout; unset fields keep their defaults.
type file struct {
	Name              string   `json:"name" yaml:"name" toml:"name"`
	Model             string   `json:"model" yaml:"model" toml:"model"`
	Temperature       *float32 `json:"temperature" yaml:"temperature" toml:"temperature"`
	SystemInstruction string   `json:"system_instruction" yaml:"system_instruction" toml:"system_instruction"`
}

// Default returns the built-in profile.
func Default() Profile {
	return Profile{
		Name:              DefaultName,
		Model:             DefaultModel,
		Temperature:       DefaultTemperature,
		SystemInstruction: DefaultInstruction,
	}
}

// Load returns the default profile, overridden by the file at path when path
// is non-empty.
func Load(path string) (Profile, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read persona file: %w", err)
	}

	f, err := decode(filepath.Ext(path), data)
	if err != nil {
		return Profile{}, fmt.Errorf("parse persona file %s: %w", filepath.Base(path), err)
	}

	p.apply(f)
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func decode(ext string, data []byte) (file, error) {
	var f file
	var err error

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	case ".json":
		err = sonic.Unmarshal(data, &f)
	default:
		return f, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return f, err
}

func (p *Profile) apply(f file) {
	if f.Name != "" {
		p.Name = f.Name
	}
	if f.Model != "" {
		p.Model = f.Model
	}
	if f.Temperature != nil {
		p.Temperature = *f.Temperature
	}
	if s := strings.TrimSpace(f.SystemInstruction); s != "" {
		p.SystemInstruction = s
	}
}

// Validate checks the profile can be sent to the backend.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.SystemInstruction) == "" {
		return ErrEmptyInstruction
	}
	if p.Model == "" {
		return errors.New("persona model is empty")
	}
	if p.Temperature < 0 || p.Temperature > maxTemperature {
		return fmt.Errorf("%w: %v", ErrTemperatureRange, p.Temperature)
	}
	return nil
}
