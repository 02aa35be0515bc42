package funkin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every stage configuration validation error.
var ErrInvalidConfig = errors.New("invalid config")

// StageConfig describes one game state: its song and sprites.
type StageConfig struct {
	// AssetDir is the directory (inside the asset file system) holding
	// sprite sheets.
	AssetDir string `yaml:"assetDir"`
	Debug    bool   `yaml:"debug"`
	// Background is the clear color, "#RRGGBB[AA]". Black when unset.
	Background *Color `yaml:"background"`
	// FPS is the default animation frame rate; 0 means 24.
	FPS     float64        `yaml:"fps"`
	Song    SongConfig     `yaml:"song"`
	Sprites []SpriteConfig `yaml:"sprites"`
}

// SongConfig describes the music a stage syncs to.
type SongConfig struct {
	Name         string        `yaml:"name"`
	Music        string        `yaml:"music"`
	BPM          float64       `yaml:"bpm"`
	Loop         bool          `yaml:"loop"`
	Volume       float64       `yaml:"volume"`
	TempoChanges []TempoChange `yaml:"tempoChanges"`
}

// SpriteConfig places one animated sprite. With no Clips, every animation
// in the asset's atlas is registered under its own name.
type SpriteConfig struct {
	Name  string       `yaml:"name"`
	Asset string       `yaml:"asset"`
	X     float64      `yaml:"x"`
	Y     float64      `yaml:"y"`
	Clips []ClipConfig `yaml:"clips"`
	// Play names the clip started when the stage loads.
	Play string `yaml:"play"`
	Loop bool   `yaml:"loop"`
}

// ClipConfig registers a clip from an atlas animation. Indices, when set,
// replace the animation's own frame range.
type ClipConfig struct {
	Name    string  `yaml:"name"`
	Prefix  string  `yaml:"prefix"`
	Indices []int   `yaml:"indices"`
	FPS     float64 `yaml:"fps"`
}

// UnmarshalYAML decodes a hex color string.
func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseHexColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// LoadStageConfig decodes and validates a YAML stage configuration.
// Unknown keys are rejected.
func LoadStageConfig(data []byte) (*StageConfig, error) {
	var cfg StageConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("funkin: parse stage config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadStageConfigFile reads and decodes a stage configuration from fsys.
func LoadStageConfigFile(fsys fs.FS, name string) (*StageConfig, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("funkin: read stage config: %w", err)
	}
	return LoadStageConfig(data)
}

func (c *StageConfig) applyDefaults() {
	if c.Song.BPM == 0 {
		c.Song.BPM = DefaultBPM
	}
	if c.Song.Volume == 0 {
		c.Song.Volume = 1
	}
	for i := range c.Sprites {
		if c.Sprites[i].Name == "" {
			c.Sprites[i].Name = c.Sprites[i].Asset
		}
		for j := range c.Sprites[i].Clips {
			if c.Sprites[i].Clips[j].Prefix == "" {
				c.Sprites[i].Clips[j].Prefix = c.Sprites[i].Clips[j].Name
			}
		}
	}
}

// Validate reports the first structural problem in the configuration.
func (c *StageConfig) Validate() error {
	if c.FPS < 0 {
		return fmt.Errorf("funkin: fps %v is negative: %w", c.FPS, ErrInvalidConfig)
	}
	if !validBPM(c.Song.BPM) {
		return fmt.Errorf("funkin: song bpm %v: %w", c.Song.BPM, ErrInvalidConfig)
	}
	if c.Song.Volume < 0 || c.Song.Volume > 1 {
		return fmt.Errorf("funkin: song volume %v outside [0, 1]: %w", c.Song.Volume, ErrInvalidConfig)
	}
	for _, tc := range c.Song.TempoChanges {
		if tc.Step < 0 || !validBPM(tc.BPM) {
			return fmt.Errorf("funkin: tempo change at step %d (bpm %v): %w", tc.Step, tc.BPM, ErrInvalidConfig)
		}
	}

	seen := make(map[string]bool, len(c.Sprites))
	for i, sp := range c.Sprites {
		if sp.Asset == "" {
			return fmt.Errorf("funkin: sprite %d has no asset: %w", i, ErrInvalidConfig)
		}
		if seen[sp.Name] {
			return fmt.Errorf("funkin: duplicate sprite %q: %w", sp.Name, ErrInvalidConfig)
		}
		seen[sp.Name] = true

		clipNames := make(map[string]bool, len(sp.Clips))
		for _, cl := range sp.Clips {
			if cl.Name == "" {
				return fmt.Errorf("funkin: sprite %q has a clip with no name: %w", sp.Name, ErrInvalidConfig)
			}
			if cl.Indices != nil && len(cl.Indices) == 0 {
				return fmt.Errorf("funkin: clip %q of sprite %q has empty indices: %w", cl.Name, sp.Name, ErrInvalidConfig)
			}
			if cl.FPS < 0 {
				return fmt.Errorf("funkin: clip %q of sprite %q has negative fps: %w", cl.Name, sp.Name, ErrInvalidConfig)
			}
			clipNames[cl.Name] = true
		}
		if sp.Play != "" && len(sp.Clips) > 0 && !clipNames[sp.Play] {
			return fmt.Errorf("funkin: sprite %q plays undeclared clip %q: %w", sp.Name, sp.Play, ErrInvalidConfig)
		}
	}
	return nil
}

// FrameDuration returns the default frame duration of the stage.
func (c *StageConfig) FrameDuration() time.Duration {
	return fpsDuration(c.FPS, DefaultFrameDuration)
}

// Assets returns the distinct asset names used by the stage's sprites, in
// first-use order.
func (c *StageConfig) Assets() []string {
	seen := make(map[string]bool, len(c.Sprites))
	var out []string
	for _, sp := range c.Sprites {
		if !seen[sp.Asset] {
			seen[sp.Asset] = true
			out = append(out, sp.Asset)
		}
	}
	return out
}

func fpsDuration(fps float64, fallback time.Duration) time.Duration {
	if fps <= 0 {
		return fallback
	}
	return time.Duration(float64(time.Second) / fps)
}
