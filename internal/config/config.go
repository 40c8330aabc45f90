package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Engine    EngineConfig    `toml:"engine"`
	Render    RenderConfig    `toml:"render"`
	Car       CarConfig       `toml:"car"`
	Camera    CameraConfig    `toml:"camera"`
	Controls  ControlsConfig  `toml:"controls"`
	Assets    AssetsConfig    `toml:"assets"`
	Scripting ScriptingConfig `toml:"scripting"`
	Logging   LoggingConfig   `toml:"logging"`
}

type EngineConfig struct {
	TickRate       time.Duration `toml:"tick_rate"`
	Handoff        string        `toml:"handoff"` // "lock" or "double_buffer"
	InputQueueSize int           `toml:"input_queue_size"`
}

type RenderConfig struct {
	Mode        string        `toml:"mode"` // "headless" or "websocket"
	FrameRate   time.Duration `toml:"frame_rate"`
	BindAddress string        `toml:"bind_address"`
	StatsEvery  int           `toml:"stats_every"` // frames between headless stat lines
}

type CarConfig struct {
	Speed           float32 `toml:"speed"`
	TurnSpeed       float32 `toml:"turn_speed"`
	AccelRate       float32 `toml:"accel_rate"`       // units/s^2
	LateralFriction float32 `toml:"lateral_friction"` // fraction of sideways velocity removed per tick
}

// CameraConfig holds the chase-camera tuning. Signs follow the renderer's
// Y-down convention; flip them for a Y-up target.
type CameraConfig struct {
	BackFactor float32    `toml:"back_factor"`
	UpOffset   [3]float32 `toml:"up_offset"`
	LerpRate   float32    `toml:"lerp_rate"`
	LookAhead  float32    `toml:"look_ahead"`
	WorldUp    [3]float32 `toml:"world_up"`
}

type ControlsConfig struct {
	Forward string `toml:"forward"`
	Back    string `toml:"back"`
	Left    string `toml:"left"`
	Right   string `toml:"right"`
}

type AssetsConfig struct {
	Manifest   string `toml:"manifest"`
	MeshDir    string `toml:"mesh_dir"`
	TextureDir string `toml:"texture_dir"`
}

type ScriptingConfig struct {
	Dir string `toml:"dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration the engine runs with when a key is
// absent from the file.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			TickRate:       time.Second / 60,
			Handoff:        "lock",
			InputQueueSize: 64,
		},
		Render: RenderConfig{
			Mode:        "headless",
			FrameRate:   time.Second / 144,
			BindAddress: "127.0.0.1:7420",
			StatsEvery:  600,
		},
		Car: CarConfig{
			Speed:           20.0,
			TurnSpeed:       1.5,
			AccelRate:       20.0,
			LateralFriction: 0.1,
		},
		Camera: CameraConfig{
			BackFactor: -5.0,
			UpOffset:   [3]float32{0, -3, 0},
			LerpRate:   5.0,
			LookAhead:  5.0,
			WorldUp:    [3]float32{0, 1, 0},
		},
		Controls: ControlsConfig{
			Forward: "W",
			Back:    "S",
			Left:    "A",
			Right:   "D",
		},
		Assets: AssetsConfig{
			Manifest:   "assets/manifest.yaml",
			MeshDir:    "assets/meshes",
			TextureDir: "assets/textures",
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) validate() error {
	if c.Engine.TickRate <= 0 {
		return fmt.Errorf("engine.tick_rate must be positive, got %s", c.Engine.TickRate)
	}
	if c.Render.FrameRate <= 0 {
		return fmt.Errorf("render.frame_rate must be positive, got %s", c.Render.FrameRate)
	}
	switch c.Engine.Handoff {
	case "lock", "double_buffer":
	default:
		return fmt.Errorf("engine.handoff must be lock or double_buffer, got %q", c.Engine.Handoff)
	}
	switch c.Render.Mode {
	case "headless", "websocket":
	default:
		return fmt.Errorf("render.mode must be headless or websocket, got %q", c.Render.Mode)
	}
	return nil
}
