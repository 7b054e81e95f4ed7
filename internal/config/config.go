package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Sim       SimConfig       `toml:"sim"`
	Map       MapConfig       `toml:"map"`
	Players   []PlayerConfig  `toml:"players"`
	Save      SaveConfig      `toml:"save"`
	Database  DatabaseConfig  `toml:"database"`
	Data      DataConfig      `toml:"data"`
	Scripting ScriptingConfig `toml:"scripting"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type SimConfig struct {
	TickRate          time.Duration `toml:"tick_rate"`
	Speed             float64       `toml:"speed"`   // game ms per wall-clock ms
	Buckets           int           `toml:"buckets"` // command queue buckets
	InQueueSize       int           `toml:"in_queue_size"`
	MaxPacketsPerTick int           `toml:"max_packets_per_tick"`
	Stream            string        `toml:"stream"` // framed command packets to feed in; "-" is stdin
}

type MapConfig struct {
	Width  int16 `toml:"width"`
	Height int16 `toml:"height"`
}

type PlayerConfig struct {
	Number uint8  `toml:"number"`
	Name   string `toml:"name"`
}

type SaveConfig struct {
	Dir           string `toml:"dir"`
	AutosaveEvery int    `toml:"autosave_every"` // ticks; 0 disables autosave
	Level         string `toml:"level"`          // zstd: fastest, default, better, best
	Resume        string `toml:"resume"`         // save file to continue from
}

type DatabaseConfig struct {
	Driver          string        `toml:"driver"` // "postgres", "sqlite" or "none"
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type DataConfig struct {
	Buildings string `toml:"buildings"`
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
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	if c.Sim.TickRate <= 0 {
		return fmt.Errorf("sim.tick_rate must be positive")
	}
	if c.Sim.Speed <= 0 {
		return fmt.Errorf("sim.speed must be positive")
	}
	if c.Sim.Buckets <= 0 {
		return fmt.Errorf("sim.buckets must be positive")
	}
	if c.Map.Width <= 0 || c.Map.Height <= 0 {
		return fmt.Errorf("map size %dx%d", c.Map.Width, c.Map.Height)
	}
	seen := make(map[uint8]bool, len(c.Players))
	for _, p := range c.Players {
		if p.Number == 0 || seen[p.Number] {
			return fmt.Errorf("player number %d invalid or repeated", p.Number)
		}
		seen[p.Number] = true
	}
	switch c.Database.Driver {
	case "postgres", "sqlite", "none":
	default:
		return fmt.Errorf("database.driver %q", c.Database.Driver)
	}
	switch c.Save.Level {
	case "fastest", "default", "better", "best":
	default:
		return fmt.Errorf("save.level %q", c.Save.Level)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "lockstep",
		},
		Sim: SimConfig{
			TickRate:          50 * time.Millisecond,
			Speed:             1.0,
			Buckets:           256,
			InQueueSize:       128,
			MaxPacketsPerTick: 64,
		},
		Map: MapConfig{
			Width:  64,
			Height: 64,
		},
		Players: []PlayerConfig{
			{Number: 1, Name: "Player 1"},
			{Number: 2, Name: "Player 2"},
		},
		Save: SaveConfig{
			Dir:           "saves",
			AutosaveEvery: 1200,
			Level:         "default",
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "lockstep.db",
			MaxOpenConns:    8,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Data: DataConfig{
			Buildings: "data/yaml/building_list.yaml",
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
