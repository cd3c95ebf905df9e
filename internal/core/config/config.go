package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/avatarsync/avatarsync/internal/core/avatar"
)

// Server holds the websocket host and tick loop settings.
type Server struct {
	Addr         string        `yaml:"addr"`
	TickRateHz   int           `yaml:"tick_rate_hz"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxClients   int           `yaml:"max_clients"`
}

// UnmarshalYAML decodes the timeouts from duration strings, keeping current
// values for absent fields.
func (s *Server) UnmarshalYAML(node *yaml.Node) error {
	type raw struct {
		Addr         string `yaml:"addr"`
		TickRateHz   int    `yaml:"tick_rate_hz"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
		MaxClients   int    `yaml:"max_clients"`
	}
	r := raw{Addr: s.Addr, TickRateHz: s.TickRateHz, MaxClients: s.MaxClients}
	if err := node.Decode(&r); err != nil {
		return err
	}
	s.Addr = r.Addr
	s.TickRateHz = r.TickRateHz
	s.MaxClients = r.MaxClients
	if r.ReadTimeout != "" {
		d, err := time.ParseDuration(r.ReadTimeout)
		if err != nil {
			return fmt.Errorf("read_timeout: %w", err)
		}
		s.ReadTimeout = d
	}
	if r.WriteTimeout != "" {
		d, err := time.ParseDuration(r.WriteTimeout)
		if err != nil {
			return fmt.Errorf("write_timeout: %w", err)
		}
		s.WriteTimeout = d
	}
	return nil
}

// Log holds logger settings.
type Log struct {
	Level string `yaml:"level"`
}

// Config is the full application configuration. Zero or missing fields fall
// back to the corresponding defaults at the point of use.
type Config struct {
	Server Server        `yaml:"server"`
	Avatar avatar.Config `yaml:"avatar"`
	Log    Log           `yaml:"log"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:         ":8080",
			TickRateHz:   60,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Second,
			MaxClients:   64,
		},
		Avatar: avatar.DefaultConfig(),
		Log:    Log{Level: "info"},
	}
}

// Load reads YAML from r over the defaults, so a partial file only overrides
// what it mentions.
func Load(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// LoadFile loads YAML configuration from path. A missing file is not an
// error: the defaults apply.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Load(f)
}
