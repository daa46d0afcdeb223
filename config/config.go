package config

import (
	"fmt"
	"io"
	"os"

	"github.com/leijurv/propra_go/propra"
	"github.com/op/go-logging"
	"gopkg.in/yaml.v3"
)

var log = logging.MustGetLogger("propra/config")

const (
	DefaultCompression    = "uncompressed"
	DefaultBufferSize     = 64 * 1024
	DefaultLogLevel       = "INFO"
	DefaultBase32Alphabet = propra.Base32HexAlphabet

	minBufferSize = 512
	maxBufferSize = 64 * 1024 * 1024
)

type ConverterConfig struct {
	DefaultCompression string `yaml:"default_compression"`
	BufferSize         int    `yaml:"buffer_size"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type BaseNConfig struct {
	Base32Alphabet string `yaml:"base32_alphabet"`
}

type Config struct {
	ConverterConfig `yaml:"converter"`
	LoggingConfig   `yaml:"logging"`
	BaseNConfig     `yaml:"base_n"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	var c Config
	c.setDefaults()
	return c
}

// LoadConfiguration reads a YAML configuration file. An empty path yields
// the defaults. Missing or invalid values fall back to their defaults.
func LoadConfiguration(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var c Config
	// an empty file decodes to io.EOF and means all defaults
	if err := yaml.NewDecoder(f).Decode(&c); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.setDefaults()
	log.Debugf("loaded configuration from %s", path)
	return c, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	err = enc.Encode(c)
	if closeErr := enc.Close(); err == nil {
		err = closeErr
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

// LogLevel parses the configured level
func (c *Config) LogLevel() logging.Level {
	level, err := logging.LogLevel(c.LoggingConfig.Level)
	if err != nil {
		return logging.INFO
	}
	return level
}

// setDefaults fills empty and incorrect values with default ones
func (c *Config) setDefaults() {
	cc := &c.ConverterConfig
	switch cc.DefaultCompression {
	case "uncompressed", "rle", "huffman", "auto":
	default:
		if cc.DefaultCompression != "" {
			log.Warningf("invalid converter default_compression %q, using %s", cc.DefaultCompression, DefaultCompression)
		}
		cc.DefaultCompression = DefaultCompression
	}
	if cc.BufferSize < minBufferSize || cc.BufferSize > maxBufferSize {
		if cc.BufferSize != 0 {
			log.Warningf("invalid converter buffer_size %d, using %d", cc.BufferSize, DefaultBufferSize)
		}
		cc.BufferSize = DefaultBufferSize
	}

	lc := &c.LoggingConfig
	if _, err := logging.LogLevel(lc.Level); err != nil {
		if lc.Level != "" {
			log.Warningf("invalid logging level %q, using %s", lc.Level, DefaultLogLevel)
		}
		lc.Level = DefaultLogLevel
	}

	bc := &c.BaseNConfig
	if _, err := propra.NewAlphabet(bc.Base32Alphabet); err != nil || len(bc.Base32Alphabet) != 32 {
		if bc.Base32Alphabet != "" {
			log.Warningf("base32_alphabet must have 32 distinct characters, using the base32hex alphabet")
		}
		bc.Base32Alphabet = DefaultBase32Alphabet
	}
}
