package config

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"github.com/gennadiy1g/csvbulkload/loader"
)

// Defaults applied when neither the config file nor the CLI provides a
// value.
const (
	DefaultSeparator = ","
	DefaultQuote     = `"`
	DefaultEscape    = `\`
	DefaultEncoding  = "utf-8"
)

type ConnectionConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ParserConfig struct {
	Separator string `toml:"separator"`
	Quote     string `toml:"quote"`
	Escape    string `toml:"escape"`
	Threads   int    `toml:"threads"`
	Encoding  string `toml:"encoding"`
}

type Config struct {
	Connection ConnectionConfig `toml:"connection"`
	Parser     ParserConfig     `toml:"parser"`
}

// Load reads a TOML config file. A missing parser section falls back to
// the defaults; connection settings stay zero until the loader validates
// and fills them.
func Load(configPath string) (*Config, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if _, err := toml.Decode(string(configData), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// Default returns a config with the parser defaults filled in.
func Default() *Config {
	return &Config{
		Parser: ParserConfig{
			Separator: DefaultSeparator,
			Quote:     DefaultQuote,
			Escape:    DefaultEscape,
			Encoding:  DefaultEncoding,
		},
	}
}

// ConnectionSettings converts the connection section for the loaders.
func (c *Config) ConnectionSettings() loader.ConnectionSettings {
	return loader.ConnectionSettings{
		Host:     c.Connection.Host,
		Port:     c.Connection.Port,
		Database: c.Connection.Database,
		User:     c.Connection.User,
		Password: c.Connection.Password,
	}
}

// Validate checks the parser section. Separator, quote and escape must
// each be a single code point and the separator must differ from the
// quote, otherwise quoted fields are ambiguous.
func (c *Config) Validate() error {
	separator, err := singleRune("separator", c.Parser.Separator)
	if err != nil {
		return err
	}
	quote, err := singleRune("quote", c.Parser.Quote)
	if err != nil {
		return err
	}
	if _, err := singleRune("escape", c.Parser.Escape); err != nil {
		return err
	}
	if separator == quote {
		return fmt.Errorf("separator and quote must differ")
	}
	if c.Parser.Threads < 0 {
		return fmt.Errorf("threads must be >= 0")
	}
	return nil
}

// Separator returns the parser separator as a rune.
func (c *Config) Separator() rune { return firstRune(c.Parser.Separator, ',') }

// Quote returns the parser quote as a rune.
func (c *Config) Quote() rune { return firstRune(c.Parser.Quote, '"') }

// Escape returns the parser escape as a rune.
func (c *Config) Escape() rune { return firstRune(c.Parser.Escape, '\\') }

func singleRune(name, value string) (rune, error) {
	if utf8.RuneCountInString(value) != 1 {
		return 0, fmt.Errorf("%s must be a single character, got %q", name, value)
	}
	r, _ := utf8.DecodeRuneInString(value)
	return r, nil
}

func firstRune(value string, fallback rune) rune {
	if value == "" {
		return fallback
	}
	r, _ := utf8.DecodeRuneInString(value)
	return r
}
