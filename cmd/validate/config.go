package main

import "github.com/spf13/pflag"

// Flags holds CLI flag names for the validate command, allowing callers to
// customize flag names while keeping sensible defaults.
type Flags struct {
	Format       string
	AssertFormat string
	Color        string
}

// Config holds CLI flag values for the validate command.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags].
type Config struct {
	Flags        Flags
	Format       string
	AssertFormat bool
	Color        bool
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	return &Config{
		Flags: Flags{
			Format:       "format",
			AssertFormat: "assert-format",
			Color:        "color",
		},
	}
}

// RegisterFlags adds validate's flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Format, c.Flags.Format, "basic",
		`output format ("basic" is the only one supported)`)
	flags.BoolVar(&c.AssertFormat, c.Flags.AssertFormat, false,
		`treat the "format" keyword as an assertion instead of an annotation`)
	flags.BoolVar(&c.Color, c.Flags.Color, true,
		"colorize the verdict and error locations")
}
