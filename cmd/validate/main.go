// Package main provides the CLI entry point for validate, a tool that
// checks a JSON instance document against a JSON Schema and reports the
// result in the JSON Schema "basic" output format.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	expjson "github.com/go-json-experiment/json"
	"github.com/goccy/go-yaml"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	jsonschema "github.com/corvuscore/streamschema"
	"github.com/corvuscore/streamschema/walk"
)

var (
	// ErrReadInput is wrapped around failures to read the schema or instance
	// document, whether from a file or from stdin.
	ErrReadInput = errors.New("validate: failed to read input")

	// ErrInvalidOption is wrapped around a flag value this command does not
	// understand.
	ErrInvalidOption = errors.New("validate: invalid option")
)

func main() {
	cfg := NewConfig()

	var valid bool

	rootCmd := &cobra.Command{
		Use:   "validate [flags] <schema> <instance>",
		Short: "Validate a JSON instance document against a JSON Schema",
		Long: `validate compiles a JSON Schema document (drafts 2019-09 and 2020-12) and
checks whether an instance document satisfies it, reporting the result in
the JSON Schema "basic" output format. Both the schema and the instance may
be given as JSON or YAML, and either may be read from stdin with "-".`,
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			v, err := run(cfg, args[0], args[1])
			valid = v
			return err
		},
	}

	cfg.RegisterFlags(rootCmd.Flags())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if !valid {
		os.Exit(1)
	}
}

// run compiles schemaPath and validates instancePath against it, printing
// the "basic" output report. The returned bool is the instance's verdict;
// the returned error is non-nil only for an unsupported --format value or
// for fatal I/O, parse, or compile failures, never for a mere validation
// failure.
func run(cfg *Config, schemaPath, instancePath string) (bool, error) {
	if cfg.Format != "basic" {
		return false, fmt.Errorf("%w: unsupported output format %q", ErrInvalidOption, cfg.Format)
	}

	schemaData, err := readInput(schemaPath)
	if err != nil {
		return false, fmt.Errorf("%w: schema: %w", ErrReadInput, err)
	}
	schemaJSON, err := toJSON(schemaData)
	if err != nil {
		return false, fmt.Errorf("%w: schema: %w", ErrReadInput, err)
	}

	compiler := jsonschema.NewCompiler().SetAssertFormat(cfg.AssertFormat)
	v, err := compiler.CompileValidator(schemaJSON)
	if err != nil {
		return false, fmt.Errorf("compile schema: %w", err)
	}
	v = v.WithFullContext()

	instanceData, err := readInput(instancePath)
	if err != nil {
		return false, fmt.Errorf("%w: instance: %w", ErrReadInput, err)
	}
	if err := driveInstance(instanceData, v); err != nil {
		return false, fmt.Errorf("%w: instance: %w", ErrReadInput, err)
	}

	out := v.BasicOutput()
	printResult(cfg, out)
	return out.Valid, nil
}

// readInput reads path, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// looksLikeJSON reports whether data's first non-whitespace byte opens a
// JSON object or array. Anything else, including a top-level JSON scalar
// such as a boolean schema or a numeric instance, is treated as YAML.
func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// toJSON returns data unchanged if it already looks like JSON, otherwise
// decodes it as YAML and re-encodes it to canonical JSON, the form
// Compiler.CompileValidator expects.
func toJSON(data []byte) ([]byte, error) {
	if looksLikeJSON(data) {
		return data, nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return expjson.Marshal(doc)
}

// driveInstance walks data (JSON or YAML, sniffed the same way as the
// schema document) into w.
func driveInstance(data []byte, w jsonschema.Walker) error {
	if looksLikeJSON(data) {
		return walk.NewJSONWalker(bytes.NewReader(data), w).Walk()
	}
	return walk.FromYAML(data, w)
}

// printResult renders out as colorized text: a bold valid/invalid verdict
// followed by one line per error, its instance location highlighted.
func printResult(cfg *Config, out jsonschema.BasicOutput) {
	if !cfg.Color {
		color.NoColor = true
	}

	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	bad := color.New(color.FgRed, color.Bold).SprintFunc()
	location := color.New(color.FgYellow).SprintFunc()

	if out.Valid {
		fmt.Println(ok("valid"))
		return
	}

	fmt.Println(bad("invalid"))
	for _, e := range out.Errors {
		loc := e.InstanceLocation
		if loc == "" {
			loc = "(root)"
		}
		fmt.Printf("  %s: %s\n", location(loc), e.Error)
	}
}
