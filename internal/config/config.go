// Package config loads solver configuration from YAML or CUE files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// EnvironmentMode controls how much self-checking the score director does.
type EnvironmentMode string

const (
	// Reproducible runs without extra assertions. This is the default.
	Reproducible EnvironmentMode = "reproducible"
	// FullAssert runs the corruption detector after every move and fails on
	// the first violation.
	FullAssert EnvironmentMode = "full_assert"
	// NonReproducible behaves like Reproducible. It exists so configuration
	// files written for a multi-threaded solver still load.
	NonReproducible EnvironmentMode = "non_reproducible"
)

// IsAsserted reports whether the mode runs the corruption detector.
func (m EnvironmentMode) IsAsserted() bool { return m == FullAssert }

func (m EnvironmentMode) valid() bool {
	switch m {
	case Reproducible, FullAssert, NonReproducible:
		return true
	}
	return false
}

// SolverConfig is the top-level configuration.
type SolverConfig struct {
	EnvironmentMode EnvironmentMode `yaml:"environment_mode" json:"environment_mode"`
	// Metrics enables the Prometheus collector.
	Metrics bool `yaml:"metrics" json:"metrics"`
	// TraceDB is the SQLite file listener traces are written to. Empty
	// disables persistence.
	TraceDB  string `yaml:"trace_db" json:"trace_db"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *SolverConfig {
	return &SolverConfig{EnvironmentMode: Reproducible, LogLevel: "info"}
}

// Error codes.
const (
	ErrCodeRead    = "CONFIG_READ"
	ErrCodeParse   = "CONFIG_PARSE"
	ErrCodeFormat  = "CONFIG_FORMAT"
	ErrCodeInvalid = "CONFIG_INVALID"
)

// Error is a configuration loading or validation failure.
type Error struct {
	Code    string
	Path    string
	Field   string
	Message string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Code)
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// IsConfigError reports whether err is an *Error with the given code.
func IsConfigError(err error, code string) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == code
}

// Load reads a configuration file. The format is chosen by extension:
// .yaml and .yml through yaml.v3, .cue through the CUE evaluator.
// Missing fields keep their Default values.
func Load(path string) (*SolverConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeRead, Path: path, Message: err.Error()}
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return ParseYAML(path, data)
	case ".cue":
		return ParseCUE(path, data)
	default:
		return nil, &Error{Code: ErrCodeFormat, Path: path, Message: fmt.Sprintf("unsupported extension %q", ext)}
	}
}

// ParseYAML decodes a YAML configuration. Unknown fields are rejected.
func ParseYAML(path string, data []byte) (*SolverConfig, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, &Error{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, withPath(err, path)
	}
	return cfg, nil
}

// ParseCUE evaluates a CUE configuration and decodes it.
func ParseCUE(path string, data []byte) (*SolverConfig, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return nil, &Error{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}
	cfg := Default()
	if err := v.Decode(cfg); err != nil {
		return nil, &Error{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, withPath(err, path)
	}
	return cfg, nil
}

// withPath stamps path on a validation *Error.
func withPath(err error, path string) error {
	var ce *Error
	if errors.As(err, &ce) {
		ce.Path = path
	}
	return err
}

// Validate checks field values. Failures are *Error with ErrCodeInvalid.
func (c *SolverConfig) Validate() error {
	if c.EnvironmentMode == "" {
		c.EnvironmentMode = Reproducible
	}
	if !c.EnvironmentMode.valid() {
		return &Error{
			Code:    ErrCodeInvalid,
			Field:   "environment_mode",
			Message: fmt.Sprintf("unknown mode %q (want reproducible, full_assert or non_reproducible)", c.EnvironmentMode),
		}
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return &Error{Code: ErrCodeInvalid, Field: "log_level", Message: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}
	return nil
}
