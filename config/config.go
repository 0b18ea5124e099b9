// Package config assembles the settings of every pipeline stage and loads them from YAML.
package config

import (
	"encoding/json"
	"os"
	"path"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/standardgalactic/neural-mesh/camera"
	"github.com/standardgalactic/neural-mesh/logging"
	"github.com/standardgalactic/neural-mesh/render"
	"github.com/standardgalactic/neural-mesh/sampler"
	"github.com/standardgalactic/neural-mesh/solver"
)

// Logging configures the process logger.
type Logging struct {
	Level string `json:"level"`
	// File, when set, also writes logs to a rotating file.
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

// Config is the full pipeline configuration. Sampling angles use the unit selected by
// Render.Degrees.
type Config struct {
	Camera   camera.Config  `json:"camera"`
	Render   render.Config  `json:"render"`
	Sampling sampler.Ranges `json:"sampling"`
	Solver   solver.Config  `json:"solver"`
	Logging  Logging        `json:"logging"`
}

// Default returns the standard pipeline: a 320×448 image at down sample rate 8 and focal
// length 3000, the hard projector and the default candidate grid.
func Default() *Config {
	return &Config{
		Camera:   camera.DefaultConfig(),
		Render:   render.DefaultConfig(),
		Sampling: sampler.DefaultRanges(),
		Solver:   solver.DefaultConfig(),
		Logging:  Logging{Level: logging.INFO.String(), MaxSizeMB: 100, MaxBackups: 3},
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate() error {
	err := multierr.Combine(
		errors.Wrap(cfg.Camera.Validate(), "camera"),
		errors.Wrap(cfg.Render.Validate(), "render"),
		errors.Wrap(cfg.Sampling.Validate(), "sampling"),
		errors.Wrap(cfg.Solver.Validate(), "solver"),
	)
	if _, lvlErr := logging.LevelFromString(cfg.Logging.Level); lvlErr != nil {
		err = multierr.Append(err, errors.Wrap(lvlErr, "logging"))
	}
	return err
}

// Load reads a YAML file and overlays it onto the defaults.
func Load(path string) (*Config, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	var attrs map[string]interface{}
	if err := yaml.Unmarshal(data, &attrs); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	cfg, err := FromAttributes(attrs)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return cfg, nil
}

// FromAttributes decodes an attribute map, keyed by the json tags, onto the defaults and
// validates the result. Unknown keys are errors.
func FromAttributes(attrs map[string]interface{}) (*Config, error) {
	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attrs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Schema returns the JSON schema of Config.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{Namer: definitionName}
	return json.MarshalIndent(r.Reflect(&Config{}), "", "  ")
}

// definitionName prefixes a type with its package so that the several Config types of the
// pipeline get distinct definitions.
func definitionName(t reflect.Type) string {
	pkg := path.Base(t.PkgPath())
	if t.Name() == "" || pkg == "." || strings.EqualFold(pkg, t.Name()) {
		return t.Name()
	}
	return strings.ToUpper(pkg[:1]) + pkg[1:] + t.Name()
}
