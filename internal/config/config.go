// Package config describes a merge job: which version roots to read, where
// to write the superset and how to run.
//
// A job comes from positional arguments (FromArgs) or a job file (Load),
// which may be CUE or YAML. Environment variables override a few fields
// either way.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvOutput  = "SSG_OUTPUT"
	EnvWorkers = "SSG_WORKERS"
	EnvLedger  = "SSG_LEDGER"
)

// DefaultWorkers matches the schema default.
const DefaultWorkers = 4

//go:embed schema.cue
var schemaSource []byte

// VersionSource is one version of the input: its roots and an optional
// label. An empty label is resolved at ingestion time.
type VersionSource struct {
	Label string   `json:"label,omitempty" yaml:"label"`
	Roots []string `json:"roots" yaml:"roots"`
}

// Config is a merge job.
type Config struct {
	Output                 string          `json:"output" yaml:"output"`
	Versions               []VersionSource `json:"versions" yaml:"versions"`
	Workers                int             `json:"workers" yaml:"workers"`
	Stubs                  bool            `json:"stubs" yaml:"stubs"`
	IncludeNonPublicNested bool            `json:"include_nonpublic_nested" yaml:"include_nonpublic_nested"`
	Ledger                 string          `json:"ledger,omitempty" yaml:"ledger"`
	Verbose                bool            `json:"verbose" yaml:"verbose"`
}

// Default returns a job with every optional field at its default.
func Default() *Config {
	return &Config{Workers: DefaultWorkers, Stubs: true}
}

// FromArgs builds a job from "<v1> ... <vN> <output>": every argument but
// the last is the root of one version.
func FromArgs(args []string) (*Config, error) {
	if len(args) < 3 {
		return nil, invalid("args", fmt.Sprintf("need at least two version roots and an output directory, got %d arguments", len(args)))
	}
	cfg := Default()
	cfg.Output = args[len(args)-1]
	for _, root := range args[:len(args)-1] {
		cfg.Versions = append(cfg.Versions, VersionSource{Roots: []string{root}})
	}
	return cfg, nil
}

// Load reads a job file. ".cue" files are checked against the embedded
// schema; ".yaml" and ".yml" files are decoded strictly. Relative roots and
// output are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Field: "config", Message: "cannot read job file", Err: err}
	}
	var cfg *Config
	switch ext := filepath.Ext(path); ext {
	case ".cue":
		cfg, err = decodeCUE(path, data)
	case ".yaml", ".yml":
		cfg, err = decodeYAML(data)
	default:
		return nil, invalid("config", fmt.Sprintf("unsupported job file extension %q", ext))
	}
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

func decodeCUE(path string, data []byte) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("embedded schema: %w", err)
	}
	job := ctx.CompileBytes(data, cue.Filename(path))
	if err := job.Err(); err != nil {
		return nil, cueError(err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(job)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(err)
	}
	cfg := Default()
	if err := v.Decode(cfg); err != nil {
		return nil, cueError(err)
	}
	return cfg, nil
}

// cueError keeps the position of the first error.
func cueError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ConfigurationError{Field: "cue", Message: "invalid job", Err: err}
	}
	first := errs[0]
	ce := &ConfigurationError{Field: "cue", Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

func decodeYAML(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, &ConfigurationError{Field: "yaml", Message: "invalid job", Err: err}
	}
	return cfg, nil
}

func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Output = abs(c.Output)
	if c.Ledger != ":memory:" {
		c.Ledger = abs(c.Ledger)
	}
	for i := range c.Versions {
		for j, r := range c.Versions[i].Roots {
			c.Versions[i].Roots[j] = abs(r)
		}
	}
}

// ApplyEnv applies the SSG_* overrides found through lookup, which is
// os.LookupEnv outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvOutput); ok && v != "" {
		c.Output = v
	}
	if v, ok := lookup(EnvLedger); ok && v != "" {
		c.Ledger = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigurationError{Field: EnvWorkers, Message: "not an integer", Err: err}
		}
		c.Workers = n
	}
	return nil
}

// Validate checks that the job can run.
func (c *Config) Validate() error {
	if c.Output == "" {
		return invalid("output", "output directory is required")
	}
	if len(c.Versions) < 2 {
		return invalid("versions", fmt.Sprintf("at least two versions are required, got %d", len(c.Versions)))
	}
	if c.Workers < 1 {
		return invalid("workers", fmt.Sprintf("must be positive, got %d", c.Workers))
	}
	labels := make(map[string]int, len(c.Versions))
	for i, v := range c.Versions {
		if len(v.Roots) == 0 {
			return invalid(fmt.Sprintf("versions[%d].roots", i), "at least one root is required")
		}
		if v.Label == "" {
			continue
		}
		if prev, dup := labels[v.Label]; dup {
			return invalid(fmt.Sprintf("versions[%d].label", i), fmt.Sprintf("%q already used by versions[%d]", v.Label, prev))
		}
		labels[v.Label] = i
	}
	return nil
}
