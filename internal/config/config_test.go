package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJob(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFromArgs(t *testing.T) {
	cfg, err := FromArgs([]string{"/v1", "/v2", "/out"})
	require.NoError(t, err)
	assert.Equal(t, "/out", cfg.Output)
	assert.Equal(t, []VersionSource{{Roots: []string{"/v1"}}, {Roots: []string{"/v2"}}}, cfg.Versions)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.True(t, cfg.Stubs)
	assert.NoError(t, cfg.Validate())
}

func TestFromArgs_TooFew(t *testing.T) {
	for _, args := range [][]string{nil, {"/v1"}, {"/v1", "/out"}} {
		_, err := FromArgs(args)
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err), "args %v", args)
	}
}

func TestLoad_CUE(t *testing.T) {
	path := writeJob(t, "job.cue", `
output: "out"
versions: [
	{label: "2023.3", roots: ["ide/233"]},
	{roots: ["/abs/241", "extra.jar"]},
]
stubs: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Output)
	require.Len(t, cfg.Versions, 2)
	assert.Equal(t, "2023.3", cfg.Versions[0].Label)
	assert.Equal(t, []string{filepath.Join(dir, "ide/233")}, cfg.Versions[0].Roots)
	assert.Equal(t, []string{"/abs/241", filepath.Join(dir, "extra.jar")}, cfg.Versions[1].Roots)
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.Stubs)
	assert.False(t, cfg.IncludeNonPublicNested)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_CUEErrors(t *testing.T) {
	tests := []struct {
		name string
		job  string
	}{
		{"unknown field", `output: "out", versions: [], bogus: 1`},
		{"missing output", `versions: [{roots: ["a"]}, {roots: ["b"]}]`},
		{"non-positive workers", `output: "out", versions: [], workers: 0`},
		{"version without roots", `output: "out", versions: [{roots: []}]`},
		{"syntax", `output: `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeJob(t, "job.cue", tt.job))
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
		})
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeJob(t, "job.yaml", `
output: /out
versions:
  - label: "1"
    roots: [v1]
  - roots: [v2]
workers: 8
include_nonpublic_nested: true
ledger: runs.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, "/out", cfg.Output)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.Stubs)
	assert.True(t, cfg.IncludeNonPublicNested)
	assert.Equal(t, filepath.Join(dir, "runs.db"), cfg.Ledger)
	assert.Equal(t, []string{filepath.Join(dir, "v1")}, cfg.Versions[0].Roots)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLUnknownField(t *testing.T) {
	_, err := Load(writeJob(t, "job.yml", "output: /out\nouptut: typo\n"))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.cue"))
	assert.True(t, IsConfigurationError(err))

	_, err = Load(writeJob(t, "job.toml", "output = 1"))
	assert.True(t, IsConfigurationError(err))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{EnvOutput: "/env/out", EnvWorkers: "2", EnvLedger: "/env/ledger.db"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "/env/out", cfg.Output)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "/env/ledger.db", cfg.Ledger)

	env[EnvWorkers] = "many"
	err := cfg.ApplyEnv(lookup)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Output = "/out"
		cfg.Versions = []VersionSource{{Label: "1", Roots: []string{"a"}}, {Label: "2", Roots: []string{"b"}}}
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no output", func(c *Config) { c.Output = "" }, "output"},
		{"one version", func(c *Config) { c.Versions = c.Versions[:1] }, "versions"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"empty roots", func(c *Config) { c.Versions[1].Roots = nil }, "versions[1].roots"},
		{"duplicate label", func(c *Config) { c.Versions[1].Label = "1" }, "versions[1].label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}
