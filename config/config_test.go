package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func expected() Config {
	cfg := Default()
	cfg.Loop.QueueBudget = 16
	cfg.Invoker.Delay = Duration(250 * time.Millisecond)
	cfg.Tasks.StepDelay = Duration(2 * time.Second)
	cfg.Pool.Workers = 3
	cfg.Log = Log{Level: `debug`, Format: `json`}
	cfg.Metrics = Metrics{Addr: `:9090`, AllowedOrigins: []string{`https://example.com`}}
	return cfg
}

func TestLoad(t *testing.T) {
	for name, content := range map[string]string{
		`cfg.yaml`: `
loop:
  queue_budget: 16
invoker:
  delay: 250ms
tasks:
  step_delay: 2s
pool:
  workers: 3
log:
  level: debug
  format: json
metrics:
  addr: ":9090"
  allowed_origins: ["https://example.com"]
`,
		`cfg.json`: `{
  "loop": {"queue_budget": 16},
  "invoker": {"delay": "250ms"},
  "tasks": {"step_delay": "2s"},
  "pool": {"workers": 3},
  "log": {"level": "debug", "format": "json"},
  "metrics": {"addr": ":9090", "allowed_origins": ["https://example.com"]}
}`,
		`cfg.toml`: `
[loop]
queue_budget = 16

[invoker]
delay = "250ms"

[tasks]
step_delay = "2s"

[pool]
workers = 3

[log]
level = "debug"
format = "json"

[metrics]
addr = ":9090"
allowed_origins = ["https://example.com"]
`,
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeTempFile(t, name, content))
			require.NoError(t, err)
			if diff := cmp.Diff(expected(), cfg); diff != `` {
				t.Errorf("unexpected config (-want +got):\n%s", diff)
			}
			require.NoError(t, cfg.Validate())
		})
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeTempFile(t, `cfg.yml`, "invoker:\n  delay: 10ms\n"))
	require.NoError(t, err)

	want := Default()
	want.Invoker.Delay = Duration(10 * time.Millisecond)
	assert.Equal(t, want, cfg)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(``)
	assert.Error(t, err)

	_, err = Load(writeTempFile(t, `cfg.txt`, `not supported`))
	assert.ErrorContains(t, err, `unsupported extension`)

	_, err = Load(filepath.Join(t.TempDir(), `missing.yaml`))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeTempFile(t, `cfg.json`, `{"invoker":{"delay":"soon"}}`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	cfg := Default()
	cfg.Loop.QueueBudget = 0
	cfg.Invoker.Delay = -1
	cfg.Tasks.StepDelay = -1
	cfg.Pool.Workers = -1
	cfg.Log.Level = `loud`
	cfg.Log.Format = `xml`

	err := cfg.Validate()
	require.Error(t, err)
	for _, s := range []string{`queue_budget`, `invoker.delay`, `tasks.step_delay`, `pool.workers`, `loud`, `xml`} {
		assert.ErrorContains(t, err, s)
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte(`1m30s`)))
	assert.Equal(t, 90*time.Second, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, `1m30s`, string(text))

	assert.Error(t, d.UnmarshalText([]byte(`90`)))
}
