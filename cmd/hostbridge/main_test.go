package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/joeycumines/go-hostbridge/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (x *syncBuffer) Write(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.buf.Write(p)
}

func (x *syncBuffer) String() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.buf.String()
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr syncBuffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRun_Eval(t *testing.T) {
	_, stderr, err := execute(t, `run`,
		`--log-format`, `json`,
		`--delay`, `1ms`,
		`--step-delay`, `1ms`,
		`--eval`, `
			console.log(hostbridge.hello());
			hostbridge.initialize_event_publisher((s) => console.log('event', s));
			hostbridge.invoke_callback_cross_thread(2, (i) => console.log('iteration', i))
				.then(() => hostbridge.run_pooled_task(1))
				.then(() => console.log('all done'));
		`,
	)
	require.NoError(t, err)
	assert.Contains(t, stderr, `hello node`)
	assert.Contains(t, stderr, `iteration 1`)
	assert.Contains(t, stderr, `running in thread i: 0`)
	assert.Contains(t, stderr, `all done`)
}

func TestRun_ScriptFile(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, `main.js`)
	require.NoError(t, os.WriteFile(script, []byte(`hostbridge.run_native_thread_task(1).then(() => console.info('finished'));`), 0o644))
	cfgPath := filepath.Join(dir, `cfg.yaml`)
	require.NoError(t, os.WriteFile(cfgPath, []byte("tasks:\n  step_delay: 1ms\nlog:\n  format: json\n"), 0o644))

	_, stderr, err := execute(t, `run`, `--config`, cfgPath, script)
	require.NoError(t, err)
	assert.Contains(t, stderr, `finished`)
}

func TestRun_ScriptError(t *testing.T) {
	_, _, err := execute(t, `run`, `--log-level`, `off`, `--eval`, `throw new Error('script failed')`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `script failed`)
}

func TestRun_InvalidArguments(t *testing.T) {
	_, _, err := execute(t, `run`)
	assert.Error(t, err)

	_, _, err = execute(t, `run`, `--eval`, `1`, `extra.js`)
	assert.Error(t, err)

	_, _, err = execute(t, `run`, `--log-format`, `xml`, `--eval`, `1`)
	assert.ErrorContains(t, err, `log.format`)

	_, _, err = execute(t, `run`, filepath.Join(t.TempDir(), `missing.js`))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, `version`)
	require.NoError(t, err)
	assert.Contains(t, stdout, `hostbridge dev`)
}

func TestMetricsRouter(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := events.NewMetrics(registry)
	require.NoError(t, err)

	router := newMetricsRouter(registry, []string{`https://dash.example.com`})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, `/metrics`, nil)
	req.Header.Set(`Origin`, `https://dash.example.com`)
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `hostbridge_events_dropped_total`)
	assert.Equal(t, `https://dash.example.com`, rr.Header().Get(`Access-Control-Allow-Origin`))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, `/healthz`, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `ok`, rr.Body.String())

	rr = httptest.NewRecorder()
	newMetricsRouter(registry, nil).ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get(`Access-Control-Allow-Origin`))
}
