package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want logiface.Level
	}{
		{``, logiface.LevelInformational},
		{`INFO`, logiface.LevelInformational},
		{`debug`, logiface.LevelDebug},
		{`trace`, logiface.LevelTrace},
		{`warn`, logiface.LevelWarning},
		{`error`, logiface.LevelError},
		{`off`, logiface.LevelDisabled},
	} {
		got, err := ParseLevel(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseLevel(`verbose`)
	assert.Error(t, err)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Writer: &buf, Level: `debug`, Format: FormatJSON})
	require.NoError(t, err)

	logger.Debug().
		Str(`component`, `test`).
		Int(`n`, 3).
		Log(`hello`)
	logger.Trace().Log(`filtered`)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, `hello`, decoded[`msg`])
	assert.Equal(t, `test`, decoded[`component`])
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Writer: &buf, Level: `info`})
	require.NoError(t, err)

	logger.Err().
		Err(errors.New(`broken`)).
		Str(`component`, `console`).
		Log(`something failed`)
	logger.Debug().Log(`filtered`)

	out := buf.String()
	assert.Contains(t, out, `something failed`)
	assert.Contains(t, out, `broken`)
	assert.NotContains(t, out, `filtered`)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(Options{Format: `xml`})
	assert.Error(t, err)

	_, err = New(Options{Level: `loud`})
	assert.Error(t, err)
}

func TestZerologLevelMapping(t *testing.T) {
	assert.Equal(t, `fatal`, zerologLevel(logiface.LevelEmergency).String())
	assert.Equal(t, `warn`, zerologLevel(logiface.LevelNotice).String())
	assert.Equal(t, `trace`, zerologLevel(logiface.LevelTrace).String())
}
