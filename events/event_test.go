package events

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Format(t *testing.T) {
	s, err := Marshal(Log{Message: `running in thread i: 0`})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Log","message":"running in thread i: 0"}`, s)

	s, err = Marshal(&OtherMessage{Code: 7, Description: `seven`})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"OtherMessage","code":7,"description":"seven"}`, s)
}

func TestMarshal_RoundTripStable(t *testing.T) {
	for _, e := range []Event{
		Log{},
		Log{Message: `hello`},
		Log{Message: "quotes \" and \n newlines and unicode ✓"},
		OtherMessage{},
		OtherMessage{Code: -1, Description: `negative`},
		OtherMessage{Code: 2147483647, Description: `max`},
	} {
		first := MustMarshal(e)
		decoded, err := Unmarshal(first)
		require.NoError(t, err, first)
		if diff := cmp.Diff(e, decoded); diff != `` {
			t.Errorf("decoded event differs (-want +got):\n%s", diff)
		}
		assert.Equal(t, first, MustMarshal(decoded))
	}
}

func TestUnmarshal_NumAlias(t *testing.T) {
	e, err := Unmarshal(`{"type":"OtherMessage","num":3,"description":"legacy"}`)
	require.NoError(t, err)
	assert.Equal(t, OtherMessage{Code: 3, Description: `legacy`}, e)

	e, err = Unmarshal(`{"type":"OtherMessage","num":3,"code":4}`)
	require.NoError(t, err)
	assert.Equal(t, OtherMessage{Code: 4}, e)
}

func TestUnmarshal_NumAliasOutOfRange(t *testing.T) {
	e, err := Unmarshal(`{"type":"OtherMessage","num":-2147483648}`)
	require.NoError(t, err)
	assert.Equal(t, OtherMessage{Code: math.MinInt32}, e)

	for _, s := range []string{
		`{"type":"OtherMessage","num":4294967297}`,
		`{"type":"OtherMessage","num":2147483648}`,
		`{"type":"OtherMessage","num":-2147483649}`,
		`{"type":"OtherMessage","num":1.5}`,
		`{"type":"OtherMessage","num":"7"}`,
	} {
		_, err := Unmarshal(s)
		assert.Error(t, err, s)
	}

	// the same bounds apply to code
	_, err = Unmarshal(`{"type":"OtherMessage","code":4294967297}`)
	assert.Error(t, err)
}

func TestUnmarshal_Errors(t *testing.T) {
	_, err := Unmarshal(`{"type":"Mystery"}`)
	assert.ErrorIs(t, err, ErrUnknownEventType)

	_, err = Unmarshal(`{}`)
	assert.ErrorIs(t, err, ErrUnknownEventType)

	_, err = Unmarshal(`not json`)
	assert.Error(t, err)

	_, err = Unmarshal(`[1,2]`)
	assert.Error(t, err)

	_, err = Unmarshal(`{"type":"Log","message":5}`)
	assert.Error(t, err)
}

func TestMustMarshal_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { MustMarshal(nil) })
}
