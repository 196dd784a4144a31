package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepAddListDrop(t *testing.T) {
	env := newTestEnv(t, "sqlite")

	out := env.mustRun("sleep", "add", "begin", "--threshold", "07:00", "--reward", "2", "--negative")
	assert.Equal(t, "Added begin earlier than 07:00, reward 2 (from 2025-03-11)\n", out)

	out = env.mustRun("sleep", "add", "begin", "--threshold", "07:00", "--reward", "3", "--negative")
	assert.Contains(t, out, "Replaced begin earlier than 07:00, reward 3")

	env.mustRun("sleep", "add", "end", "--threshold", "24:30", "--reward", "-2")

	out = env.mustRun("sleep", "list")
	assert.Contains(t, out, "begin earlier than 07:00, reward 3")
	assert.Contains(t, out, "end later than 00:30+1, reward -2")

	bands := decodeData[BandList](t, env.mustRun("sleep", "list", "end", "--format", "json"))
	require.Len(t, bands.Bands, 1)
	assert.Equal(t, 1470, int(bands.Bands[0].Threshold))

	out = env.mustRun("sleep", "drop", "--marker", "end", "--threshold", "00:30+1")
	assert.Equal(t, "Dropped 1 version(s)\n", out)
	assert.NotContains(t, env.mustRun("sleep", "list"), "end later")
}

func TestSleep_InvalidInput(t *testing.T) {
	env := newTestEnv(t, "sqlite")

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"bad marker", []string{"sleep", "add", "noon", "--threshold", "12:00", "--reward", "1"}, ""},
		{"bad threshold", []string{"sleep", "add", "begin", "--threshold", "7am", "--reward", "1"}, ""},
		{"empty drop filter", []string{"sleep", "drop"}, "E012"},
		{"bad list marker", []string{"sleep", "list", "noon"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := env.run(tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			if tt.code != "" {
				assert.Contains(t, out, tt.code)
			}
		})
	}
}
