package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remapcheck/internal/testutil"
	"github.com/roach88/remapcheck/internal/weights"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return buf.String(), err
}

// halfWeights writes a one-cell average of two source cells: src [2,4]
// remaps to 3. dest_ok.nc holds 3, dest_bad.nc holds 4 (relative error 0.25).
func halfWeights(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteWeights(t, dir, "w.nc", weights.LayoutGeneric, []int{0, 0}, []int{0, 1}, []float64{0.5, 0.5}, 1, 2)
	testutil.WriteField(t, dir, "src.nc", "Array", []float64{2, 4}, nil)
	testutil.WriteField(t, dir, "dest_ok.nc", "Array", []float64{3}, nil)
	testutil.WriteField(t, dir, "dest_bad.nc", "Array", []float64{4}, nil)
	return dir
}

func paths(dir string, names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "remapcheck", cmd.Use)
	assert.Contains(t, cmd.Long, "REMAPCHECK_<KEY>")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"verify", "test", "inspect", "history", "synth"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestConfigBackedFlags(t *testing.T) {
	cmd := NewRootCommand()
	tests := map[string][]string{
		"verify":  {"tolerance", "index-origin", "src-var", "dest-var", "db"},
		"test":    {"parallel", "db"},
		"inspect": {"index-origin"},
		"history": {"db"},
	}
	for name, flags := range tests {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		for _, f := range flags {
			assert.NotNil(t, sub.Flags().Lookup(f), "%s --%s", name, f)
			assert.Contains(t, ConfigKeys, f)
		}
	}
}

func TestInvalidFormat(t *testing.T) {
	dir := halfWeights(t)
	_, err := execute(t, append([]string{"verify", "--format", "xml"}, paths(dir, "w.nc", "src.nc", "dest_ok.nc")...)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestMissingConfigFile(t *testing.T) {
	dir := halfWeights(t)
	_, err := execute(t, append([]string{"verify", "--config", filepath.Join(dir, "none.yaml")}, paths(dir, "w.nc", "src.nc", "dest_ok.nc")...)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to read config file")
}
