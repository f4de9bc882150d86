package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := Expand("~/workspace")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "workspace"), got)
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("SATHI_TEST_DIR", "/tmp/sathi-test")

	got, err := Expand("$SATHI_TEST_DIR/jobs")
	require.NoError(t, err)
	require.Equal(t, "/tmp/sathi-test/jobs", got)
}

func TestExpandEmpty(t *testing.T) {
	got, err := Expand("   ")
	require.NoError(t, err)
	require.Equal(t, "", got)
}
