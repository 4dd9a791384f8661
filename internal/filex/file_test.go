package filex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesDirectory(t *testing.T) {
	tmp := t.TempDir()

	got, err := EnsureDir(filepath.Join(tmp, "uploads"))
	require.NoError(t, err)

	fi, err := os.Stat(got)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")
}

func TestEnsureDir_Idempotent(t *testing.T) {
	tmp := t.TempDir()

	first, err := EnsureDir(filepath.Join(tmp, "uploads"))
	require.NoError(t, err)

	second, err := EnsureDir(filepath.Join(tmp, "uploads"))
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestEnsureSubDir_CreatesNestedDirectory(t *testing.T) {
	tmp := t.TempDir()

	got, err := EnsureSubDir(tmp, "PC-01")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, "PC-01"), got)

	fi, err := os.Stat(got)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestEnsureSubDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmp, "PC-01"), []byte("x"), 0o660))

	_, err := EnsureSubDir(tmp, "PC-01")
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"PC-01", "PC-01"},
		{"PC 01", "PC_01"},
		{"../etc/passwd", ".._etc_passwd"},
		{"equipo#7", "equipo_7"},
		{"A1.b_c-d", "A1.b_c-d"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, SanitizeName(tc.in), "input %q", tc.in)
	}
}
