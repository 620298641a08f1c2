package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// unsetenv removes key for the rest of the test. Call t.Setenv on key first so the
// original value is restored on cleanup.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	require.NoError(t, os.Unsetenv(key))
}
