package envutil

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetenvDefault(t *testing.T) {
	os.Setenv("MVAE_TEST_SET", "x")
	defer os.Unsetenv("MVAE_TEST_SET")

	assert.Equal(t, "x", GetenvDefault("MVAE_TEST_SET", "y"))
	assert.Equal(t, "y", GetenvDefault("MVAE_TEST_UNSET", "y"))
}

func TestLoadDotEnv(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "test.env")
	require.NoError(t, ioutil.WriteFile(path, []byte("MVAE_TEST_DOTENV=loaded\n"), 0644))
	defer os.Unsetenv("MVAE_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("MVAE_TEST_DOTENV"))
}
