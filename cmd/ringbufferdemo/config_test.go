package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	conf := SetDefaults()
	require.Equal(t, uint(3), conf.SizeMagnitude)
	require.Equal(t, 4, conf.Producers)
	require.Equal(t, 25, conf.ValuesPerWriter)
	require.NotEmpty(t, conf.LogPath)
}

func TestValidateRejectsBadSizeMagnitude(t *testing.T) {
	conf := &RunConfig{SizeMagnitude: 0, Producers: 1, ValuesPerWriter: 1}
	require.Error(t, conf.Validate())

	conf = &RunConfig{SizeMagnitude: 21, Producers: 1, ValuesPerWriter: 1}
	require.Error(t, conf.Validate())
}

func TestValidateRejectsBadCounts(t *testing.T) {
	conf := &RunConfig{SizeMagnitude: 3, Producers: 0, ValuesPerWriter: 1}
	require.Error(t, conf.Validate())

	conf = &RunConfig{SizeMagnitude: 3, Producers: 1, ValuesPerWriter: 0}
	require.Error(t, conf.Validate())
}

func TestValidateFillsEmptyLogPath(t *testing.T) {
	conf := &RunConfig{SizeMagnitude: 3, Producers: 1, ValuesPerWriter: 1}
	require.NoError(t, conf.Validate())
	require.NotEmpty(t, conf.LogPath)
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "run.yaml")
	yaml := "sizeMagnitude: 4\nproducers: 6\nvaluesPerWriter: 10\nlogPath: " + tmpDir + "\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	conf, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, uint(4), conf.SizeMagnitude)
	require.Equal(t, 6, conf.Producers)
	require.Equal(t, 10, conf.ValuesPerWriter)
	require.Equal(t, tmpDir, conf.LogPath)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("RINGBUFFERDEMO_PRODUCERS", "9")
	conf, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, 9, conf.Producers)
}
