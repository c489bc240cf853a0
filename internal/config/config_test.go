package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsMatchKernelDefaultConfig(t *testing.T) {
	cfg := Load()
	assert.Equal(t, []int{1, 2, 4, 8, 16}, cfg.Kernel.Quanta)
	assert.Equal(t, int64(200), cfg.Kernel.AgeThreshold)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)
}

func TestLoad_EnvOverridesTableSize(t *testing.T) {
	t.Setenv("MLFQ_TABLE_SIZE", "128")
	cfg := Load()
	assert.Equal(t, 128, cfg.Kernel.TableSize)
}

func TestLoad_MalformedIntFallsBackToDefault(t *testing.T) {
	t.Setenv("MLFQ_TABLE_SIZE", "not-a-number")
	cfg := Load()
	assert.Equal(t, 64, cfg.Kernel.TableSize)
}

func TestLoad_QuantaListParsesCommaSeparatedInts(t *testing.T) {
	t.Setenv("MLFQ_QUANTA", "2,4,8")
	cfg := Load()
	require.Len(t, cfg.Kernel.Quanta, 3)
	assert.Equal(t, []int{2, 4, 8}, cfg.Kernel.Quanta)
}

func TestLoad_MalformedQuantaFallsBackToDefault(t *testing.T) {
	t.Setenv("MLFQ_QUANTA", "2,oops,8")
	cfg := Load()
	assert.Equal(t, []int{1, 2, 4, 8, 16}, cfg.Kernel.Quanta)
}
