package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_MemoryPages_DefaultsWhenZero(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, uint32(DefaultMemoryMiB*bytesPerMiB/wasmPageSize), cfg.memoryPages())
}

func TestConfig_MemoryPages_ClampsBelowMin(t *testing.T) {
	cfg := Config{MemoryLimitMiB: -5}
	assert.Equal(t, uint32(MinMemoryMiB*bytesPerMiB/wasmPageSize), cfg.memoryPages())
}

func TestConfig_MemoryPages_ClampsAboveMax(t *testing.T) {
	cfg := Config{MemoryLimitMiB: 500}
	assert.Equal(t, uint32(MaxMemoryMiB*bytesPerMiB/wasmPageSize), cfg.memoryPages())
}

func TestConfig_PoolSize_DefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, Config{}.poolSize())
	assert.Equal(t, 1, Config{PoolSize: -1}.poolSize())
	assert.Equal(t, 4, Config{PoolSize: 4}.poolSize())
}
