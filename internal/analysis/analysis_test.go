package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/metoffice/fab-go/internal/analysis"
	"github.com/metoffice/fab-go/internal/types"
)

func TestRegistryDispatchesByExtension(t *testing.T) {
	r := analysis.NewRegistry()

	a, ok := r.For(types.SourcePath("foo.f90"))
	assert.True(t, ok)
	assert.IsType(t, &analysis.FortranAnalyser{}, a)

	a, ok = r.For(types.SourcePath("foo.c"))
	assert.True(t, ok)
	assert.IsType(t, &analysis.CAnalyser{}, a)

	_, ok = r.For(types.SourcePath("foo.py"))
	assert.False(t, ok)
}

func TestHashFileIsCRC32(t *testing.T) {
	h := analysis.HashFile([]byte("hello"))
	assert.NotZero(t, h)
	// CRC-32 (IEEE) of "hello" is 0x3610a686.
	assert.Equal(t, types.FileHash(0x3610a686), h)
	// Same content must hash identically across calls.
	assert.Equal(t, h, analysis.HashFile([]byte("hello")))
}
