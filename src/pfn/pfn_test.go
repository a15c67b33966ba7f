package pfn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignment(t *testing.T) {
	old := PageblockOrder
	defer func() { PageblockOrder = old }()
	PageblockOrder = 3 // 8 pages/block

	assert.Equal(t, PFN(8), PageblockPages())
	assert.Equal(t, PFN(8), AlignDown(11))
	assert.Equal(t, PFN(16), AlignUp(9))
	assert.Equal(t, PFN(8), AlignUp(8))
	assert.Equal(t, PFN(1), BlockOf(9))
	assert.Equal(t, PFN(0), BlockOf(7))
}

func TestMigrateTypeAsyncSuitable(t *testing.T) {
	assert.True(t, Movable.AsyncSuitable())
	assert.True(t, CMA.AsyncSuitable())
	assert.False(t, Reclaimable.AsyncSuitable())
	assert.False(t, Unmovable.AsyncSuitable())
	assert.False(t, Isolate.AsyncSuitable())
	assert.False(t, Reserve.AsyncSuitable())
}

func TestNumMigrateTypesExcludesIsolateAndReserve(t *testing.T) {
	assert.Equal(t, 4, NumMigrateTypes)
}
