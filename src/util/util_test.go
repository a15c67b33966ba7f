package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinMax(t *testing.T) {
	assert.Equal(t, 3, Min(3, 7))
	assert.Equal(t, 7, Min(7, 3))
	assert.Equal(t, 7, Max(3, 7))
	assert.Equal(t, 7, Max(7, 3))
	assert.Equal(t, uint64(5), Min(uint64(5), uint64(5)))
}

func TestRounddownRoundup(t *testing.T) {
	assert.Equal(t, 8, Rounddown(11, 4))
	assert.Equal(t, 0, Rounddown(3, 4))
	assert.Equal(t, 12, Roundup(11, 4))
	assert.Equal(t, 4, Roundup(4, 4))
	assert.Equal(t, 0, Roundup(0, 4))
}
