package nimber

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeCommutative(t *testing.T) {
	for a := Nimber(0); a < 8; a++ {
		for b := Nimber(0); b < 8; b++ {
			assert.Equal(t, Merge(a, b), Merge(b, a))
		}
	}
}

func TestMergeIdentityAndSelfInverse(t *testing.T) {
	for a := Nimber(0); a < 16; a++ {
		assert.Equal(t, a, Merge(a, 0))
		assert.Equal(t, Nimber(0), Merge(a, a))
	}
}

func TestIsWinIsLoss(t *testing.T) {
	assert.True(t, Loss.IsLoss())
	assert.False(t, Loss.IsWin())
	assert.True(t, Nimber(3).IsWin())
	assert.False(t, Nimber(3).IsLoss())
}
