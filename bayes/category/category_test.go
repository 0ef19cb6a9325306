package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainTokenCreatesAndIncrements(t *testing.T) {
	cat := NewCategory("spam")

	require.NoError(t, cat.TrainToken("buy", 2))
	require.NoError(t, cat.TrainToken("buy", 3))
	require.NoError(t, cat.TrainToken("now", 1))

	assert.Equal(t, "spam", cat.Name())
	assert.Equal(t, 5, cat.GetTokenCount("buy"))
	assert.Equal(t, 1, cat.GetTokenCount("now"))
	assert.Equal(t, 0, cat.GetTokenCount("missing"))
	assert.Equal(t, 6, cat.GetTally())
}

func TestUntrainTokenDecrementsAndDeletes(t *testing.T) {
	cat := NewCategory("spam")
	require.NoError(t, cat.TrainToken("buy", 5))
	require.NoError(t, cat.TrainToken("now", 1))

	require.NoError(t, cat.UntrainToken("buy", 2))
	assert.Equal(t, 3, cat.GetTokenCount("buy"))
	assert.Equal(t, 4, cat.GetTally())

	require.NoError(t, cat.UntrainToken("buy", 10))
	assert.Equal(t, 0, cat.GetTokenCount("buy"))
	assert.Equal(t, 1, cat.GetTally())

	require.NoError(t, cat.UntrainToken("missing", 5))
	assert.Equal(t, 1, cat.GetTally())
}

func TestInvalidCountsReturnError(t *testing.T) {
	cat := NewCategory("ham")
	require.NoError(t, cat.TrainToken("hello", 2))

	for _, count := range []int{0, -3} {
		assert.ErrorIs(t, cat.TrainToken("hello", count), errNonPositiveCount)
		assert.ErrorIs(t, cat.UntrainToken("hello", count), errNonPositiveCount)
	}

	assert.Equal(t, 2, cat.GetTokenCount("hello"))
	assert.Equal(t, 2, cat.GetTally())
}
