package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEach(t *testing.T) {
	var sum atomic.Int64
	var inFlight, peak atomic.Int32

	ForEach(100, 4, func(i int) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		sum.Add(int64(i))
		inFlight.Add(-1)
	})

	assert.Equal(t, int64(4950), sum.Load())
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestForEachDegenerateArguments(t *testing.T) {
	calls := 0
	ForEach(0, 4, func(int) { calls++ })
	assert.Equal(t, 0, calls)

	ForEach(3, 0, func(int) { calls++ })
	assert.Equal(t, 3, calls)
}

func TestSplitBalanced(t *testing.T) {
	tests := []struct {
		name  string
		items []int
		n     int
		want  [][]int
	}{
		{name: "even", items: []int{1, 2, 3, 4}, n: 2, want: [][]int{{1, 2}, {3, 4}}},
		{name: "remainder first", items: []int{1, 2, 3, 4, 5}, n: 3, want: [][]int{{1, 2}, {3, 4}, {5}}},
		{name: "more groups than items", items: []int{1, 2}, n: 4, want: [][]int{{1}, {2}, {}, {}}},
		{name: "single group", items: []int{1, 2, 3}, n: 1, want: [][]int{{1, 2, 3}}},
		{name: "empty input", items: nil, n: 3, want: [][]int{{}, {}, {}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Split(tc.items, tc.n)
			require.Len(t, got, tc.n)
			for i := range got {
				assert.Len(t, got[i], len(tc.want[i]), "group %d", i)
				for j := range got[i] {
					assert.Equal(t, tc.want[i][j], got[i][j])
				}
			}
		})
	}
}

func TestSplitGroupsDoNotAlias(t *testing.T) {
	groups := Split([]int{1, 2, 3, 4}, 2)
	groups[0] = append(groups[0], 99)

	assert.Equal(t, []int{3, 4}, groups[1])
}

func TestSplitPanicsOnInvalidCount(t *testing.T) {
	assert.Panics(t, func() { Split([]int{1}, 0) })
}

func TestMapKeepsInputOrder(t *testing.T) {
	inputs := []int{5, 4, 3, 2, 1}

	out, err := Map(context.Background(), inputs, 5, func(_ context.Context, _ int, in int) (int, error) {
		time.Sleep(time.Duration(in) * time.Millisecond)
		return in * 10, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{50, 40, 30, 20, 10}, out)
}

func TestMapReturnsFirstErrorAndCancelsOthers(t *testing.T) {
	boom := errors.New("boom")
	var completed atomic.Int32

	out, err := Map(context.Background(), []int{0, 1, 2, 3}, 4, func(ctx context.Context, i int, _ int) (int, error) {
		if i == 1 {
			return 0, boom
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			completed.Add(1)
			return i, nil
		}
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, out)
	assert.Equal(t, int32(0), completed.Load())
}

func TestMapHonoursParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	out, err := Map(ctx, []int{1, 2, 3}, 2, func(context.Context, int, int) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
	assert.Equal(t, int32(0), calls.Load())
}

func TestMapSequentialLimit(t *testing.T) {
	var inFlight, peak atomic.Int32

	_, err := Map(context.Background(), make([]struct{}, 10), 1, func(context.Context, int, struct{}) (int, error) {
		cur := inFlight.Add(1)
		if cur > peak.Load() {
			peak.Store(cur)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(1), peak.Load())
}
