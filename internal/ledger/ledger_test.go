package ledger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecodining/internal/models"
)

func entry(i, points int) models.HistoryEntry {
	return models.HistoryEntry{
		ID:         fmt.Sprintf("scan-%d", i),
		Dish:       "Tacos",
		WasteLevel: models.WasteMinimal,
		TimeLabel:  "12:00 PM",
		Points:     points,
	}
}

func TestCommit_KeepsNewestTen(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 9, 10, 11, 25} {
		n := n
		t.Run(fmt.Sprintf("%d commits", n), func(t *testing.T) {
			t.Parallel()
			l := New(847, DefaultLimit)
			sum := 0
			for i := 0; i < n; i++ {
				pts := i%15 + 1
				sum += pts
				l.Commit(entry(i, pts))
			}

			entries, balance := l.Snapshot()
			assert.Equal(t, 847+sum, balance)
			require.Len(t, entries, min(n, DefaultLimit))
			for k, e := range entries {
				assert.Equal(t, fmt.Sprintf("scan-%d", n-1-k), e.ID, "newest first")
			}
		})
	}
}

func TestCommit_ReturnsBalance(t *testing.T) {
	t.Parallel()

	l := New(0, 3)
	assert.Equal(t, 15, l.Commit(entry(1, 15)))
	assert.Equal(t, 25, l.Commit(entry(2, 10)))
	assert.Equal(t, 25, l.Balance())
}

func TestNew_DefaultsLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultLimit, New(0, 0).Limit())
	assert.Equal(t, 4, New(0, 4).Limit())
}

func TestEntries_ReturnsCopy(t *testing.T) {
	t.Parallel()

	l := New(0, DefaultLimit)
	l.Commit(entry(1, 5))
	got := l.Entries()
	got[0].Dish = "changed"
	assert.Equal(t, "Tacos", l.Entries()[0].Dish)
}

func TestCommit_Concurrent(t *testing.T) {
	t.Parallel()

	l := New(100, DefaultLimit)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Commit(entry(i, 2))
		}(i)
	}

	// Every observed snapshot must pair history with its credit: with a
	// constant 2 points per scan the balance can never lag the history.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			entries, balance := l.Snapshot()
			assert.GreaterOrEqual(t, balance, 100+2*len(entries))
			assert.Zero(t, (balance-100)%2)
		}
	}()

	wg.Wait()
	<-done
	assert.Equal(t, 200, l.Balance())
	assert.Len(t, l.Entries(), DefaultLimit)
}
