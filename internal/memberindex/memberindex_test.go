package memberindex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPresenceFanOut implements end-to-end scenario 1 from the
// specification: A, B, C share guild G1; A and D share guild G2. Flipping
// A's status must notify exactly {B, C, D}.
func TestPresenceFanOut(t *testing.T) {
	const (
		userA, userB, userC, userD = 1, 2, 3, 4
		guild1, guild2             = 100, 200
	)

	idx := FromMemberships([][2]int64{
		{guild1, userA}, {guild1, userB}, {guild1, userC},
		{guild2, userA}, {guild2, userD},
	})

	recipients := idx.PresenceRecipients(userA, []int64{guild1, guild2})

	assert.Len(t, recipients, 3)
	for _, want := range []int64{userB, userC, userD} {
		_, ok := recipients[want]
		assert.True(t, ok, "expected %d in recipients", want)
	}
	_, selfIncluded := recipients[userA]
	assert.False(t, selfIncluded)
}

func TestAddRemoveIdempotent(t *testing.T) {
	idx := New()
	idx.Add(1, 10)
	idx.Add(1, 10)

	recipients := idx.PresenceRecipients(999, []int64{1})
	assert.Len(t, recipients, 1)

	idx.Remove(1, 10)
	idx.Remove(1, 10) // idempotent, must not panic

	recipients = idx.PresenceRecipients(999, []int64{1})
	assert.Len(t, recipients, 0)
}

func TestRemoveGuildIdempotent(t *testing.T) {
	idx := New()
	idx.Add(1, 10)
	idx.RemoveGuild(1)
	idx.RemoveGuild(1) // idempotent

	recipients := idx.PresenceRecipients(999, []int64{1})
	assert.Len(t, recipients, 0)
}

func TestConcurrentReadsDoNotBlockEachOther(t *testing.T) {
	idx := FromMemberships([][2]int64{{1, 10}, {1, 11}, {1, 12}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx.PresenceRecipients(0, []int64{1})
		}()
	}
	wg.Wait()
}
