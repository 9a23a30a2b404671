package dialog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReplaceAndExpire(t *testing.T) {
	s := NewStore()
	base := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	s.Save(Conversation{Identity: 1, BookingID: 10, Step: StepPeople, UpdatedAt: base})
	s.Save(Conversation{Identity: 1, BookingID: 11, Step: StepPeople, UpdatedAt: base.Add(time.Minute)})
	s.Save(Conversation{Identity: 2, BookingID: 12, Step: StepZone, UpdatedAt: base.Add(time.Hour)})

	conv, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, int64(11), conv.BookingID)
	assert.Equal(t, 2, s.Len())

	expired := s.ExpireIdle(base.Add(30 * time.Minute))
	require.Len(t, expired, 1)
	assert.Equal(t, int64(1), expired[0].Identity)

	s.Save(Conversation{Identity: 2, Step: StepNone})
	assert.Equal(t, 0, s.Len())
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := newKeyedMutex()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(7)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, k.locks)
}
