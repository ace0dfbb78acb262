package planner

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runLog struct {
	mu   sync.Mutex
	keys []string
}

func (l *runLog) record(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
}

func (l *runLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.keys...)
}

func TestDebouncer_LastScheduleWins(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	log := &runLog{}

	d.Schedule("a", log.record)
	d.Schedule("b", log.record)
	d.Schedule("c", log.record)

	key, ok := d.Pending()
	assert.True(t, ok)
	assert.Equal(t, "c", key)

	require.Eventually(t, func() bool { return len(log.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"c"}, log.snapshot())

	_, ok = d.Pending()
	assert.False(t, ok)
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	log := &runLog{}

	d.Schedule("a", log.record)
	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, log.snapshot())
}

func TestDebouncer_Flush(t *testing.T) {
	d := NewDebouncer(time.Hour)
	log := &runLog{}

	assert.False(t, d.Flush())

	d.Schedule("a", log.record)
	assert.True(t, d.Flush())
	assert.Equal(t, []string{"a"}, log.snapshot())

	assert.False(t, d.Flush())
	assert.Equal(t, []string{"a"}, log.snapshot())
}

func TestDebouncer_RescheduleFromTask(t *testing.T) {
	d := NewDebouncer(5 * time.Millisecond)
	log := &runLog{}

	d.Schedule("first", func(key string) {
		log.record(key)
		d.Schedule("second", log.record)
	})

	require.Eventually(t, func() bool { return len(log.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, log.snapshot())
}
