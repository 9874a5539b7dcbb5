package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLabelStoreSaveAndLabels(t *testing.T) {
	s := NewLabelStore(0, 0)
	s.Save("48.8566,2.3522", "Paris")

	assert.Equal(t, map[string]string{"48.8566,2.3522": "Paris"}, s.Labels([]string{"48.8566,2.3522", "0,0"}))
	assert.Empty(t, s.Labels(nil))
}

func TestLabelStoreEvictsOldestByCount(t *testing.T) {
	s := NewLabelStore(2, 0)
	s.Save("a", "A")
	s.Save("b", "B")
	s.Save("a", "A2") // refresh moves "a" to the back
	s.Save("c", "C")

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, map[string]string{"a": "A2", "c": "C"}, s.Labels([]string{"a", "b", "c"}))
}

func TestLabelStoreExpiresByAge(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s := NewLabelStore(0, time.Hour)
	s.now = func() time.Time { return now }

	s.Save("a", "A")
	now = now.Add(30 * time.Minute)
	assert.Equal(t, map[string]string{"a": "A"}, s.Labels([]string{"a", "b"}))

	now = now.Add(time.Hour)
	assert.Empty(t, s.Labels([]string{"a"}))
	assert.Equal(t, 1, s.Len())
}
