package logevt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamCollectsEvents(t *testing.T) {
	s := NewStream()
	s.Info("loaded archive")
	s.Warn("manifest parse failed, falling back to byte scan")
	s.Error("signing failed")

	events := s.Events()
	require.Len(t, events, 3)
	assert.Equal(t, KindInfo, events[0].Kind)
	assert.Equal(t, "loaded archive", events[0].Message)
	assert.Equal(t, KindWarn, events[1].Kind)
	assert.Equal(t, KindError, events[2].Kind)
	for _, e := range events {
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestSuccessRecordsKindSuccess(t *testing.T) {
	s := NewStream()
	s.Info("loaded archive")
	s.Success("emitted patched archive")

	events := s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, KindInfo, events[0].Kind)
	assert.Equal(t, KindSuccess, events[1].Kind)
}

func TestEventsReturnsACopy(t *testing.T) {
	s := NewStream()
	s.Info("first")

	events := s.Events()
	events[0].Message = "mutated"

	assert.Equal(t, "first", s.Events()[0].Message)
}
