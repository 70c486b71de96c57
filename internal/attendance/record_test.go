package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlot(t *testing.T) {
	for in, want := range map[string]Slot{
		"morning_in":   MorningIn,
		"morningIn":    MorningIn,
		"morningOut":   MorningOut,
		"afternoon_in": AfternoonIn,
		"AfternoonOut": AfternoonOut,
	} {
		got, err := ParseSlot(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseSlot("noon")
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestAbsences(t *testing.T) {
	now := time.Now()
	assert.Equal(t, UnitsPerEvent, Absences(nil))
	assert.Equal(t, 4, Absences(&Record{}))
	assert.Equal(t, 3, Absences(&Record{MorningIn: &now}))
	assert.Equal(t, 0, Absences(&Record{MorningIn: &now, MorningOut: &now, AfternoonIn: &now, AfternoonOut: &now}))
}

func TestRecordSet(t *testing.T) {
	var r Record
	at := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	r.Set(AfternoonIn, at)
	require.NotNil(t, r.At(AfternoonIn))
	assert.Equal(t, at, *r.At(AfternoonIn))
	assert.Nil(t, r.At(MorningIn))
	assert.Equal(t, 3, r.MissingUnits())
}
