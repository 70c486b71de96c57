package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"membership/internal/event"
	"membership/internal/store/memory"
)

func TestValidName(t *testing.T) {
	assert.True(t, event.ValidName("General_Assembly_2024"))
	assert.False(t, event.ValidName("General Assembly"))
	assert.False(t, event.ValidName("assembly-2024"))
	assert.False(t, event.ValidName(""))
}

func TestParseDate(t *testing.T) {
	d, err := event.ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.March, d.Month())

	_, err = event.ParseDate("")
	assert.ErrorIs(t, err, event.ErrMissingDate)
	_, err = event.ParseDate("03/01/2024")
	assert.Error(t, err)
}

func TestEventLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := event.NewService(memory.New().Events(), zerolog.Nop())
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, "bad name", date)
	assert.ErrorIs(t, err, event.ErrInvalidName)
	_, err = svc.Create(ctx, "Assembly", time.Time{})
	assert.ErrorIs(t, err, event.ErrMissingDate)

	created, err := svc.Create(ctx, "Assembly", date)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "2024-03-01", created.DateString())

	_, err = svc.Create(ctx, "Assembly", date)
	assert.ErrorIs(t, err, event.ErrDuplicate)

	_, err = svc.Create(ctx, "Sportsfest", date.AddDate(0, 0, -1))
	require.NoError(t, err)
	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Sportsfest", list[0].Name, "ordered by date")

	renamed, err := svc.Update(ctx, "Assembly", "Assembly_2024", date.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, created.ID, renamed.ID)

	_, err = svc.Update(ctx, "Assembly_2024", "Sportsfest", date)
	assert.ErrorIs(t, err, event.ErrDuplicate)
	_, err = svc.Update(ctx, "Missing", "Other", date)
	assert.ErrorIs(t, err, event.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "Assembly_2024"))
	assert.ErrorIs(t, svc.Delete(ctx, "Assembly_2024"), event.ErrNotFound)
}
