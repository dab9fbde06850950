package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
)

func TestWindowCache_DropsFillAfterInvalidate(t *testing.T) {
	c := newWindowCache(time.Minute)
	id := uuid.New()
	stale := []*model.AvailabilityWindow{{DoctorID: id, Day: model.Monday, Room: "A101"}}

	gen := c.generation(id)
	c.invalidate(id)
	assert.False(t, c.fill(id, gen, stale))
	_, ok := c.get(id)
	assert.False(t, ok)

	assert.True(t, c.fill(id, c.generation(id), stale))
	cached, ok := c.get(id)
	require.True(t, ok)
	assert.Equal(t, stale, cached)
	assert.NotSame(t, stale[0], cached[0])
}

func TestListWindows_ReadRacingAddWindowsIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doctor, err := f.svc.CreateDoctor(ctx, doctorRequest("drhouse",
		window("MONDAY", tod(8, 0), tod(12, 0), "A101"),
	))
	require.NoError(t, err)

	// a read that started before the commit below
	gen := f.svc.cache.generation(doctor.ID)
	stale, err := f.store.Availability().ListByDoctor(ctx, doctor.ID)
	require.NoError(t, err)

	_, err = f.svc.AddWindows(ctx, doctor.ID, &model.AddWindowsRequest{Windows: []model.WindowInput{
		window("TUESDAY", tod(8, 0), tod(12, 0), "A101"),
	}})
	require.NoError(t, err)

	assert.False(t, f.svc.cache.fill(doctor.ID, gen, stale))

	windows, err := f.svc.ListWindows(ctx, doctor.ID)
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, model.Tuesday, windows[1].Day)
}
