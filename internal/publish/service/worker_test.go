package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"roster/internal/mbo"
	"roster/internal/publish"
	"roster/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_BlockedDuplicateAndCreatedSession(t *testing.T) {
	monday := session("e1", march4.Add(9*time.Hour), model.EventStatusEditing)
	tuesday := session("e2", march4.AddDate(0, 0, 1).Add(11*time.Hour), model.EventStatusEditing)
	locked := session("e3", march4.AddDate(0, 0, 2).Add(9*time.Hour), model.EventStatusLocked)
	locked.ExternalRef = "500"

	f := newFixture(monday, tuesday, locked)
	// Kept by the locked session, and overlapping the Monday session.
	f.client.bookings = []mbo.ClassSchedule{mondayBooking(500, march4, 9, 10)}

	run, err := f.orchestrator.PublishContainer(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, 2, run.TotalSessions)

	drain(t, f.queue, f.worker)

	got := f.runs.get(t, run.ID)
	assert.Equal(t, model.PublishStatusCompleted, got.Status)
	assert.Equal(t, 1, got.Succeeded)
	assert.Equal(t, 1, got.Failed)
	assert.ElementsMatch(t, []string{"e1", "e2"}, got.ProcessedSessionIDs)
	assert.Equal(t, 0, got.OldBookingsFound)
	assert.Empty(t, f.client.ended)
	assert.Empty(t, f.client.cancelled)

	blocked := f.logs.forEvent("e1")
	require.Len(t, blocked, 1)
	assert.Equal(t, model.OutcomeBlocked, blocked[0].Outcome)
	assert.False(t, blocked[0].Success)
	assert.Contains(t, blocked[0].Error, "overlap")
	assert.Equal(t, FnPublishSession, blocked[0].Function)

	created := f.logs.forEvent("e2")
	require.Len(t, created, 1)
	assert.Equal(t, model.OutcomeCreated, created[0].Outcome)
	assert.True(t, created[0].Success)
	assert.Equal(t, 5, created[0].SiteID)

	require.Len(t, f.client.created, 1)
	assert.Equal(t, "2024-03-05", f.client.created[0].StartDate)
	assert.Equal(t, "11:00:00", f.client.created[0].StartTime)
	assert.True(t, f.client.created[0].DayTuesday)

	assert.True(t, f.events.events["e2"].Published)
	assert.Equal(t, "1001", f.events.events["e2"].ExternalRef)
	assert.Equal(t, run.ID, f.events.events["e2"].PublishedRunID)
	assert.False(t, f.events.events["e1"].Published)
	assert.Equal(t, []string{"e2"}, f.availability.checked)

	assert.False(t, f.locks.held("c1"))
	assert.Equal(t, model.ContainerStatusPublished, f.containers.containers["c1"].Status)
}

func TestRemove_RetiresOldBookings(t *testing.T) {
	locked := session("e3", march4.Add(9*time.Hour), model.EventStatusLocked)
	locked.ExternalRef = "502"
	f := newFixture(locked)

	otherResource := mondayBooking(503, march4, 9, 10)
	otherResource.Resource = &mbo.Resource{ID: 4}
	f.client.bookings = []mbo.ClassSchedule{
		mondayBooking(500, time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC), 9, 10),
		mondayBooking(501, time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC), 9, 10),
		mondayBooking(502, march4, 9, 10),
		otherResource,
	}

	run, err := f.orchestrator.PublishContainer(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, 0, run.TotalSessions)

	drain(t, f.queue, f.worker)

	got := f.runs.get(t, run.ID)
	assert.Equal(t, model.PublishStatusCompleted, got.Status)
	assert.Equal(t, 2, got.OldBookingsFound)
	assert.Equal(t, 2, got.Removed)
	assert.Equal(t, []int64{500}, f.client.ended)
	assert.Equal(t, []int64{501}, f.client.cancelled)

	logs, err := f.logs.FindByRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, mbo.FnEndBooking, logs[0].Function)
	assert.Equal(t, model.OutcomeEnded, logs[0].Outcome)
	assert.Equal(t, mbo.FnCancelBooking, logs[1].Function)
	assert.Equal(t, model.OutcomeCancelled, logs[1].Outcome)
}

func TestRemove_FailureStopsRun(t *testing.T) {
	f := newFixture(session("e1", march4.Add(9*time.Hour), model.EventStatusEditing))
	f.client.listErr = fmt.Errorf("%w: ListBookings returned 503", mbo.ErrTransient)

	run, err := f.orchestrator.PublishContainer(context.Background(), "c1")
	require.NoError(t, err)

	drain(t, f.queue, f.worker)

	got := f.runs.get(t, run.ID)
	assert.Equal(t, model.PublishStatusFailed, got.Status)
	assert.Contains(t, got.Error, "503")
	assert.NotNil(t, got.CompletedAt)
	assert.Empty(t, f.client.created)
	assert.False(t, f.locks.held("c1"))
}

func TestPublishSession_TransientFailureIsLogged(t *testing.T) {
	f := newFixture(session("e1", march4.Add(9*time.Hour), model.EventStatusEditing))
	f.client.createErr = fmt.Errorf("%w: CreateBooking returned 503", mbo.ErrTransient)

	run, err := f.orchestrator.PublishContainer(context.Background(), "c1")
	require.NoError(t, err)

	drain(t, f.queue, f.worker)

	got := f.runs.get(t, run.ID)
	assert.Equal(t, model.PublishStatusCompleted, got.Status)
	assert.Equal(t, 0, got.Succeeded)
	assert.Equal(t, 1, got.Failed)

	logs := f.logs.forEvent("e1")
	require.Len(t, logs, 1)
	assert.Equal(t, model.OutcomeFailed, logs[0].Outcome)
	assert.Contains(t, logs[0].Error, "503")
	assert.False(t, f.events.events["e1"].Published)
	assert.Empty(t, f.availability.checked)
}

func TestPublishSession_DuplicateDeliveryIsSkipped(t *testing.T) {
	f := newFixture(
		session("e1", march4.Add(9*time.Hour), model.EventStatusEditing),
		session("e2", march4.AddDate(0, 0, 1).Add(11*time.Hour), model.EventStatusEditing),
	)
	ctx := context.Background()

	run, err := f.orchestrator.PublishContainer(ctx, "c1")
	require.NoError(t, err)

	removal, ok := f.queue.pop()
	require.True(t, ok)
	require.NoError(t, f.worker.HandleTask(ctx, removal))

	tasks := f.queue.pending()
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, publish.TaskSession, task.Type)
	}

	second := tasks[1]
	require.NoError(t, f.worker.HandleTask(ctx, second))
	require.NoError(t, f.worker.HandleTask(ctx, second))
	assert.Len(t, f.client.created, 1)
	assert.Equal(t, 1, f.runs.get(t, run.ID).Processed())

	// Redelivered removal must not restart the run.
	require.NoError(t, f.worker.HandleTask(ctx, removal))
	assert.Len(t, f.queue.pending(), 2)

	require.NoError(t, f.worker.HandleTask(ctx, tasks[0]))
	got := f.runs.get(t, run.ID)
	assert.Equal(t, model.PublishStatusCompleted, got.Status)
	assert.Equal(t, 2, got.Succeeded)
	assert.Len(t, f.client.created, 2)

	// Tasks of a finished run are acknowledged without work.
	require.NoError(t, f.worker.HandleTask(ctx, tasks[0]))
	assert.Len(t, f.client.created, 2)
}

func TestPublishSession_MissingEvent(t *testing.T) {
	f := newFixture(session("e1", march4.Add(9*time.Hour), model.EventStatusEditing))
	ctx := context.Background()

	run, err := f.orchestrator.PublishContainer(ctx, "c1")
	require.NoError(t, err)
	removal, _ := f.queue.pop()
	require.NoError(t, f.worker.HandleTask(ctx, removal))

	delete(f.events.events, "e1")
	drain(t, f.queue, f.worker)

	got := f.runs.get(t, run.ID)
	assert.Equal(t, model.PublishStatusCompleted, got.Status)
	assert.Equal(t, 1, got.Failed)

	logs := f.logs.forEvent("e1")
	require.Len(t, logs, 1)
	assert.Equal(t, model.OutcomeFailed, logs[0].Outcome)
	assert.Contains(t, logs[0].Error, "event not found")
}

func TestHandleTask_UnknownRunIsDropped(t *testing.T) {
	f := newFixture()
	err := f.worker.HandleTask(context.Background(), publish.Task{
		Type: publish.TaskSession, RunID: "ghost", ContainerID: "c1", EventID: "e1",
	})
	require.NoError(t, err)
	assert.Empty(t, f.logs.forEvent("e1"))
}

func TestPublishSession_ChangedAfterFanOutIsSkipped(t *testing.T) {
	f := newFixture(
		session("e1", march4.Add(9*time.Hour), model.EventStatusEditing),
		session("e2", march4.AddDate(0, 0, 1).Add(11*time.Hour), model.EventStatusEditing),
	)
	ctx := context.Background()

	run, err := f.orchestrator.PublishContainer(ctx, "c1")
	require.NoError(t, err)
	removal, _ := f.queue.pop()
	require.NoError(t, f.worker.HandleTask(ctx, removal))
	require.Len(t, f.queue.pending(), 2)

	f.events.events["e1"].Status = model.EventStatusLocked
	f.events.events["e2"].Deleted = true
	drain(t, f.queue, f.worker)

	assert.Empty(t, f.client.created)
	assert.False(t, f.events.events["e1"].Published)
	assert.False(t, f.events.events["e2"].Published)
	assert.Empty(t, f.availability.checked)

	got := f.runs.get(t, run.ID)
	assert.Equal(t, model.PublishStatusCompleted, got.Status)
	assert.Equal(t, 0, got.Succeeded)
	assert.Equal(t, 2, got.Failed)

	for id, reason := range map[string]string{"e1": "locked", "e2": "deleted"} {
		logs := f.logs.forEvent(id)
		require.Len(t, logs, 1, id)
		assert.Equal(t, model.OutcomeSkipped, logs[0].Outcome)
		assert.False(t, logs[0].Success)
		assert.Contains(t, logs[0].Error, reason)
	}
}

func TestPublishSession_StoreErrorFailsRun(t *testing.T) {
	f := newFixture(session("e1", march4.Add(9*time.Hour), model.EventStatusEditing))
	// No booking system staff matches, so the directory is consulted.
	f.stores.Users = fakeUsers{"u1": {ID: "u1", FirstName: "Bo", LastName: "Kim", Email: "bo@example.com"}}
	f.useDirectory(directoryFunc(func(ctx context.Context, email string, siteID int) (*model.StaffDirectoryEntry, error) {
		return nil, errors.New("server selection timeout")
	}))

	run, err := f.orchestrator.PublishContainer(context.Background(), "c1")
	require.NoError(t, err)

	drain(t, f.queue, f.worker)

	got := f.runs.get(t, run.ID)
	assert.Equal(t, model.PublishStatusFailed, got.Status)
	assert.Contains(t, got.Error, "server selection timeout")
	assert.Equal(t, 0, got.Failed)
	assert.Empty(t, f.client.created)
	assert.Empty(t, f.logs.forEvent("e1"))
	assert.False(t, f.locks.held("c1"))
}

func TestRemove_BookingWithoutResourceUsesLocation(t *testing.T) {
	f := newFixture()

	sameLocation := mondayBooking(510, march4, 9, 10)
	sameLocation.Resource = nil
	otherLocation := mondayBooking(511, march4, 9, 10)
	otherLocation.Resource = nil
	otherLocation.Location = mbo.Location{ID: 2}
	f.client.bookings = []mbo.ClassSchedule{sameLocation, otherLocation}

	run, err := f.orchestrator.PublishContainer(context.Background(), "c1")
	require.NoError(t, err)

	drain(t, f.queue, f.worker)

	got := f.runs.get(t, run.ID)
	assert.Equal(t, 1, got.OldBookingsFound)
	assert.Equal(t, []int64{510}, f.client.cancelled)
}
