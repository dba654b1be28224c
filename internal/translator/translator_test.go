package translator

import (
	"context"
	"fmt"
	"testing"
	"time"

	coacherrors "roster/internal/coaches/errors"
	"roster/internal/mbo"
	"roster/pkg/config"
	"roster/pkg/logger"
	"roster/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is a function-field fake of mbo.Client. Unset list calls return empty successes.
type mockClient struct {
	listClassDescriptionsFunc func(ctx context.Context, siteID, locationID int) (*mbo.Result[[]mbo.ClassDescription], error)
	listStaffFunc             func(ctx context.Context, siteID, locationID, page int) (*mbo.Result[mbo.StaffPage], error)
	listBookingsFunc          func(ctx context.Context, siteID int, q mbo.ScheduleQuery) (*mbo.Result[[]mbo.ClassSchedule], error)
	createBookingFunc         func(ctx context.Context, siteID int, req *mbo.ClassScheduleRequest) (*mbo.Result[mbo.ClassSchedule], error)
	updateBookingFunc         func(ctx context.Context, siteID int, upd *mbo.ClassScheduleUpdate) (*mbo.Result[mbo.ClassSchedule], error)
	endBookingFunc            func(ctx context.Context, siteID int, classID int64, endDate time.Time) (*mbo.Result[mbo.ClassSchedule], error)
	cancelBookingFunc         func(ctx context.Context, siteID int, classID int64) (*mbo.Result[mbo.ClassSchedule], error)
}

func (m *mockClient) ListClassDescriptions(ctx context.Context, siteID, locationID int) (*mbo.Result[[]mbo.ClassDescription], error) {
	if m.listClassDescriptionsFunc != nil {
		return m.listClassDescriptionsFunc(ctx, siteID, locationID)
	}
	return &mbo.Result[[]mbo.ClassDescription]{Success: true}, nil
}

func (m *mockClient) ListStaff(ctx context.Context, siteID, locationID, page int) (*mbo.Result[mbo.StaffPage], error) {
	if m.listStaffFunc != nil {
		return m.listStaffFunc(ctx, siteID, locationID, page)
	}
	return &mbo.Result[mbo.StaffPage]{Success: true}, nil
}

func (m *mockClient) ListBookings(ctx context.Context, siteID int, q mbo.ScheduleQuery) (*mbo.Result[[]mbo.ClassSchedule], error) {
	if m.listBookingsFunc != nil {
		return m.listBookingsFunc(ctx, siteID, q)
	}
	return &mbo.Result[[]mbo.ClassSchedule]{Success: true}, nil
}

func (m *mockClient) CreateBooking(ctx context.Context, siteID int, req *mbo.ClassScheduleRequest) (*mbo.Result[mbo.ClassSchedule], error) {
	if m.createBookingFunc != nil {
		return m.createBookingFunc(ctx, siteID, req)
	}
	return &mbo.Result[mbo.ClassSchedule]{Success: true, Data: mbo.ClassSchedule{ID: 1000}}, nil
}

func (m *mockClient) UpdateBooking(ctx context.Context, siteID int, upd *mbo.ClassScheduleUpdate) (*mbo.Result[mbo.ClassSchedule], error) {
	if m.updateBookingFunc != nil {
		return m.updateBookingFunc(ctx, siteID, upd)
	}
	return &mbo.Result[mbo.ClassSchedule]{Success: true, Data: mbo.ClassSchedule{ID: upd.ClassID}}, nil
}

func (m *mockClient) EndBooking(ctx context.Context, siteID int, classID int64, endDate time.Time) (*mbo.Result[mbo.ClassSchedule], error) {
	if m.endBookingFunc != nil {
		return m.endBookingFunc(ctx, siteID, classID, endDate)
	}
	return &mbo.Result[mbo.ClassSchedule]{Success: true}, nil
}

func (m *mockClient) CancelBooking(ctx context.Context, siteID int, classID int64) (*mbo.Result[mbo.ClassSchedule], error) {
	if m.cancelBookingFunc != nil {
		return m.cancelBookingFunc(ctx, siteID, classID)
	}
	return &mbo.Result[mbo.ClassSchedule]{Success: true}, nil
}

type mockDirectory struct {
	entries map[string]*model.StaffDirectoryEntry
	err     error
}

func (m *mockDirectory) FindByEmail(ctx context.Context, email string, siteID int) (*model.StaffDirectoryEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	if e, ok := m.entries[email]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", coacherrors.ErrStaffEntryNotFound, email)
}

var monday = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func clock(h, m int) mbo.Timestamp {
	return mbo.Timestamp{Time: time.Date(1900, 1, 1, h, m, 0, 0, time.UTC)}
}

func day(t time.Time) mbo.Timestamp {
	return mbo.Timestamp{Time: t}
}

func booking(id int64, resourceID int, startH, endH int) mbo.ClassSchedule {
	return mbo.ClassSchedule{
		ID:               id,
		ClassDescription: mbo.ClassDescription{ID: 10},
		Location:         mbo.Location{ID: 1},
		Resource:         &mbo.Resource{ID: resourceID},
		Staff:            &mbo.Staff{ID: 77},
		StartDate:        day(monday.AddDate(0, 0, -7)),
		EndDate:          day(monday.AddDate(0, 0, 21)),
		StartTime:        clock(startH, 0),
		EndTime:          clock(endH, 0),
		DayMonday:        true,
		MaxCapacity:      20,
		WebCapacity:      15,
	}
}

func testInput() Input {
	return Input{
		Event: &model.Event{
			ID:          "e1",
			VenueID:     "v1",
			ClassTypeID: "ct1",
			StartTime:   monday.Add(9 * time.Hour),
			EndTime:     monday.Add(10 * time.Hour),
		},
		Venue: &model.Venue{
			ID: "v1", Name: "Uptown", SiteID: 5, LocationID: 1, ResourceID: 3,
			Capacity: 20, WebCapacity: 15,
		},
		Host:      &model.User{ID: "u1", FirstName: "Ana", LastName: "Lee", Email: "Ana@Example.com"},
		ClassType: &model.ClassType{ID: "ct1", Name: "Hot Yoga", Aliases: []string{"Bikram"}},
	}
}

func defaultClient() *mockClient {
	return &mockClient{
		listClassDescriptionsFunc: func(ctx context.Context, siteID, locationID int) (*mbo.Result[[]mbo.ClassDescription], error) {
			return &mbo.Result[[]mbo.ClassDescription]{Success: true, Data: []mbo.ClassDescription{
				{ID: 10, Name: "Hot Yoga", Active: true},
				{ID: 11, Name: "Spin", Active: true},
			}}, nil
		},
		listStaffFunc: func(ctx context.Context, siteID, locationID, page int) (*mbo.Result[mbo.StaffPage], error) {
			return &mbo.Result[mbo.StaffPage]{Success: true, Data: mbo.StaffPage{
				Staff:      []mbo.Staff{{ID: 77, FirstName: "ana", LastName: "LEE"}},
				Pagination: mbo.Pagination{TotalResults: 1},
			}}, nil
		},
	}
}

func newTestTranslator(client mbo.Client, directory StaffDirectory) Translator {
	return NewTranslator(client, directory, &config.Config{Log: logger.Discard()})
}

func TestPrepare_ReadyToCreate(t *testing.T) {
	client := defaultClient()
	client.listBookingsFunc = func(ctx context.Context, siteID int, q mbo.ScheduleQuery) (*mbo.Result[[]mbo.ClassSchedule], error) {
		assert.Equal(t, []int{1}, q.LocationIDs)
		assert.Equal(t, "2024-03-04", q.StartDate.Format(mbo.DateLayout))
		// Different resource, and same resource at a later hour.
		return &mbo.Result[[]mbo.ClassSchedule]{Success: true, Data: []mbo.ClassSchedule{
			booking(1, 4, 9, 10),
			booking(2, 3, 10, 11),
		}}, nil
	}

	s, err := newTestTranslator(client, nil).Prepare(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, StateReady, s.State)
	assert.Equal(t, ActionCreate, s.Action)
	assert.Equal(t, []State{StateInit, StateResolvingClass, StateResolvingStaff, StateCheckingDuplicates, StateReady}, s.History)

	require.NotNil(t, s.Request)
	assert.Equal(t, int64(10), s.Request.ClassDescriptionID)
	assert.Equal(t, int64(77), s.Request.StaffID)
	assert.Equal(t, "09:00:00", s.Request.StartTime)
	assert.Equal(t, "10:00:00", s.Request.EndTime)
	assert.True(t, s.Request.DayMonday)
	assert.False(t, s.Request.DaySunday)
	assert.Equal(t, 3, s.Request.ResourceID)
}

func TestPrepare_NeverReadyWithOverlap(t *testing.T) {
	tests := []struct {
		name     string
		existing mbo.ClassSchedule
	}{
		{"same slot", booking(1, 3, 9, 10)},
		{"starts inside", booking(1, 3, 8, 10)},
		{"wraps session", booking(1, 3, 7, 12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := defaultClient()
			client.listBookingsFunc = func(ctx context.Context, siteID int, q mbo.ScheduleQuery) (*mbo.Result[[]mbo.ClassSchedule], error) {
				return &mbo.Result[[]mbo.ClassSchedule]{Success: true, Data: []mbo.ClassSchedule{tt.existing}}, nil
			}

			s, err := newTestTranslator(client, nil).Prepare(context.Background(), testInput())
			require.NoError(t, err)
			assert.Equal(t, StateBlocked, s.State)
			assert.False(t, s.Ready())
			require.Len(t, s.Conflicts, 1)
			assert.Equal(t, int64(1), s.Conflicts[0].ID)
			assert.Equal(t, model.OutcomeBlocked, s.Outcome())
		})
	}
}

func TestPrepare_IgnoresBookingsOnOtherDates(t *testing.T) {
	client := defaultClient()
	client.listBookingsFunc = func(ctx context.Context, siteID int, q mbo.ScheduleQuery) (*mbo.Result[[]mbo.ClassSchedule], error) {
		tuesdays := booking(1, 3, 9, 10)
		tuesdays.DayMonday = false
		tuesdays.DayTuesday = true

		ended := booking(2, 3, 9, 10)
		ended.EndDate = day(monday.AddDate(0, 0, -1))
		return &mbo.Result[[]mbo.ClassSchedule]{Success: true, Data: []mbo.ClassSchedule{tuesdays, ended}}, nil
	}

	s, err := newTestTranslator(client, nil).Prepare(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, StateReady, s.State)
	assert.Equal(t, ActionCreate, s.Action)
}

func TestPrepare_OwnBookingIsLeftInPlace(t *testing.T) {
	client := defaultClient()
	client.listBookingsFunc = func(ctx context.Context, siteID int, q mbo.ScheduleQuery) (*mbo.Result[[]mbo.ClassSchedule], error) {
		return &mbo.Result[[]mbo.ClassSchedule]{Success: true, Data: []mbo.ClassSchedule{booking(55, 3, 9, 10)}}, nil
	}
	in := testInput()
	in.Event.ExternalRef = "55"

	s, err := newTestTranslator(client, nil).Prepare(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StateReady, s.State)
	assert.Equal(t, ActionNone, s.Action)
	assert.Equal(t, int64(55), s.BookingID)

	require.NoError(t, newTestTranslator(client, nil).Publish(context.Background(), s))
	assert.Equal(t, StateSuccess, s.State)
	assert.Empty(t, s.Calls)
	assert.Equal(t, model.OutcomeUnchanged, s.Outcome())
}

func TestPrepare_ClassResolution(t *testing.T) {
	updated := func(d int) mbo.Timestamp { return day(monday.AddDate(0, 0, d)) }

	tests := []struct {
		name    string
		descs   []mbo.ClassDescription
		program int
		want    int64
	}{
		{
			name:  "alias match",
			descs: []mbo.ClassDescription{{ID: 1, Name: "BIKRAM", Active: true}},
			want:  1,
		},
		{
			name: "inactive ignored",
			descs: []mbo.ClassDescription{
				{ID: 1, Name: "Hot Yoga", Active: false},
				{ID: 2, Name: "hot-yoga", Active: true},
			},
			want: 2,
		},
		{
			name: "program preferred over exact name",
			descs: []mbo.ClassDescription{
				{ID: 1, Name: "Hot Yoga", Active: true, Program: mbo.Program{ID: 8}},
				{ID: 2, Name: "Bikram", Active: true, Program: mbo.Program{ID: 9}},
			},
			program: 9,
			want:    2,
		},
		{
			name: "exact name preferred over alias",
			descs: []mbo.ClassDescription{
				{ID: 1, Name: "Bikram", Active: true, LastUpdated: updated(5)},
				{ID: 2, Name: "Hot Yoga", Active: true, LastUpdated: updated(1)},
			},
			want: 2,
		},
		{
			name: "most recently updated",
			descs: []mbo.ClassDescription{
				{ID: 1, Name: "Hot Yoga", Active: true, LastUpdated: updated(1)},
				{ID: 2, Name: "Hot Yoga", Active: true, LastUpdated: updated(3)},
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := defaultClient()
			client.listClassDescriptionsFunc = func(ctx context.Context, siteID, locationID int) (*mbo.Result[[]mbo.ClassDescription], error) {
				return &mbo.Result[[]mbo.ClassDescription]{Success: true, Data: tt.descs}, nil
			}
			in := testInput()
			in.Venue.ProgramID = tt.program

			s, err := newTestTranslator(client, nil).Prepare(context.Background(), in)
			require.NoError(t, err)
			require.NotNil(t, s.ClassDescription)
			assert.Equal(t, tt.want, s.ClassDescription.ID)
		})
	}
}

func TestPrepare_BlockedWithoutClassMatch(t *testing.T) {
	client := defaultClient()
	client.listClassDescriptionsFunc = func(ctx context.Context, siteID, locationID int) (*mbo.Result[[]mbo.ClassDescription], error) {
		return &mbo.Result[[]mbo.ClassDescription]{Success: true, Data: []mbo.ClassDescription{{ID: 1, Name: "Pilates", Active: true}}}, nil
	}

	s, err := newTestTranslator(client, nil).Prepare(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, StateBlocked, s.State)
	assert.Contains(t, s.Reason, "Hot Yoga")
	assert.Equal(t, []State{StateInit, StateResolvingClass, StateBlocked}, s.History)
}

func TestPrepare_StaffResolution(t *testing.T) {
	t.Run("second page by display name", func(t *testing.T) {
		client := defaultClient()
		client.listStaffFunc = func(ctx context.Context, siteID, locationID, page int) (*mbo.Result[mbo.StaffPage], error) {
			if page == 0 {
				return &mbo.Result[mbo.StaffPage]{Success: true, Data: mbo.StaffPage{
					Staff:      []mbo.Staff{{ID: 1, FirstName: "Bo", LastName: "Ng"}},
					Pagination: mbo.Pagination{RequestedOffset: 0, TotalResults: 2},
				}}, nil
			}
			return &mbo.Result[mbo.StaffPage]{Success: true, Data: mbo.StaffPage{
				Staff:      []mbo.Staff{{ID: 2, DisplayName: "Coach Ana"}},
				Pagination: mbo.Pagination{RequestedOffset: 1, TotalResults: 2},
			}}, nil
		}
		in := testInput()
		in.Host.DisplayName = "coach ana"

		s, err := newTestTranslator(client, nil).Prepare(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, int64(2), s.StaffID)
	})

	t.Run("directory fallback by email", func(t *testing.T) {
		client := defaultClient()
		client.listStaffFunc = func(ctx context.Context, siteID, locationID, page int) (*mbo.Result[mbo.StaffPage], error) {
			return &mbo.Result[mbo.StaffPage]{Success: true}, nil
		}
		directory := &mockDirectory{entries: map[string]*model.StaffDirectoryEntry{
			"ana@example.com": {Email: "ana@example.com", SiteID: 5, StaffID: 99},
		}}

		s, err := newTestTranslator(client, directory).Prepare(context.Background(), testInput())
		require.NoError(t, err)
		assert.Equal(t, int64(99), s.StaffID)
		assert.Equal(t, StateReady, s.State)
	})

	t.Run("blocked when nothing resolves", func(t *testing.T) {
		client := defaultClient()
		client.listStaffFunc = func(ctx context.Context, siteID, locationID, page int) (*mbo.Result[mbo.StaffPage], error) {
			return &mbo.Result[mbo.StaffPage]{Success: true}, nil
		}

		s, err := newTestTranslator(client, &mockDirectory{}).Prepare(context.Background(), testInput())
		require.NoError(t, err)
		assert.Equal(t, StateBlocked, s.State)
		assert.Contains(t, s.Reason, "Ana Lee")
	})

	t.Run("no host", func(t *testing.T) {
		in := testInput()
		in.Host = nil

		s, err := newTestTranslator(defaultClient(), nil).Prepare(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, StateBlocked, s.State)
		assert.Equal(t, "Session has no coach assigned", s.Reason)
	})
}

func TestPrepare_TransientErrorFailsSession(t *testing.T) {
	client := defaultClient()
	client.listBookingsFunc = func(ctx context.Context, siteID int, q mbo.ScheduleQuery) (*mbo.Result[[]mbo.ClassSchedule], error) {
		return nil, fmt.Errorf("%w: ListBookings returned 503", mbo.ErrTransient)
	}

	s, err := newTestTranslator(client, nil).Prepare(context.Background(), testInput())
	require.Error(t, err)
	assert.True(t, mbo.IsTransient(err))
	assert.Equal(t, StateFailed, s.State)
}

func TestPublish_Create(t *testing.T) {
	client := defaultClient()
	tr := newTestTranslator(client, nil)

	s, err := tr.Prepare(context.Background(), testInput())
	require.NoError(t, err)
	require.NoError(t, tr.Publish(context.Background(), s))

	assert.Equal(t, StateSuccess, s.State)
	assert.Equal(t, int64(1000), s.BookingID)
	require.Len(t, s.Calls, 1)
	assert.Equal(t, mbo.FnCreateBooking, s.Calls[0].Function)
	assert.True(t, s.Calls[0].Success)
	assert.Equal(t, model.OutcomeCreated, s.Outcome())
}

func TestPublish_RejectedCreateFails(t *testing.T) {
	client := defaultClient()
	client.createBookingFunc = func(ctx context.Context, siteID int, req *mbo.ClassScheduleRequest) (*mbo.Result[mbo.ClassSchedule], error) {
		return &mbo.Result[mbo.ClassSchedule]{Success: false, Error: &mbo.RemoteError{StatusCode: 400, Message: "staff unavailable"}}, nil
	}
	tr := newTestTranslator(client, nil)

	s, err := tr.Prepare(context.Background(), testInput())
	require.NoError(t, err)
	require.NoError(t, tr.Publish(context.Background(), s))

	assert.Equal(t, StateFailed, s.State)
	assert.Contains(t, s.Reason, "staff unavailable")
	require.Len(t, s.Calls, 1)
	assert.False(t, s.Calls[0].Success)
	assert.Equal(t, model.OutcomeFailed, s.Outcome())
}

func TestPublish_RequiresReady(t *testing.T) {
	s := NewSession(testInput())
	err := newTestTranslator(defaultClient(), nil).Publish(context.Background(), s)
	require.Error(t, err)
}

func TestPrepareUpdate(t *testing.T) {
	overlapping := func(bookings ...mbo.ClassSchedule) *mockClient {
		client := defaultClient()
		client.listBookingsFunc = func(ctx context.Context, siteID int, q mbo.ScheduleQuery) (*mbo.Result[[]mbo.ClassSchedule], error) {
			return &mbo.Result[[]mbo.ClassSchedule]{Success: true, Data: bookings}, nil
		}
		return client
	}

	t.Run("several overlaps without keep id is blocked", func(t *testing.T) {
		client := overlapping(booking(1, 3, 9, 10), booking(2, 3, 9, 10))

		s, err := newTestTranslator(client, nil).PrepareUpdate(context.Background(), testInput(), 0)
		require.NoError(t, err)
		assert.Equal(t, StateBlocked, s.State)
		assert.Len(t, s.Conflicts, 2)
	})

	t.Run("identical single overlap needs nothing", func(t *testing.T) {
		client := overlapping(booking(1, 3, 9, 10))

		s, err := newTestTranslator(client, nil).PrepareUpdate(context.Background(), testInput(), 0)
		require.NoError(t, err)
		assert.Equal(t, StateReady, s.State)
		assert.Equal(t, ActionNone, s.Action)
		assert.Equal(t, int64(1), s.BookingID)
	})

	t.Run("keep one, update diff and retire the rest", func(t *testing.T) {
		keep := booking(1, 3, 9, 10)
		keep.Staff = &mbo.Staff{ID: 5}
		older := booking(2, 3, 9, 10)
		newer := booking(3, 3, 9, 10)
		newer.StartDate = day(monday)

		client := overlapping(keep, older, newer)
		var updated *mbo.ClassScheduleUpdate
		var ended, cancelled []int64
		var endDate time.Time
		client.updateBookingFunc = func(ctx context.Context, siteID int, upd *mbo.ClassScheduleUpdate) (*mbo.Result[mbo.ClassSchedule], error) {
			updated = upd
			return &mbo.Result[mbo.ClassSchedule]{Success: true, Data: mbo.ClassSchedule{ID: upd.ClassID}}, nil
		}
		client.endBookingFunc = func(ctx context.Context, siteID int, classID int64, d time.Time) (*mbo.Result[mbo.ClassSchedule], error) {
			ended = append(ended, classID)
			endDate = d
			return &mbo.Result[mbo.ClassSchedule]{Success: true}, nil
		}
		client.cancelBookingFunc = func(ctx context.Context, siteID int, classID int64) (*mbo.Result[mbo.ClassSchedule], error) {
			cancelled = append(cancelled, classID)
			return &mbo.Result[mbo.ClassSchedule]{Success: true}, nil
		}
		tr := newTestTranslator(client, nil)

		s, err := tr.PrepareUpdate(context.Background(), testInput(), 1)
		require.NoError(t, err)
		require.Equal(t, StateReady, s.State)
		assert.Equal(t, ActionUpdate, s.Action)

		require.NoError(t, tr.Publish(context.Background(), s))
		assert.Equal(t, StateSuccess, s.State)

		require.NotNil(t, updated)
		assert.Equal(t, int64(1), updated.ClassID)
		require.NotNil(t, updated.StaffID)
		assert.Equal(t, int64(77), *updated.StaffID)
		assert.Nil(t, updated.StartTime)

		assert.Equal(t, []int64{2}, ended)
		assert.Equal(t, "2024-03-03", endDate.Format(mbo.DateLayout))
		assert.Equal(t, []int64{3}, cancelled)
		assert.Len(t, s.Calls, 3)
		assert.Equal(t, model.OutcomeUpdated, s.Outcome())
	})

	t.Run("keep id not among overlaps", func(t *testing.T) {
		client := overlapping(booking(1, 3, 9, 10))

		s, err := newTestTranslator(client, nil).PrepareUpdate(context.Background(), testInput(), 42)
		require.NoError(t, err)
		assert.Equal(t, StateBlocked, s.State)
	})
}

func TestOverlapping_UsesLocationWithoutResource(t *testing.T) {
	b := booking(1, 0, 9, 10)
	b.Resource = nil
	other := booking(2, 0, 9, 10)
	other.Resource = nil
	other.Location = mbo.Location{ID: 2}

	got := Overlapping([]mbo.ClassSchedule{b, other}, 0, 1, monday, 9*3600+1800, 10*3600+1800)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	assert.Empty(t, Overlapping([]mbo.ClassSchedule{b}, 0, 1, monday, 10*3600, 11*3600))
}

func TestOverlapping_BookingWithoutResourceAtVenueWithResource(t *testing.T) {
	noResource := booking(1, 0, 9, 10)
	noResource.Resource = nil
	elsewhere := booking(2, 0, 9, 10)
	elsewhere.Resource = nil
	elsewhere.Location = mbo.Location{ID: 2}
	otherRoom := booking(3, 4, 9, 10)

	got := Overlapping([]mbo.ClassSchedule{noResource, elsewhere, otherRoom}, 3, 1, monday, 9*3600, 10*3600)

	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.True(t, SameResource(&noResource, 3, 1))
	assert.False(t, SameResource(&otherRoom, 3, 1))
}
