package mbo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"roster/pkg/config"
	"roster/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...func(*config.Config)) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Log:                     logger.Discard(),
		MboBaseURL:              server.URL,
		MboAPIKey:               "key-1",
		MboCallTimeout:          2 * time.Second,
		MboMaxRetries:           3,
		MboRetryInitialInterval: time.Millisecond,
		MboRetryMaxInterval:     5 * time.Millisecond,
		MboRateLimitRPS:         1000,
		MboRateLimitBurst:       100,
		MboStaffPageSize:        2,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return NewClient(cfg)
}

func validRequest() *ClassScheduleRequest {
	return &ClassScheduleRequest{
		ClassDescriptionID: 10,
		LocationID:         1,
		ResourceID:         3,
		StaffID:            77,
		StartDate:          "2024-03-04",
		EndDate:            "2024-03-04",
		StartTime:          "09:00:00",
		EndTime:            "10:00:00",
		Weekdays:           WeekdaysOf(time.Monday),
		MaxCapacity:        20,
		WebCapacity:        15,
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestCreateBooking_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/class/addclassschedule", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("Api-Key"))
		assert.Equal(t, "5", r.Header.Get("SiteId"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(10), body["ClassDescriptionId"])
		assert.Equal(t, true, body["DayMonday"])
		assert.Equal(t, false, body["DayTuesday"])

		writeJSON(w, http.StatusOK, `{"ClassSchedule":{"Id":42,"StartTime":"1900-01-01T09:00:00"}}`)
	})

	res, err := c.CreateBooking(context.Background(), 5, validRequest())
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, int64(42), res.Data.ID)
	assert.Equal(t, 9*3600, res.Data.StartTime.DaySeconds())
	assert.NotEmpty(t, res.Raw)
	assert.NoError(t, res.Err())
}

func TestCreateBooking_RejectedIsResultNotError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"Error":{"Message":"Staff is not available","Code":"InvalidStaff"}}`)
	})

	res, err := c.CreateBooking(context.Background(), 5, validRequest())
	require.NoError(t, err)
	require.False(t, res.Success)
	assert.Equal(t, http.StatusBadRequest, res.Error.StatusCode)
	assert.Equal(t, "InvalidStaff", res.Error.Code)
	assert.Equal(t, "Staff is not available", res.Error.Message)
	assert.Error(t, res.Err())
}

func TestCall_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, `{"Message":"busy"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"ClassSchedule":{"Id":7}}`)
	})

	res, err := c.CancelBooking(context.Background(), 5, 7)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCall_ExhaustedRetriesAreTransient(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusTooManyRequests, `{"Message":"slow down"}`)
	})

	_, err := c.EndBooking(context.Background(), 5, 7, time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(4), calls.Load())
}

func TestCall_InvalidPayloadNeverSent(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	req := validRequest()
	req.StartTime = "9am"
	_, err := c.CreateBooking(context.Background(), 5, req)
	assert.True(t, errors.Is(err, ErrInvalidPayload))

	_, err = c.UpdateBooking(context.Background(), 5, &ClassScheduleUpdate{})
	assert.True(t, errors.Is(err, ErrInvalidPayload))

	bad := "25:00:00"
	_, err = c.UpdateBooking(context.Background(), 5, &ClassScheduleUpdate{ClassID: 9, StartTime: &bad})
	assert.True(t, errors.Is(err, ErrInvalidPayload))

	assert.Equal(t, int32(0), calls.Load())
}

func TestListBookings_FollowsPagination(t *testing.T) {
	var (
		mu      sync.Mutex
		offsets []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/class/classschedules", r.URL.Path)
		assert.Equal(t, []string{"1"}, q["request.locationIds"])
		assert.Equal(t, "2024-03-01", q.Get("request.startDate"))
		assert.Equal(t, "2024-03-31", q.Get("request.endDate"))
		mu.Lock()
		offsets = append(offsets, q.Get("request.offset"))
		mu.Unlock()

		if q.Get("request.offset") == "0" {
			writeJSON(w, http.StatusOK, `{"PaginationResponse":{"TotalResults":3},"ClassSchedules":[{"Id":1},{"Id":2}]}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"PaginationResponse":{"TotalResults":3},"ClassSchedules":[{"Id":3}]}`)
	})

	res, err := c.ListBookings(context.Background(), 5, ScheduleQuery{
		LocationIDs: []int{1},
		StartDate:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Len(t, res.Data, 3)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"0", "2"}, offsets)
}

func TestListStaff_Page(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("request.limit"))
		assert.Equal(t, "4", r.URL.Query().Get("request.offset"))
		writeJSON(w, http.StatusOK, `{"PaginationResponse":{"RequestedOffset":4,"TotalResults":7},"StaffMembers":[{"Id":1,"FirstName":"Ana"},{"Id":2,"FirstName":"Bo"}]}`)
	})

	res, err := c.ListStaff(context.Background(), 5, 1, 2)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Len(t, res.Data.Staff, 2)
	assert.True(t, res.Data.HasMore())
}

func TestCall_IssuesAndRefreshesToken(t *testing.T) {
	var issued, rejectedOnce atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/usertoken/issue" {
			n := issued.Add(1)
			if n == 1 {
				writeJSON(w, http.StatusOK, `{"TokenType":"Bearer","AccessToken":"old"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"TokenType":"Bearer","AccessToken":"new"}`)
			return
		}
		if r.Header.Get("Authorization") == "Bearer old" {
			rejectedOnce.Add(1)
			writeJSON(w, http.StatusUnauthorized, `{"Message":"expired"}`)
			return
		}
		assert.Equal(t, "Bearer new", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"ClassDescriptions":[{"Id":1,"Name":"Yoga","Active":true}],"PaginationResponse":{"TotalResults":1}}`)
	}, func(cfg *config.Config) {
		cfg.MboSourceName = "source"
		cfg.MboSourcePassword = "secret"
	})

	res, err := c.ListClassDescriptions(context.Background(), 5, 1)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "Yoga", res.Data[0].Name)
	assert.Equal(t, int32(2), issued.Load())
	assert.Equal(t, int32(1), rejectedOnce.Load())
}

func TestTimestamp_Unmarshal(t *testing.T) {
	var s ClassSchedule
	require.NoError(t, json.Unmarshal([]byte(`{
		"StartDate":"2024-03-04T00:00:00",
		"EndDate":"2024-03-31T00:00:00Z",
		"StartTime":"1900-01-01T18:30:00",
		"EndTime":null
	}`), &s))

	assert.Equal(t, 4, s.StartDate.Day())
	assert.Equal(t, 31, s.EndDate.Day())
	assert.Equal(t, 18*3600+30*60, s.StartTime.DaySeconds())
	assert.True(t, s.EndTime.IsZero())
}

func TestClassSchedule_OccursOn(t *testing.T) {
	s := ClassSchedule{
		StartDate: Timestamp{time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)},
		EndDate:   Timestamp{time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC)},
		DayMonday: true,
	}

	assert.True(t, s.OccursOn(time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)))
	assert.True(t, s.OccursOn(time.Date(2024, time.March, 18, 23, 0, 0, 0, time.UTC)))
	assert.False(t, s.OccursOn(time.Date(2024, time.March, 12, 9, 0, 0, 0, time.UTC)))
	assert.False(t, s.OccursOn(time.Date(2024, time.March, 25, 9, 0, 0, 0, time.UTC)))
	assert.False(t, s.OccursOn(time.Date(2024, time.February, 26, 9, 0, 0, 0, time.UTC)))
}

func TestClassScheduleRequest_DaySeconds(t *testing.T) {
	start, end, err := validRequest().DaySeconds()
	require.NoError(t, err)
	assert.Equal(t, 9*3600, start)
	assert.Equal(t, 10*3600, end)
}

func TestDiff(t *testing.T) {
	current := &ClassSchedule{
		ID:               9,
		ClassDescription: ClassDescription{ID: 10},
		Staff:            &Staff{ID: 77},
		StartTime:        Timestamp{time.Date(1900, 1, 1, 9, 0, 0, 0, time.UTC)},
		EndTime:          Timestamp{time.Date(1900, 1, 1, 10, 0, 0, 0, time.UTC)},
		MaxCapacity:      20,
		WebCapacity:      15,
	}

	upd := Diff(current, validRequest())
	assert.Equal(t, int64(9), upd.ClassID)
	assert.True(t, upd.Empty())

	want := validRequest()
	want.StaffID = 78
	want.EndTime = "10:15:00"
	upd = Diff(current, want)
	assert.False(t, upd.Empty())
	require.NotNil(t, upd.StaffID)
	assert.Equal(t, int64(78), *upd.StaffID)
	require.NotNil(t, upd.EndTime)
	assert.Equal(t, "10:15:00", *upd.EndTime)
	assert.Nil(t, upd.StartTime)
	assert.Nil(t, upd.ClassDescriptionID)
}

func TestUpdateBooking_SendsOnlyChangedFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"ClassId": float64(9), "StaffId": float64(78)}, body)
		writeJSON(w, http.StatusOK, `{"ClassSchedule":{"Id":9}}`)
	})

	staff := int64(78)
	res, err := c.UpdateBooking(context.Background(), 5, &ClassScheduleUpdate{ClassID: 9, StaffID: &staff})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestIsBookingSystemError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", fmt.Errorf("list staff: %w", ErrTransient), true},
		{"unexpected response", fmt.Errorf("%w: ListStaff: bad json", ErrUnexpectedResponse), true},
		{"invalid payload", fmt.Errorf("%w: empty payload", ErrInvalidPayload), true},
		{"store failure", errors.New("server selection timeout"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBookingSystemError(tt.err))
		})
	}
}
