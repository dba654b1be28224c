package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	coacherrors "roster/internal/coaches/errors"
	"roster/internal/mbo"
	"roster/internal/publish"
	publisherrors "roster/internal/publish/errors"
	scheduleerrors "roster/internal/schedule/errors"
	"roster/internal/translator"
	venueerrors "roster/internal/venues/errors"
	"roster/pkg/config"
	"roster/pkg/logger"
	"roster/pkg/model"

	"github.com/stretchr/testify/require"
)

type fakeRuns struct {
	mu      sync.Mutex
	runs    map[string]*model.PublishRun
	findErr error
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{runs: map[string]*model.PublishRun{}}
}

func cloneRun(r *model.PublishRun) *model.PublishRun {
	c := *r
	c.ProcessedSessionIDs = append([]string{}, r.ProcessedSessionIDs...)
	return &c
}

func (f *fakeRuns) Create(ctx context.Context, run *model.PublishRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	run.CreatedAt, run.UpdatedAt = now, now
	f.runs[run.ID] = cloneRun(run)
	return nil
}

func (f *fakeRuns) FindByID(ctx context.Context, id string) (*model.PublishRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	r, ok := f.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", publisherrors.ErrRunNotFound, id)
	}
	return cloneRun(r), nil
}

func (f *fakeRuns) FindActive(ctx context.Context, containerID string) (*model.PublishRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.ContainerID == containerID && !r.Status.IsTerminal() {
			return cloneRun(r), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", publisherrors.ErrRunNotFound, containerID)
}

func (f *fakeRuns) update(id string, allowed func(*model.PublishRun) bool, apply func(*model.PublishRun)) (*model.PublishRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok || !allowed(r) {
		return nil, fmt.Errorf("%w: run %s", publisherrors.ErrInvalidTransition, id)
	}
	apply(r)
	r.UpdatedAt = time.Now().UTC()
	return cloneRun(r), nil
}

func statusIn(statuses ...model.PublishStatus) func(*model.PublishRun) bool {
	return func(r *model.PublishRun) bool {
		for _, s := range statuses {
			if r.Status == s {
				return true
			}
		}
		return false
	}
}

func (f *fakeRuns) StartRemoval(ctx context.Context, id string) (*model.PublishRun, error) {
	return f.update(id, statusIn(model.PublishStatusPending), func(r *model.PublishRun) {
		r.Status = model.PublishStatusRemoving
	})
}

func (f *fakeRuns) FinishRemoval(ctx context.Context, id string, found, removed int) (*model.PublishRun, error) {
	return f.update(id, statusIn(model.PublishStatusRemoving), func(r *model.PublishRun) {
		r.Status = model.PublishStatusRemoved
		r.OldBookingsFound = found
		r.Removed = removed
	})
}

func (f *fakeRuns) StartPublishing(ctx context.Context, id string, totalSessions int) (*model.PublishRun, error) {
	return f.update(id, statusIn(model.PublishStatusRemoved), func(r *model.PublishRun) {
		r.Status = model.PublishStatusPublishing
		r.TotalSessions = totalSessions
	})
}

func (f *fakeRuns) RecordSession(ctx context.Context, id, eventID string, success bool) (*model.PublishRun, error) {
	allowed := func(r *model.PublishRun) bool {
		return r.Status == model.PublishStatusPublishing && !r.HasProcessed(eventID)
	}
	return f.update(id, allowed, func(r *model.PublishRun) {
		r.ProcessedSessionIDs = append(r.ProcessedSessionIDs, eventID)
		if success {
			r.Succeeded++
		} else {
			r.Failed++
		}
	})
}

func (f *fakeRuns) Complete(ctx context.Context, id string) (*model.PublishRun, error) {
	allowed := func(r *model.PublishRun) bool {
		return r.Status == model.PublishStatusPublishing && r.Processed() >= r.TotalSessions
	}
	return f.update(id, allowed, func(r *model.PublishRun) {
		now := time.Now().UTC()
		r.Status = model.PublishStatusCompleted
		r.CompletedAt = &now
	})
}

func (f *fakeRuns) Fail(ctx context.Context, id, reason string) (*model.PublishRun, error) {
	return f.update(id, statusIn(model.ActivePublishStatuses...), func(r *model.PublishRun) {
		now := time.Now().UTC()
		r.Status = model.PublishStatusFailed
		r.Error = reason
		r.CompletedAt = &now
	})
}

func (f *fakeRuns) get(t *testing.T, id string) *model.PublishRun {
	t.Helper()
	run, err := f.FindByID(context.Background(), id)
	require.NoError(t, err)
	return run
}

type fakeLogs struct {
	mu   sync.Mutex
	logs []*model.BookingLog
}

func (f *fakeLogs) Insert(ctx context.Context, log *model.BookingLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeLogs) InsertMany(ctx context.Context, logs []*model.BookingLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, logs...)
	return nil
}

func (f *fakeLogs) FindByRun(ctx context.Context, runID string) ([]*model.BookingLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.BookingLog{}
	for _, l := range f.logs {
		if l.RunID == runID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLogs) DeleteByRun(ctx context.Context, runID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*model.BookingLog
	var deleted int64
	for _, l := range f.logs {
		if l.RunID == runID {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	f.logs = kept
	return deleted, nil
}

func (f *fakeLogs) forEvent(eventID string) []*model.BookingLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.BookingLog
	for _, l := range f.logs {
		if l.EventID == eventID {
			out = append(out, l)
		}
	}
	return out
}

type fakeLocks struct {
	mu    sync.Mutex
	locks map[string]*model.PublishLock
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{locks: map[string]*model.PublishLock{}}
}

func (f *fakeLocks) Acquire(ctx context.Context, containerID, runID string, ttl time.Duration) (*model.PublishLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	if l, ok := f.locks[containerID]; ok && l.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: container %s", publisherrors.ErrLockHeld, containerID)
	}
	l := &model.PublishLock{
		ID:          model.PublishLockID(containerID),
		ContainerID: containerID,
		RunID:       runID,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}
	f.locks[containerID] = l
	return l, nil
}

func (f *fakeLocks) Find(ctx context.Context, containerID string) (*model.PublishLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locks[containerID]
	if !ok {
		return nil, fmt.Errorf("%w: container %s", publisherrors.ErrLockNotFound, containerID)
	}
	c := *l
	return &c, nil
}

func (f *fakeLocks) Release(ctx context.Context, containerID, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.locks[containerID]; ok && l.RunID == runID {
		delete(f.locks, containerID)
	}
	return nil
}

func (f *fakeLocks) held(containerID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.locks[containerID]
	return ok
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []publish.Task
	err   error
}

func (q *fakeQueue) Enqueue(ctx context.Context, tasks ...publish.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, tasks...)
	return nil
}

func (q *fakeQueue) pop() (publish.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return publish.Task{}, false
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t, true
}

func (q *fakeQueue) pending() []publish.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]publish.Task{}, q.tasks...)
}

// drain hands queued tasks to h until the queue is empty, like a single consumer would.
func drain(t *testing.T, q *fakeQueue, h publish.TaskHandler) {
	t.Helper()
	for i := 0; i < 100; i++ {
		task, ok := q.pop()
		if !ok {
			return
		}
		require.NoError(t, h.HandleTask(context.Background(), task))
	}
	t.Fatal("queue did not drain")
}

type fakeContainers struct {
	mu         sync.Mutex
	containers map[string]*model.EventContainer
}

func (f *fakeContainers) FindByID(ctx context.Context, id string) (*model.EventContainer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", scheduleerrors.ErrContainerNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContainers) SetStatus(ctx context.Context, id string, status model.ContainerStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.containers[id]; ok {
		c.Status = status
	}
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events map[string]*model.Event
}

func (f *fakeEvents) FindByID(ctx context.Context, id string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", scheduleerrors.ErrEventNotFound, id)
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEvents) filter(containerID string, keep func(*model.Event) bool) []*model.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Event
	for _, e := range f.events {
		if e.ContainerID == containerID && !e.Deleted && keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeEvents) FindPublishable(ctx context.Context, containerID string) ([]*model.Event, error) {
	return f.filter(containerID, func(e *model.Event) bool { return !e.IsLocked() }), nil
}

func (f *fakeEvents) FindLocked(ctx context.Context, containerID string) ([]*model.Event, error) {
	return f.filter(containerID, func(e *model.Event) bool { return e.IsLocked() }), nil
}

func (f *fakeEvents) MarkPublished(ctx context.Context, id, externalRef, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return fmt.Errorf("%w: %s", scheduleerrors.ErrEventNotFound, id)
	}
	e.Published = true
	e.ExternalRef = externalRef
	e.PublishedRunID = runID
	return nil
}

type fakeVenues map[string]*model.Venue

func (f fakeVenues) FindByID(ctx context.Context, id string) (*model.Venue, error) {
	v, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", venueerrors.ErrVenueNotFound, id)
	}
	return v, nil
}

type fakeUsers map[string]*model.User

func (f fakeUsers) FindUsersByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	out := map[string]*model.User{}
	for _, id := range ids {
		if u, ok := f[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type fakeClassTypes map[string]*model.ClassType

func (f fakeClassTypes) FindByID(ctx context.Context, id string) (*model.ClassType, error) {
	ct, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", coacherrors.ErrClassTypeNotFound, id)
	}
	return ct, nil
}

type fakeAvailability struct {
	mu      sync.Mutex
	checked []string
}

func (f *fakeAvailability) MarkCheckedIn(ctx context.Context, userID, venueID string, start, end time.Time, eventID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, eventID)
	return 1, nil
}

// fakeClient serves a fixed booking list and records mutations.
type fakeClient struct {
	mu        sync.Mutex
	bookings  []mbo.ClassSchedule
	listErr   error
	createErr error
	created   []*mbo.ClassScheduleRequest
	ended     []int64
	cancelled []int64
	nextID    int64
}

func (c *fakeClient) ListClassDescriptions(ctx context.Context, siteID, locationID int) (*mbo.Result[[]mbo.ClassDescription], error) {
	return &mbo.Result[[]mbo.ClassDescription]{Success: true, Data: []mbo.ClassDescription{
		{ID: 10, Name: "Hot Yoga", Active: true},
	}}, nil
}

func (c *fakeClient) ListStaff(ctx context.Context, siteID, locationID, page int) (*mbo.Result[mbo.StaffPage], error) {
	return &mbo.Result[mbo.StaffPage]{Success: true, Data: mbo.StaffPage{
		Staff:      []mbo.Staff{{ID: 77, FirstName: "Ana", LastName: "Lee"}},
		Pagination: mbo.Pagination{TotalResults: 1},
	}}, nil
}

func (c *fakeClient) ListBookings(ctx context.Context, siteID int, q mbo.ScheduleQuery) (*mbo.Result[[]mbo.ClassSchedule], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	return &mbo.Result[[]mbo.ClassSchedule]{Success: true, Data: append([]mbo.ClassSchedule{}, c.bookings...)}, nil
}

func (c *fakeClient) CreateBooking(ctx context.Context, siteID int, req *mbo.ClassScheduleRequest) (*mbo.Result[mbo.ClassSchedule], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return nil, c.createErr
	}
	c.created = append(c.created, req)
	c.nextID++
	return &mbo.Result[mbo.ClassSchedule]{Success: true, Data: mbo.ClassSchedule{ID: 1000 + c.nextID}}, nil
}

func (c *fakeClient) UpdateBooking(ctx context.Context, siteID int, upd *mbo.ClassScheduleUpdate) (*mbo.Result[mbo.ClassSchedule], error) {
	return &mbo.Result[mbo.ClassSchedule]{Success: true, Data: mbo.ClassSchedule{ID: upd.ClassID}}, nil
}

func (c *fakeClient) EndBooking(ctx context.Context, siteID int, classID int64, endDate time.Time) (*mbo.Result[mbo.ClassSchedule], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended = append(c.ended, classID)
	return &mbo.Result[mbo.ClassSchedule]{Success: true}, nil
}

func (c *fakeClient) CancelBooking(ctx context.Context, siteID int, classID int64) (*mbo.Result[mbo.ClassSchedule], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = append(c.cancelled, classID)
	return &mbo.Result[mbo.ClassSchedule]{Success: true}, nil
}

var march4 = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func clockTime(h int) mbo.Timestamp {
	return mbo.Timestamp{Time: time.Date(1900, 1, 1, h, 0, 0, 0, time.UTC)}
}

// mondayBooking is a weekly Monday booking on the test venue's resource.
func mondayBooking(id int64, startDate time.Time, startH, endH int) mbo.ClassSchedule {
	return mbo.ClassSchedule{
		ID:               id,
		ClassDescription: mbo.ClassDescription{ID: 10},
		Location:         mbo.Location{ID: 1},
		Resource:         &mbo.Resource{ID: 3},
		StartDate:        mbo.Timestamp{Time: startDate},
		EndDate:          mbo.Timestamp{Time: time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)},
		StartTime:        clockTime(startH),
		EndTime:          clockTime(endH),
		DayMonday:        true,
	}
}

func session(id string, start time.Time, status model.EventStatus) *model.Event {
	e := &model.Event{
		ID:          id,
		ContainerID: "c1",
		HostUserID:  "u1",
		VenueID:     "v1",
		ClassTypeID: "ct1",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Status:      status,
	}
	e.Decompose(time.UTC)
	return e
}

type fixture struct {
	cfg          *config.Config
	runs         *fakeRuns
	logs         *fakeLogs
	locks        *fakeLocks
	queue        *fakeQueue
	containers   *fakeContainers
	events       *fakeEvents
	availability *fakeAvailability
	client       *fakeClient
	stores       Stores
	orchestrator *orchestrator
	worker       publish.TaskHandler
}

func newFixture(events ...*model.Event) *fixture {
	cfg := &config.Config{
		Log:               logger.Discard(),
		PublishLockTTL:    6 * time.Hour,
		PublishStaleAfter: 30 * time.Minute,
	}

	f := &fixture{
		cfg:   cfg,
		runs:  newFakeRuns(),
		logs:  &fakeLogs{},
		locks: newFakeLocks(),
		queue: &fakeQueue{},
		containers: &fakeContainers{containers: map[string]*model.EventContainer{
			"c1": {ID: "c1", VenueID: "v1", Year: 2024, Month: 3, Status: model.ContainerStatusEditing},
		}},
		events:       &fakeEvents{events: map[string]*model.Event{}},
		availability: &fakeAvailability{},
		client:       &fakeClient{},
	}
	for _, e := range events {
		f.events.events[e.ID] = e
	}

	stores := Stores{
		Containers: f.containers,
		Events:     f.events,
		Venues: fakeVenues{"v1": {
			ID: "v1", Name: "Uptown", SiteID: 5, LocationID: 1, ResourceID: 3,
			Capacity: 20, WebCapacity: 15,
		}},
		Users:        fakeUsers{"u1": {ID: "u1", FirstName: "Ana", LastName: "Lee", Email: "ana@example.com"}},
		ClassTypes:   fakeClassTypes{"ct1": {ID: "ct1", Name: "Hot Yoga"}},
		Availability: f.availability,
		Runs:         f.runs,
		Logs:         f.logs,
		Locks:        f.locks,
	}

	f.stores = stores
	var n atomic.Int64
	f.orchestrator = NewOrchestrator(stores, f.queue, cfg).(*orchestrator)
	f.orchestrator.newID = func() string {
		return fmt.Sprintf("run-%d", n.Add(1))
	}
	f.useDirectory(nil)
	return f
}

// useDirectory rebuilds the worker with dir as the staff directory fallback.
func (f *fixture) useDirectory(dir translator.StaffDirectory) {
	f.worker = NewWorker(f.stores, f.client, translator.NewTranslator(f.client, dir, f.cfg), f.queue, f.cfg)
}

type directoryFunc func(ctx context.Context, email string, siteID int) (*model.StaffDirectoryEntry, error)

func (fn directoryFunc) FindByEmail(ctx context.Context, email string, siteID int) (*model.StaffDirectoryEntry, error) {
	return fn(ctx, email, siteID)
}
