package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

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

	"golang.org/x/sync/errgroup"
)

// FnPublishSession names the booking log row that records a session's full result.
const FnPublishSession = "PublishSession"

type worker struct {
	stores     Stores
	client     mbo.Client
	translator translator.Translator
	queue      publish.Queue
	cfg        *config.Config
}

// NewWorker returns the handler for publish tasks. Removal runs before any session task
// of the run is queued; session tasks are independent of each other.
func NewWorker(stores Stores, client mbo.Client, tr translator.Translator, queue publish.Queue, cfg *config.Config) publish.TaskHandler {
	return &worker{
		stores:     stores,
		client:     client,
		translator: tr,
		queue:      queue,
		cfg:        cfg,
	}
}

func (w *worker) HandleTask(ctx context.Context, task publish.Task) error {
	switch task.Type {
	case publish.TaskRemove:
		return w.remove(ctx, task)
	case publish.TaskSession:
		return w.publishSession(ctx, task)
	}
	return fmt.Errorf("unknown task type %q", task.Type)
}

// loadRun returns nil without an error when the task should be dropped.
func (w *worker) loadRun(ctx context.Context, task publish.Task, log *logger.Logger) (*model.PublishRun, error) {
	run, err := w.stores.Runs.FindByID(ctx, task.RunID)
	if err != nil {
		if errors.Is(err, publisherrors.ErrRunNotFound) {
			log.Warn("Dropping task of unknown publish run")
			return nil, nil
		}
		return nil, err
	}
	if run.Status.IsTerminal() {
		log.Debug("Skipping task of finished publish run", "status", run.Status)
		return nil, nil
	}
	return run, nil
}

func (w *worker) remove(ctx context.Context, task publish.Task) error {
	log := w.cfg.Log.With("run_id", task.RunID, "container_id", task.ContainerID)

	run, err := w.loadRun(ctx, task, log)
	if err != nil || run == nil {
		return err
	}

	switch run.Status {
	case model.PublishStatusPending:
		started, err := w.stores.Runs.StartRemoval(ctx, run.ID)
		if err != nil {
			return w.abort(ctx, run, err)
		}
		run = started
	case model.PublishStatusRemoving:
		log.Info("Resuming interrupted removal step")
	case model.PublishStatusRemoved:
		return w.fanOut(ctx, run)
	default:
		log.Debug("Skipping removal task", "status", run.Status)
		return nil
	}

	found, removed, err := w.retireOldBookings(ctx, run)
	if err != nil {
		return w.abort(ctx, run, err)
	}

	finished, err := w.stores.Runs.FinishRemoval(ctx, run.ID, found, removed)
	if err != nil {
		return w.abort(ctx, run, err)
	}
	log.Info("Removal step finished", "found", found, "removed", removed)

	return w.fanOut(ctx, finished)
}

// retireOldBookings ends or cancels every booking of the container's venue and month,
// except the ones referenced by locked sessions.
func (w *worker) retireOldBookings(ctx context.Context, run *model.PublishRun) (int, int, error) {
	container, err := w.stores.Containers.FindByID(ctx, run.ContainerID)
	if err != nil {
		return 0, 0, err
	}
	venue, err := w.stores.Venues.FindByID(ctx, container.VenueID)
	if err != nil {
		return 0, 0, err
	}

	from, to := model.MonthRange(container.Year, container.Month, venue.Location())
	res, err := w.client.ListBookings(ctx, venue.SiteID, mbo.ScheduleQuery{
		LocationIDs: []int{venue.LocationID},
		StartDate:   from,
		EndDate:     to.AddDate(0, 0, -1),
	})
	if err != nil {
		return 0, 0, err
	}
	if !res.Success {
		return 0, 0, fmt.Errorf("failed to list existing bookings: %w", res.Err())
	}

	locked, err := w.stores.Events.FindLocked(ctx, run.ContainerID)
	if err != nil {
		return 0, 0, err
	}
	keep := make(map[string]struct{}, len(locked))
	for _, e := range locked {
		if e.ExternalRef != "" {
			keep[e.ExternalRef] = struct{}{}
		}
	}

	var (
		logs    []*model.BookingLog
		found   int
		removed int
		callErr error
	)
	for i := range res.Data {
		b := &res.Data[i]
		if !translator.SameResource(b, venue.ResourceID, venue.LocationID) {
			continue
		}
		if _, ok := keep[strconv.FormatInt(b.ID, 10)]; ok {
			continue
		}
		found++

		call, err := translator.Retire(ctx, w.client, venue.SiteID, b, from)
		outcome := retireOutcome(call)
		logs = append(logs, callLog(run, venue, call, outcome))
		publish.ObserveRemoval(outcome)

		if err != nil {
			callErr = fmt.Errorf("failed to retire booking %d: %w", b.ID, err)
			break
		}
		if call.Success {
			removed++
		}
	}

	if err := w.stores.Logs.InsertMany(ctx, logs); err != nil {
		return found, removed, err
	}
	return found, removed, callErr
}

func retireOutcome(call translator.Call) model.BookingOutcome {
	switch {
	case !call.Success:
		return model.OutcomeFailed
	case call.Function == mbo.FnEndBooking:
		return model.OutcomeEnded
	}
	return model.OutcomeCancelled
}

// fanOut moves the run to PUBLISHING and queues one task per session.
func (w *worker) fanOut(ctx context.Context, run *model.PublishRun) error {
	events, err := w.stores.Events.FindPublishable(ctx, run.ContainerID)
	if err != nil {
		return w.abort(ctx, run, err)
	}

	publishing, err := w.stores.Runs.StartPublishing(ctx, run.ID, len(events))
	if err != nil {
		return w.abort(ctx, run, err)
	}
	if len(events) == 0 {
		return w.complete(ctx, publishing)
	}

	tasks := make([]publish.Task, 0, len(events))
	for _, e := range events {
		tasks = append(tasks, publish.Task{
			Type:        publish.TaskSession,
			RunID:       run.ID,
			ContainerID: run.ContainerID,
			EventID:     e.ID,
		})
	}
	if err := w.queue.Enqueue(ctx, tasks...); err != nil {
		return w.abort(ctx, publishing, err)
	}

	w.cfg.Log.Info("Queued session tasks", "run_id", run.ID, "sessions", len(tasks))
	return nil
}

func (w *worker) publishSession(ctx context.Context, task publish.Task) error {
	log := w.cfg.Log.With("run_id", task.RunID, "event_id", task.EventID)

	run, err := w.loadRun(ctx, task, log)
	if err != nil || run == nil {
		return err
	}
	if run.HasProcessed(task.EventID) {
		log.Debug("Skipping duplicate session task")
		return nil
	}
	if run.Status != model.PublishStatusPublishing {
		log.Warn("Skipping session task of run that is not publishing", "status", run.Status)
		return nil
	}

	event, err := w.stores.Events.FindByID(ctx, task.EventID)
	if err != nil {
		if errors.Is(err, scheduleerrors.ErrEventNotFound) || errors.Is(err, scheduleerrors.ErrInvalidID) {
			return w.skipSession(ctx, run, task.EventID, model.OutcomeFailed, err.Error())
		}
		return w.abort(ctx, run, err)
	}
	// The session may have changed while its task waited in the queue.
	switch {
	case event.Deleted:
		return w.skipSession(ctx, run, event.ID, model.OutcomeSkipped, "Session was deleted after the run started")
	case event.IsLocked():
		return w.skipSession(ctx, run, event.ID, model.OutcomeSkipped, "Session was locked after the run started")
	}

	in, err := w.loadInput(ctx, event)
	if err != nil {
		return w.abort(ctx, run, err)
	}

	s, err := w.translator.Prepare(ctx, in)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		if !mbo.IsBookingSystemError(err) {
			return w.abort(ctx, run, err)
		}
		log.Warn("Session could not be prepared", "error", err)
	} else if s.Ready() {
		if err := w.translator.Publish(ctx, s); err != nil {
			return err
		}
	}

	entry := sessionLog(run, s)
	if err := w.stores.Logs.Insert(ctx, entry); err != nil {
		return w.abort(ctx, run, err)
	}
	publish.ObserveSession(entry.Outcome)

	if s.Succeeded() {
		if err := w.applyPublished(ctx, run, s, log); err != nil {
			return w.abort(ctx, run, err)
		}
	}

	log.Info("Session processed", "state", s.State, "outcome", entry.Outcome, "booking_id", s.BookingID)
	return w.record(ctx, run, task.EventID, s.Succeeded())
}

// skipSession counts a session that was not sent to the booking system as failed.
func (w *worker) skipSession(ctx context.Context, run *model.PublishRun, eventID string, outcome model.BookingOutcome, reason string) error {
	entry := &model.BookingLog{
		RunID:       run.ID,
		ContainerID: run.ContainerID,
		EventID:     eventID,
		Function:    FnPublishSession,
		Outcome:     outcome,
		Error:       reason,
	}
	if err := w.stores.Logs.Insert(ctx, entry); err != nil {
		return w.abort(ctx, run, err)
	}
	publish.ObserveSession(outcome)
	w.cfg.Log.Info("Session skipped", "run_id", run.ID, "event_id", eventID, "outcome", outcome, "reason", reason)
	return w.record(ctx, run, eventID, false)
}

// loadInput reads the session's venue, host and class type concurrently. Missing
// collaborators are left nil for the translator to block on.
func (w *worker) loadInput(ctx context.Context, event *model.Event) (translator.Input, error) {
	in := translator.Input{Event: event}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		venue, err := w.stores.Venues.FindByID(gctx, event.VenueID)
		if err != nil {
			if errors.Is(err, venueerrors.ErrVenueNotFound) || errors.Is(err, venueerrors.ErrInvalidID) {
				return nil
			}
			return err
		}
		in.Venue = venue
		return nil
	})
	if event.HostUserID != "" {
		g.Go(func() error {
			users, err := w.stores.Users.FindUsersByIDs(gctx, []string{event.HostUserID})
			if err != nil {
				return err
			}
			in.Host = users[event.HostUserID]
			return nil
		})
	}
	if event.ClassTypeID != "" {
		g.Go(func() error {
			classType, err := w.stores.ClassTypes.FindByID(gctx, event.ClassTypeID)
			if err != nil {
				if errors.Is(err, coacherrors.ErrClassTypeNotFound) || errors.Is(err, coacherrors.ErrInvalidID) {
					return nil
				}
				return err
			}
			in.ClassType = classType
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return translator.Input{}, err
	}
	return in, nil
}

// applyPublished checks the coach in for the session's time and marks the session published.
func (w *worker) applyPublished(ctx context.Context, run *model.PublishRun, s *translator.Session, log *logger.Logger) error {
	if s.Host != nil {
		marked, err := w.stores.Availability.MarkCheckedIn(ctx, s.Host.ID, s.Event.VenueID, s.Event.StartTime, s.Event.EndTime, s.Event.ID)
		if err != nil {
			return err
		}
		if marked == 0 {
			log.Warn("No availability slot to check in", "user_id", s.Host.ID)
		}
	}

	ref := s.Event.ExternalRef
	if s.BookingID != 0 {
		ref = strconv.FormatInt(s.BookingID, 10)
	}
	return w.stores.Events.MarkPublished(ctx, s.Event.ID, ref, run.ID)
}

func (w *worker) record(ctx context.Context, run *model.PublishRun, eventID string, success bool) error {
	updated, err := w.stores.Runs.RecordSession(ctx, run.ID, eventID, success)
	if err != nil {
		if errors.Is(err, publisherrors.ErrInvalidTransition) {
			w.cfg.Log.Debug("Session already recorded or run finished", "run_id", run.ID, "event_id", eventID)
			return nil
		}
		return w.abort(ctx, run, err)
	}
	if updated.Processed() >= updated.TotalSessions {
		return w.complete(ctx, updated)
	}
	return nil
}

func (w *worker) complete(ctx context.Context, run *model.PublishRun) error {
	done, err := w.stores.Runs.Complete(ctx, run.ID)
	if err != nil {
		if errors.Is(err, publisherrors.ErrInvalidTransition) {
			return nil
		}
		return w.abort(ctx, run, err)
	}

	w.releaseLock(ctx, done)
	if err := w.stores.Containers.SetStatus(ctx, done.ContainerID, model.ContainerStatusPublished); err != nil {
		w.cfg.Log.Warn("Failed to mark container published", "container_id", done.ContainerID, "error", err)
	}
	publish.ObserveRun(string(model.PublishStatusCompleted))

	w.cfg.Log.Info("Publish run completed",
		"run_id", done.ID,
		"container_id", done.ContainerID,
		"sessions", done.TotalSessions,
		"succeeded", done.Succeeded,
		"failed", done.Failed,
	)
	return nil
}

// abort marks the run FAILED after an unrecoverable error. Cancellation is returned so
// the task is redelivered instead.
func (w *worker) abort(ctx context.Context, run *model.PublishRun, cause error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(cause, publisherrors.ErrInvalidTransition) {
		w.cfg.Log.Debug("Publish run moved on concurrently", "run_id", run.ID, "error", cause)
		return nil
	}

	w.cfg.Log.Error("Publish run failed", "run_id", run.ID, "container_id", run.ContainerID, "error", cause)
	failed, err := w.stores.Runs.Fail(ctx, run.ID, cause.Error())
	if err != nil {
		if errors.Is(err, publisherrors.ErrInvalidTransition) {
			return nil
		}
		return fmt.Errorf("failed to mark publish run failed: %w (cause: %v)", err, cause)
	}

	w.releaseLock(ctx, failed)
	publish.ObserveRun(string(model.PublishStatusFailed))
	return nil
}

func (w *worker) releaseLock(ctx context.Context, run *model.PublishRun) {
	if err := w.stores.Locks.Release(ctx, run.ContainerID, run.ID); err != nil {
		w.cfg.Log.Warn("Failed to release publish lock", "run_id", run.ID, "error", err)
	}
}

func callLog(run *model.PublishRun, venue *model.Venue, call translator.Call, outcome model.BookingOutcome) *model.BookingLog {
	entry := &model.BookingLog{
		RunID:       run.ID,
		ContainerID: run.ContainerID,
		Function:    call.Function,
		Params:      call.Params,
		Response:    call.Response,
		Success:     call.Success,
		Outcome:     outcome,
		Error:       call.Error,
	}
	if venue != nil {
		entry.VenueID = venue.ID
		entry.SiteID = venue.SiteID
	}
	return entry
}

func sessionLog(run *model.PublishRun, s *translator.Session) *model.BookingLog {
	entry := &model.BookingLog{
		RunID:       run.ID,
		ContainerID: run.ContainerID,
		EventID:     s.Event.ID,
		Function:    FnPublishSession,
		Params:      s.Payload(),
		Response:    s.Report(),
		Success:     s.Succeeded(),
		Outcome:     s.Outcome(),
	}
	if !entry.Success {
		entry.Error = s.Reason
	}
	if s.Venue != nil {
		entry.VenueID = s.Venue.ID
		entry.SiteID = s.Venue.SiteID
	}
	return entry
}
