package translator

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	coacherrors "roster/internal/coaches/errors"
	"roster/internal/mbo"
	"roster/pkg/config"
	"roster/pkg/model"
	"roster/pkg/sanitizer"
)

const (
	FlowAdd    = "add"
	FlowUpdate = "update"

	maxStaffPages = 50
)

// StaffDirectory is the secondary e-mail lookup used when no remote staff name matches.
type StaffDirectory interface {
	FindByEmail(ctx context.Context, email string, siteID int) (*model.StaffDirectoryEntry, error)
}

type Translator interface {
	// Prepare decides what the booking system needs for a new session: create, leave the
	// session's own booking in place, or block on overlapping bookings.
	Prepare(ctx context.Context, in Input) (*Session, error)
	// PrepareUpdate reconciles a session with its overlapping bookings. keepBookingID selects
	// the booking to keep; zero keeps the only overlap and blocks when there are several.
	PrepareUpdate(ctx context.Context, in Input, keepBookingID int64) (*Session, error)
	// Publish applies the prepared action. Booking system failures leave the session Failed
	// and return nil; only cancellation is returned as an error.
	Publish(ctx context.Context, s *Session) error
}

type translator struct {
	client    mbo.Client
	directory StaffDirectory
	engine    *Engine
	cfg       *config.Config
}

func NewTranslator(client mbo.Client, directory StaffDirectory, cfg *config.Config) Translator {
	t := &translator{
		client:    client,
		directory: directory,
		cfg:       cfg,
	}

	resolve := []*Step{
		NewStep("validate_input", StateInit, t.validateInput),
		NewStep("resolve_class", StateResolvingClass, t.resolveClass),
		NewStep("resolve_staff", StateResolvingStaff, t.resolveStaff),
		NewStep("build_request", StateCheckingDuplicates, t.buildRequest),
		NewStep("find_overlaps", StateCheckingDuplicates, t.findOverlaps),
	}

	t.engine = NewEngine(
		NewFlow(FlowAdd, append(resolve[:len(resolve):len(resolve)], NewStep("check_duplicates", StateCheckingDuplicates, t.checkDuplicates))...),
		NewFlow(FlowUpdate, append(resolve[:len(resolve):len(resolve)], NewStep("arbitrate", StateCheckingDuplicates, t.arbitrate))...),
	)
	return t
}

func (t *translator) Prepare(ctx context.Context, in Input) (*Session, error) {
	return t.run(ctx, FlowAdd, NewSession(in))
}

func (t *translator) PrepareUpdate(ctx context.Context, in Input, keepBookingID int64) (*Session, error) {
	s := NewSession(in)
	s.KeepBookingID = keepBookingID
	return t.run(ctx, FlowUpdate, s)
}

func (t *translator) run(ctx context.Context, flow string, s *Session) (*Session, error) {
	if err := t.engine.Run(ctx, flow, s); err != nil {
		s.fail(err.Error())
		return s, err
	}
	if s.State != StateBlocked {
		s.transition(StateReady)
	}

	t.cfg.Log.Debug("Prepared session",
		"event_id", eventID(s),
		"flow", flow,
		"state", s.State,
		"action", s.Action,
		"reason", s.Reason,
	)
	return s, nil
}

func (t *translator) validateInput(ctx context.Context, s *Session) error {
	if s.Event == nil {
		return errors.New("session has no event")
	}
	if s.Venue == nil {
		return blocked("Venue %s is not configured", s.Event.VenueID)
	}
	if s.Venue.SiteID == 0 || s.Venue.LocationID == 0 {
		return blocked("Venue %s has no booking system site or location", s.Venue.Name)
	}
	if s.ClassType == nil && s.Event.ClassTypeName == "" {
		return blocked("Class type %s is unknown", s.Event.ClassTypeID)
	}
	if !s.Event.EndTime.After(s.Event.StartTime) {
		return blocked("Session ends before it starts")
	}
	return nil
}

func (t *translator) resolveClass(ctx context.Context, s *Session) error {
	res, err := t.client.ListClassDescriptions(ctx, s.Venue.SiteID, s.Venue.LocationID)
	if err != nil {
		return err
	}
	if !res.Success {
		return blocked("Class descriptions unavailable: %s", res.Err())
	}

	name := s.Event.ClassTypeName
	var aliases []string
	if s.ClassType != nil {
		name = s.ClassType.Name
		aliases = append(aliases, s.ClassType.Aliases...)
		if s.Event.ClassTypeName != "" {
			aliases = append(aliases, s.Event.ClassTypeName)
		}
	}

	desc, found := MatchClassDescription(res.Data, name, aliases, s.Venue.ProgramID)
	if !found {
		return blocked("No active class description matches %q", name)
	}
	s.ClassDescription = desc
	return nil
}

func (t *translator) resolveStaff(ctx context.Context, s *Session) error {
	if s.Host == nil {
		return blocked("Session has no coach assigned")
	}

	for page := 0; page < maxStaffPages; page++ {
		res, err := t.client.ListStaff(ctx, s.Venue.SiteID, s.Venue.LocationID, page)
		if err != nil {
			return err
		}
		if !res.Success {
			t.cfg.Log.Warn("Staff list rejected, falling back to directory",
				"event_id", eventID(s),
				"site_id", s.Venue.SiteID,
				"error", res.Err(),
			)
			break
		}
		if staff, found := MatchStaff(res.Data.Staff, s.Host); found {
			s.StaffID = staff.ID
			return nil
		}
		if !res.Data.HasMore() {
			break
		}
	}

	email := sanitizer.NormalizeEmail(s.Host.Email)
	if email != "" && t.directory != nil {
		entry, err := t.directory.FindByEmail(ctx, email, s.Venue.SiteID)
		switch {
		case err == nil:
			s.StaffID = entry.StaffID
			return nil
		case !errors.Is(err, coacherrors.ErrStaffEntryNotFound):
			return err
		}
	}

	return blocked("No booking system staff matches coach %s", s.Host.Name())
}

func (t *translator) buildRequest(ctx context.Context, s *Session) error {
	loc := s.Venue.Location()
	start := s.Event.StartTime.In(loc)
	end := s.Event.EndTime.In(loc)
	date := start.Format(mbo.DateLayout)

	s.Request = &mbo.ClassScheduleRequest{
		ClassDescriptionID: s.ClassDescription.ID,
		LocationID:         s.Venue.LocationID,
		ResourceID:         s.Venue.ResourceID,
		StaffID:            s.StaffID,
		StartDate:          date,
		EndDate:            date,
		StartTime:          start.Format(mbo.TimeLayout),
		EndTime:            end.Format(mbo.TimeLayout),
		Weekdays:           mbo.WeekdaysOf(start.Weekday()),
		MaxCapacity:        s.Venue.Capacity,
		WebCapacity:        s.Venue.WebCapacity,
		PricingOptionIDs:   s.Venue.PricingOptionIDs,
		ProgramID:          s.Venue.ProgramID,
	}

	startSec, endSec, err := s.Request.DaySeconds()
	if err != nil {
		return err
	}
	if endSec <= startSec {
		return blocked("Session crosses midnight in %s", loc)
	}
	return nil
}

func (t *translator) findOverlaps(ctx context.Context, s *Session) error {
	day := s.Event.StartTime.In(s.Venue.Location())
	res, err := t.client.ListBookings(ctx, s.Venue.SiteID, mbo.ScheduleQuery{
		LocationIDs: []int{s.Venue.LocationID},
		StartDate:   day,
		EndDate:     day,
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return blocked("Existing bookings could not be checked: %s", res.Err())
	}

	startSec, endSec, err := s.Request.DaySeconds()
	if err != nil {
		return err
	}
	s.Overlaps = Overlapping(res.Data, s.Venue.ResourceID, s.Venue.LocationID, day, startSec, endSec)
	return nil
}

func (t *translator) checkDuplicates(ctx context.Context, s *Session) error {
	if len(s.Overlaps) == 0 {
		s.Action = ActionCreate
		return nil
	}

	if own := externalRef(s.Event); own != 0 && len(s.Overlaps) == 1 && s.Overlaps[0].ID == own {
		s.Action = ActionNone
		s.BookingID = own
		return nil
	}

	return &BlockedError{
		Reason:    fmt.Sprintf("%d existing booking(s) overlap this session", len(s.Overlaps)),
		Conflicts: s.Overlaps,
	}
}

func (t *translator) arbitrate(ctx context.Context, s *Session) error {
	if len(s.Overlaps) == 0 {
		s.Action = ActionCreate
		return nil
	}

	keepID := s.KeepBookingID
	if keepID == 0 {
		if len(s.Overlaps) > 1 {
			return &BlockedError{
				Reason:    fmt.Sprintf("%d overlapping bookings, choose the one to keep", len(s.Overlaps)),
				Conflicts: s.Overlaps,
			}
		}
		keepID = s.Overlaps[0].ID
	}

	for i := range s.Overlaps {
		if s.Overlaps[i].ID == keepID {
			keep := s.Overlaps[i]
			s.Keep = &keep
		} else {
			s.Drop = append(s.Drop, s.Overlaps[i])
		}
	}
	if s.Keep == nil {
		return &BlockedError{
			Reason:    fmt.Sprintf("Booking %d does not overlap this session", keepID),
			Conflicts: s.Overlaps,
		}
	}

	s.Update = mbo.Diff(s.Keep, s.Request)
	s.BookingID = s.Keep.ID
	if s.Update.Empty() && len(s.Drop) == 0 {
		s.Action = ActionNone
		return nil
	}
	s.Action = ActionUpdate
	return nil
}

func (t *translator) Publish(ctx context.Context, s *Session) error {
	if !s.Ready() {
		return fmt.Errorf("session for event %s is %s, not %s", eventID(s), s.State, StateReady)
	}
	s.transition(StatePublishing)

	var err error
	switch s.Action {
	case ActionNone:
	case ActionCreate:
		err = t.create(ctx, s)
	case ActionUpdate:
		err = t.update(ctx, s)
	default:
		s.fail(fmt.Sprintf("unsupported action %s", s.Action))
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		s.fail(ctxErr.Error())
		return ctxErr
	}
	if err != nil {
		s.fail(err.Error())
		return nil
	}
	s.transition(StateSuccess)

	t.cfg.Log.Info("Published session",
		"event_id", eventID(s),
		"action", s.Action,
		"booking_id", s.BookingID,
	)
	return nil
}

func (t *translator) create(ctx context.Context, s *Session) error {
	res, err := t.client.CreateBooking(ctx, s.Venue.SiteID, s.Request)
	call := finishCall(Call{Function: mbo.FnCreateBooking, Params: asDocument(s.Request)}, res, err)
	s.record(call)
	if !call.Success {
		return errors.New(call.Error)
	}
	s.BookingID = res.Data.ID
	return nil
}

func (t *translator) update(ctx context.Context, s *Session) error {
	if !s.Update.Empty() {
		res, err := t.client.UpdateBooking(ctx, s.Venue.SiteID, s.Update)
		call := finishCall(Call{Function: mbo.FnUpdateBooking, Params: asDocument(s.Update)}, res, err)
		s.record(call)
		if !call.Success {
			return errors.New(call.Error)
		}
	}

	day := s.Event.StartTime.In(s.Venue.Location())
	for i := range s.Drop {
		call, _ := Retire(ctx, t.client, s.Venue.SiteID, &s.Drop[i], day)
		s.record(call)
		if !call.Success {
			return fmt.Errorf("failed to retire duplicate booking %d: %s", s.Drop[i].ID, call.Error)
		}
	}
	return nil
}

func externalRef(e *model.Event) int64 {
	if e == nil || e.ExternalRef == "" {
		return 0
	}
	id, err := strconv.ParseInt(e.ExternalRef, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func eventID(s *Session) string {
	if s.Event == nil {
		return ""
	}
	return s.Event.ID
}
