package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"roster/internal/issues/repository"
	scheduleerrors "roster/internal/schedule/errors"
	"roster/pkg/config"
	apperrors "roster/pkg/errors"
	"roster/pkg/model"
	"roster/pkg/sanitizer"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type ContainerFinder interface {
	FindByID(ctx context.Context, id string) (*model.EventContainer, error)
}

type EventFinder interface {
	FindEditable(ctx context.Context, containerID string, weekOfMonth int) ([]*model.Event, error)
	FindByHostsInRange(ctx context.Context, hostIDs []string, from, to time.Time) ([]*model.Event, error)
}

type CoachFinder interface {
	FindUsersByIDs(ctx context.Context, ids []string) (map[string]*model.User, error)
	FindProfilesByUserIDs(ctx context.Context, userIDs []string) (map[string]*model.CoachProfile, error)
}

type SlotFinder interface {
	FindSlots(ctx context.Context, userIDs []string, venueID string, start, end time.Time) ([]*model.AvailabilitySlot, error)
}

type VenueFinder interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Venue, error)
}

type ConflictService interface {
	// CheckWeek re-runs detection for the editable events of a container week and returns
	// every unrepaired issue of that week.
	CheckWeek(ctx context.Context, containerID string, weekOfMonth int) ([]*model.Issue, error)
}

type conflictService struct {
	containers   ContainerFinder
	events       EventFinder
	coaches      CoachFinder
	availability SlotFinder
	venues       VenueFinder
	issues       repository.IssueRepository
	cfg          *config.Config
	now          func() time.Time
}

func NewConflictService(
	containers ContainerFinder,
	events EventFinder,
	coaches CoachFinder,
	availability SlotFinder,
	venues VenueFinder,
	issues repository.IssueRepository,
	cfg *config.Config,
) ConflictService {
	return &conflictService{
		containers:   containers,
		events:       events,
		coaches:      coaches,
		availability: availability,
		venues:       venues,
		issues:       issues,
		cfg:          cfg,
		now:          time.Now,
	}
}

// weekData is everything the per-event checks read, loaded up front.
type weekData struct {
	users    map[string]*model.User
	profiles map[string]*model.CoachProfile
	slots    map[string][]*model.AvailabilitySlot
	others   map[string][]*model.Event
	venues   map[string]*model.Venue
}

func (s *conflictService) CheckWeek(ctx context.Context, containerID string, weekOfMonth int) ([]*model.Issue, error) {
	if _, err := s.containers.FindByID(ctx, containerID); err != nil {
		switch {
		case errors.Is(err, scheduleerrors.ErrContainerNotFound):
			return nil, apperrors.NotFoundWithID("Container", containerID)
		case errors.Is(err, scheduleerrors.ErrInvalidID):
			return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid container ID: %s", containerID))
		}
		s.cfg.Log.Error("Failed to load container", "container_id", containerID, "error", err)
		return nil, apperrors.Internal("Failed to load container", err)
	}

	events, err := s.events.FindEditable(ctx, containerID, weekOfMonth)
	if err != nil {
		s.cfg.Log.Error("Failed to load events",
			"container_id", containerID,
			"week_of_month", weekOfMonth,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to load events", err)
	}

	if len(events) > 0 {
		data, err := s.prefetch(ctx, events)
		if err != nil {
			s.cfg.Log.Error("Failed to prefetch coach data",
				"container_id", containerID,
				"week_of_month", weekOfMonth,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to load coach data", err)
		}

		eventIDs := make([]string, 0, len(events))
		var found []*model.Issue
		for _, event := range events {
			eventIDs = append(eventIDs, event.ID)
			found = append(found, s.checkEvent(event, data, weekOfMonth)...)
		}

		if err := s.issues.ReplaceForEvents(ctx, eventIDs, found); err != nil {
			s.cfg.Log.Error("Failed to store issues",
				"container_id", containerID,
				"week_of_month", weekOfMonth,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to store issues", err)
		}

		s.cfg.Log.Info("Checked week",
			"container_id", containerID,
			"week_of_month", weekOfMonth,
			"events", len(events),
			"issues", len(found),
		)
	}

	issues, err := s.issues.FindUnrepaired(ctx, containerID, weekOfMonth)
	if err != nil {
		s.cfg.Log.Error("Failed to load issues", "container_id", containerID, "error", err)
		return nil, apperrors.Internal("Failed to load issues", err)
	}
	return issues, nil
}

func (s *conflictService) prefetch(ctx context.Context, events []*model.Event) (*weekData, error) {
	hostIDs := make([]string, 0, len(events))
	venueSet := map[string]struct{}{}
	from, to := events[0].StartTime, events[0].EndTime
	for _, e := range events {
		if e.HostUserID != "" {
			hostIDs = append(hostIDs, e.HostUserID)
		}
		venueSet[e.VenueID] = struct{}{}
		if e.StartTime.Before(from) {
			from = e.StartTime
		}
		if e.EndTime.After(to) {
			to = e.EndTime
		}
	}
	hostIDs = sanitizer.UniqueIDs(hostIDs)

	data := &weekData{
		users:    map[string]*model.User{},
		profiles: map[string]*model.CoachProfile{},
		slots:    map[string][]*model.AvailabilitySlot{},
		others:   map[string][]*model.Event{},
		venues:   map[string]*model.Venue{},
	}
	if len(hostIDs) == 0 {
		return data, nil
	}

	venueIDs := make([]string, 0, len(venueSet))
	for id := range venueSet {
		venueIDs = append(venueIDs, id)
	}
	slotsByVenue := make([][]*model.AvailabilitySlot, len(venueIDs))

	var others []*model.Event
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.users, err = s.coaches.FindUsersByIDs(gctx, hostIDs)
		return err
	})
	g.Go(func() error {
		var err error
		data.profiles, err = s.coaches.FindProfilesByUserIDs(gctx, hostIDs)
		return err
	})
	g.Go(func() error {
		var err error
		others, err = s.events.FindByHostsInRange(gctx, hostIDs, from.Add(-s.cfg.ConflictBuffer), to.Add(s.cfg.ConflictBuffer))
		return err
	})
	for i, venueID := range venueIDs {
		g.Go(func() error {
			var err error
			slotsByVenue[i], err = s.availability.FindSlots(gctx, hostIDs, venueID, from, to)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, venueSlots := range slotsByVenue {
		for _, slot := range venueSlots {
			data.slots[slot.UserID] = append(data.slots[slot.UserID], slot)
		}
	}

	otherVenueIDs := make([]string, 0)
	for _, o := range others {
		data.others[o.HostUserID] = append(data.others[o.HostUserID], o)
		otherVenueIDs = append(otherVenueIDs, o.VenueID)
	}

	venues, err := s.venues.FindByIDs(ctx, sanitizer.UniqueIDs(otherVenueIDs))
	if err != nil {
		return nil, err
	}
	data.venues = venues
	return data, nil
}

func (s *conflictService) checkEvent(event *model.Event, data *weekData, weekOfMonth int) []*model.Issue {
	var found []*model.Issue
	add := func(t model.IssueType, description string) {
		found = append(found, &model.Issue{
			ID:          uuid.New().String(),
			Type:        t,
			Description: description,
			EventID:     event.ID,
			ContainerID: event.ContainerID,
			WeekOfMonth: weekOfMonth,
			Status:      model.IssueStatusUnrepaired,
			CreatedAt:   s.now().UTC().Truncate(time.Millisecond),
		})
	}

	if event.HostUserID == "" {
		add(model.IssueNoCoach, "Session has no coach assigned")
		return found
	}

	user, ok := data.users[event.HostUserID]
	if !ok {
		add(model.IssueNonexistentCoach, fmt.Sprintf("Coach %s does not exist", event.HostUserID))
		return found
	}

	if user.HasTag(s.cfg.ExemptCoachTag) {
		return found
	}

	if profile, ok := data.profiles[user.ID]; !ok {
		add(model.IssueUnconfiguredCoach, fmt.Sprintf("Coach %s has no coach profile", user.Name()))
	} else {
		if !profile.TeachesClass(event.ClassTypeID) {
			add(model.IssueUnavailableClass, fmt.Sprintf("Coach %s is not qualified for class %s", user.Name(), classLabel(event)))
		}
		if !profile.CoachesAt(event.VenueID) {
			add(model.IssueUnavailableVenue, fmt.Sprintf("Coach %s does not coach at this venue", user.Name()))
		}
	}

	if !hasSlotAt(data.slots[user.ID], event.VenueID, event.StartTime) {
		add(model.IssueUnavailableTime, fmt.Sprintf("Coach %s is not available at %s", user.Name(), event.StartTime.UTC().Format(time.RFC3339)))
	}

	if names := s.conflictingVenues(event, data); len(names) > 0 {
		add(model.IssueConflictingTime, fmt.Sprintf("Coach %s has sessions too close to this one at %s", user.Name(), strings.Join(names, ", ")))
	}

	return found
}

func hasSlotAt(slots []*model.AvailabilitySlot, venueID string, t time.Time) bool {
	for _, slot := range slots {
		if slot.Usable && slot.AtVenue(venueID) && slot.Covers(t) {
			return true
		}
	}
	return false
}

// conflictingVenues lists the names of other venues where the same coach hosts a session
// within the buffer of event.
func (s *conflictService) conflictingVenues(event *model.Event, data *weekData) []string {
	buffer := s.cfg.ConflictBuffer
	names := map[string]struct{}{}
	for _, other := range data.others[event.HostUserID] {
		if other.ID == event.ID || other.Deleted || other.VenueID == event.VenueID {
			continue
		}
		if Overlaps(event.StartTime, event.EndTime, other.StartTime, other.EndTime, buffer) {
			names[venueName(data.venues, other.VenueID)] = struct{}{}
		}
	}

	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Overlaps applies the buffered interval test: other.start < end+buffer and other.end > start-buffer.
func Overlaps(start, end, otherStart, otherEnd time.Time, buffer time.Duration) bool {
	return otherStart.Before(end.Add(buffer)) && otherEnd.After(start.Add(-buffer))
}

func venueName(venues map[string]*model.Venue, id string) string {
	if v, ok := venues[id]; ok && v.Name != "" {
		return v.Name
	}
	return id
}

func classLabel(e *model.Event) string {
	if e.ClassTypeName != "" {
		return e.ClassTypeName
	}
	return e.ClassTypeID
}
