package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"roster/internal/coaches/repository"
	venueerrors "roster/internal/venues/errors"
	"roster/pkg/config"
	apperrors "roster/pkg/errors"
	"roster/pkg/model"

	"golang.org/x/sync/errgroup"
)

// AssignmentCounter counts the events already hosted by each coach in a period.
type AssignmentCounter interface {
	CountAssigned(ctx context.Context, hostIDs []string, period model.Period) (map[string]int, error)
}

type VenueFinder interface {
	FindByID(ctx context.Context, id string) (*model.Venue, error)
}

type RankingService interface {
	// Rank returns the eligible coaches for a session, best first. An empty result is not an error.
	Rank(ctx context.Context, req *model.RankRequest) ([]*model.RankedCoach, error)
	// RankAll returns every qualified coach annotated with availability and quota figures,
	// eligible coaches first in the same order Rank uses.
	RankAll(ctx context.Context, req *model.RankRequest) ([]*model.RankedCoach, error)
}

type rankingService struct {
	coaches      repository.CoachRepository
	availability repository.AvailabilityRepository
	assignments  AssignmentCounter
	venues       VenueFinder
	cfg          *config.Config
}

func NewRankingService(
	coaches repository.CoachRepository,
	availability repository.AvailabilityRepository,
	assignments AssignmentCounter,
	venues VenueFinder,
	cfg *config.Config,
) RankingService {
	return &rankingService{
		coaches:      coaches,
		availability: availability,
		assignments:  assignments,
		venues:       venues,
		cfg:          cfg,
	}
}

func (s *rankingService) Rank(ctx context.Context, req *model.RankRequest) ([]*model.RankedCoach, error) {
	ranked, err := s.rank(ctx, req)
	if err != nil {
		return nil, err
	}

	eligible := make([]*model.RankedCoach, 0, len(ranked))
	for _, rc := range ranked {
		if rc.Eligible {
			eligible = append(eligible, rc)
		}
	}
	return eligible, nil
}

func (s *rankingService) RankAll(ctx context.Context, req *model.RankRequest) ([]*model.RankedCoach, error) {
	return s.rank(ctx, req)
}

func (s *rankingService) rank(ctx context.Context, req *model.RankRequest) ([]*model.RankedCoach, error) {
	coaches, err := s.coaches.FindQualified(ctx, req.VenueID, req.ClassTypeID)
	if err != nil {
		s.cfg.Log.Error("Failed to load qualified coaches",
			"venue_id", req.VenueID,
			"class_type_id", req.ClassTypeID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to load qualified coaches", err)
	}
	if len(coaches) == 0 {
		return []*model.RankedCoach{}, nil
	}

	period := req.Period
	if period.IsZero() {
		period = model.PeriodOf(req.StartTime.In(s.location(ctx, req.VenueID)))
	}

	ids := make([]string, 0, len(coaches))
	for _, c := range coaches {
		ids = append(ids, c.ID())
	}

	windowStart, windowEnd := RoundWindow(req.StartTime, req.EndTime, s.cfg.SlotUnit)

	var (
		slots  []*model.AvailabilitySlot
		counts map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		slots, err = s.availability.FindSlots(gctx, ids, req.VenueID, windowStart, windowEnd)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.assignments.CountAssigned(gctx, ids, period)
		return err
	})
	if err := g.Wait(); err != nil {
		s.cfg.Log.Error("Failed to load availability or assignments",
			"venue_id", req.VenueID,
			"coaches", len(ids),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to load coach availability", err)
	}

	slotsByCoach := make(map[string][]*model.AvailabilitySlot, len(ids))
	for _, slot := range slots {
		slotsByCoach[slot.UserID] = append(slotsByCoach[slot.UserID], slot)
	}

	ranked := make([]*model.RankedCoach, 0, len(coaches))
	for _, c := range coaches {
		rc := Annotate(c, counts[c.ID()])
		rc.Available = CoversWindow(slotsByCoach[c.ID()], req.VenueID, windowStart, windowEnd, s.cfg.SlotUnit)
		rc.Eligible = rc.Available && rc.RemainingMax > 0
		ranked = append(ranked, rc)
	}

	SortRanked(ranked)

	s.cfg.Log.Debug("Ranked coaches",
		"venue_id", req.VenueID,
		"class_type_id", req.ClassTypeID,
		"qualified", len(ranked),
		"period", period,
	)
	return ranked, nil
}

func (s *rankingService) location(ctx context.Context, venueID string) *time.Location {
	if s.venues == nil {
		return time.UTC
	}
	venue, err := s.venues.FindByID(ctx, venueID)
	if err != nil {
		if !errors.Is(err, venueerrors.ErrVenueNotFound) && !errors.Is(err, venueerrors.ErrInvalidID) {
			s.cfg.Log.Warn("Failed to load venue time zone, using UTC", "venue_id", venueID, "error", err)
		}
		return time.UTC
	}
	return venue.Location()
}

// RoundWindow widens [start, end) outward to slot boundaries.
func RoundWindow(start, end time.Time, unit time.Duration) (time.Time, time.Time) {
	if unit <= 0 {
		return start, end
	}
	roundedStart := start.Truncate(unit)
	roundedEnd := end.Truncate(unit)
	if roundedEnd.Before(end) {
		roundedEnd = roundedEnd.Add(unit)
	}
	return roundedStart, roundedEnd
}

// CoversWindow reports whether every slot step of [start, end) is covered by a usable,
// unconsumed slot at the venue.
func CoversWindow(slots []*model.AvailabilitySlot, venueID string, start, end time.Time, unit time.Duration) bool {
	if unit <= 0 || !end.After(start) {
		return false
	}
	for t := start; t.Before(end); t = t.Add(unit) {
		covered := false
		for _, slot := range slots {
			if slot.Usable && !slot.CheckedIn && slot.AtVenue(venueID) && slot.Covers(t) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// Annotate computes the quota figures and tier of a coach with assigned events so far.
func Annotate(c *model.Coach, assigned int) *model.RankedCoach {
	p := c.Profile
	rc := &model.RankedCoach{
		Coach:          *c,
		Assigned:       assigned,
		RemainingQuota: p.Quota - assigned,
		RemainingMin:   p.QuotaMin - assigned,
		RemainingMax:   p.QuotaMax - assigned,
	}

	switch {
	case rc.RemainingQuota > 0:
		rc.Tier = model.TierUnderQuota
		rc.Ratio = ratio(rc.RemainingQuota, p.Quota)
	case rc.RemainingMin > 0:
		rc.Tier = model.TierUnderMin
		rc.Ratio = ratio(rc.RemainingMin, p.QuotaMin)
	default:
		rc.Tier = model.TierUnderMax
		rc.Ratio = ratio(rc.RemainingMax, p.QuotaMax)
	}
	return rc
}

func ratio(remaining, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(remaining) / float64(total)
}

// SortRanked orders eligible before ineligible, then by tier, then by ratio descending.
// Equal coaches keep their store order.
func SortRanked(ranked []*model.RankedCoach) {
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Eligible != b.Eligible {
			return a.Eligible
		}
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		return a.Ratio > b.Ratio
	})
}
