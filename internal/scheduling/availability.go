package scheduling

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/talkbase/scheduling-api/internal/model"
)

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// ProviderAvailability carries one provider's open intervals for a date.
type ProviderAvailability struct {
	ProviderID uuid.UUID
	Intervals  []Interval
}

// ResolveDay computes each provider's open intervals for a date. Windows
// are the providers' recurring entries for the date's weekday; exceptions
// are the overrides matching the date. A provider covered by an all-day
// exception (own or schedule-wide) is excluded entirely; partial exceptions
// are subtracted from the windows, which may split a window in two.
// Providers are returned in ascending id order so downstream assignment is
// deterministic.
func ResolveDay(providers []*model.Provider, windows []*model.AvailabilityWindow, exceptions []*model.Exception) ([]ProviderAvailability, error) {
	byProvider := make(map[uuid.UUID][]Interval, len(providers))
	for _, w := range windows {
		start, err := TimeToMinutes(w.StartTime)
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", w.ID, err)
		}
		end, err := TimeToMinutes(w.EndTime)
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", w.ID, err)
		}
		if start >= end {
			continue
		}
		byProvider[w.ProviderID] = append(byProvider[w.ProviderID], Interval{Start: start, End: end})
	}

	result := make([]ProviderAvailability, 0, len(providers))
	for _, p := range providers {
		intervals := byProvider[p.ID]
		if len(intervals) == 0 {
			continue
		}

		excluded := false
		for _, ex := range exceptions {
			if !appliesTo(ex, p.ID) {
				continue
			}
			if ex.AllDay {
				excluded = true
				break
			}
			cut, err := exceptionInterval(ex)
			if err != nil {
				return nil, err
			}
			intervals = subtract(intervals, cut)
		}
		if excluded || len(intervals) == 0 {
			continue
		}

		sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })
		result = append(result, ProviderAvailability{ProviderID: p.ID, Intervals: intervals})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ProviderID.String() < result[j].ProviderID.String()
	})
	return result, nil
}

func appliesTo(ex *model.Exception, providerID uuid.UUID) bool {
	return ex.ProviderID == nil || *ex.ProviderID == providerID
}

func exceptionInterval(ex *model.Exception) (Interval, error) {
	// A partial exception without both bounds blocks nothing.
	if ex.StartTime == nil || ex.EndTime == nil {
		return Interval{}, nil
	}
	start, err := TimeToMinutes(*ex.StartTime)
	if err != nil {
		return Interval{}, fmt.Errorf("exception %s: %w", ex.ID, err)
	}
	end, err := TimeToMinutes(*ex.EndTime)
	if err != nil {
		return Interval{}, fmt.Errorf("exception %s: %w", ex.ID, err)
	}
	return Interval{Start: start, End: end}, nil
}

// subtract removes cut from every interval, splitting where the cut lands
// in the middle.
func subtract(intervals []Interval, cut Interval) []Interval {
	if cut.Start >= cut.End {
		return intervals
	}

	out := make([]Interval, 0, len(intervals)+1)
	for _, iv := range intervals {
		if cut.End <= iv.Start || cut.Start >= iv.End {
			out = append(out, iv)
			continue
		}
		if cut.Start > iv.Start {
			out = append(out, Interval{Start: iv.Start, End: cut.Start})
		}
		if cut.End < iv.End {
			out = append(out, Interval{Start: cut.End, End: iv.End})
		}
	}
	return out
}
