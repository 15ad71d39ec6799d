package scheduling

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/talkbase/scheduling-api/internal/model"
)

// Slot is a bookable opening. Start and End are HH:MM strings; Label is the
// time_slot value recorded on appointments booked into it (equal to Start
// for standard-mode services, the "{start}-{end}" bucket label for
// arrival-mode services).
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"-"`
}

// BucketSpan is the width of an arrival-mode bucket: the service duration
// rounded up to the next whole granularity multiple, never narrower than
// one granularity step. The round-up rule is deliberate; overruns consume
// whole buckets rather than fractional ones.
func BucketSpan(duration, granularity int) int {
	span := (duration + granularity - 1) / granularity * granularity
	if span < granularity {
		span = granularity
	}
	return span
}

// GenerateSlots enumerates the bookable slots for a service given resolved
// provider availability and the day's non-canceled appointments. The result
// is sorted by start time and de-duplicated across providers: a slot is
// open if any provider can take it.
func GenerateSlots(avail []ProviderAvailability, appointments []*model.Appointment, svc *model.Service, granularity int) ([]Slot, error) {
	if granularity <= 0 {
		return nil, fmt.Errorf("granularity must be positive, got %d", granularity)
	}
	if svc.ArrivalMode {
		return generateArrivalSlots(avail, appointments, svc, granularity)
	}
	return generateStandardSlots(avail, appointments, svc, granularity)
}

func generateStandardSlots(avail []ProviderAvailability, appointments []*model.Appointment, svc *model.Service, granularity int) ([]Slot, error) {
	busy, err := busyIntervals(appointments)
	if err != nil {
		return nil, err
	}

	dur := svc.DurationMinutes
	open := make(map[int]struct{})
	for _, pa := range avail {
		taken := busy[pa.ProviderID]
		for _, iv := range pa.Intervals {
			for start := iv.Start; start+dur <= iv.End; start += granularity {
				if overlapsAny(taken, start, start+dur) {
					continue
				}
				open[start] = struct{}{}
			}
		}
	}

	starts := sortedKeys(open)
	slots := make([]Slot, 0, len(starts))
	for _, start := range starts {
		clock := MinutesToTime(start)
		slots = append(slots, Slot{Start: clock, End: MinutesToTime(start + dur), Label: clock})
	}
	return slots, nil
}

func generateArrivalSlots(avail []ProviderAvailability, appointments []*model.Appointment, svc *model.Service, granularity int) ([]Slot, error) {
	counts := make(map[string]int)
	for _, a := range appointments {
		if a.Canceled() || a.ServiceID != svc.ID {
			continue
		}
		counts[a.TimeSlot]++
	}

	span := BucketSpan(svc.DurationMinutes, granularity)
	buckets := make(map[int]Slot)
	for _, pa := range avail {
		for _, iv := range pa.Intervals {
			// Buckets are anchored to the floor-aligned window start so
			// labels stay stable regardless of where the window opens.
			first := iv.Start / granularity * granularity
			for bs := first; bs < iv.End; bs += granularity {
				if _, seen := buckets[bs]; seen {
					continue
				}
				be := bs + span
				if be > iv.End {
					be = iv.End
				}
				if be <= bs {
					continue
				}
				label := MinutesToTime(bs) + "-" + MinutesToTime(be)
				if counts[label] >= svc.Capacity {
					continue
				}
				buckets[bs] = Slot{Start: MinutesToTime(bs), End: MinutesToTime(be), Label: label}
			}
		}
	}

	starts := sortedKeys(buckets)
	slots := make([]Slot, 0, len(starts))
	for _, bs := range starts {
		slots = append(slots, buckets[bs])
	}
	return slots, nil
}

// FindSlot locates the slot matching a requested clock time: the exact
// start for standard-mode services, the containing bucket for arrival-mode
// ones.
func FindSlot(slots []Slot, svc *model.Service, granularity int, clock string) (Slot, bool, error) {
	t, err := TimeToMinutes(clock)
	if err != nil {
		return Slot{}, false, err
	}

	want := MinutesToTime(t)
	if svc.ArrivalMode {
		want = MinutesToTime(t / granularity * granularity)
	}
	for _, s := range slots {
		if s.Start == want {
			return s, true, nil
		}
	}
	return Slot{}, false, nil
}

// SlotStarts projects slots to their caller-facing start times.
func SlotStarts(slots []Slot) []string {
	starts := make([]string, len(slots))
	for i, s := range slots {
		starts[i] = s.Start
	}
	return starts
}

// AssignProvider picks the provider for a standard-mode booking over
// [start, end): the first, in resolver order, whose open interval contains
// the whole range and who has no conflicting appointment. Resolver order is
// ascending provider id, which keeps assignment deterministic when several
// providers qualify.
func AssignProvider(avail []ProviderAvailability, appointments []*model.Appointment, start, end int) (uuid.UUID, bool, error) {
	busy, err := busyIntervals(appointments)
	if err != nil {
		return uuid.Nil, false, err
	}

	for _, pa := range avail {
		if !containsRange(pa.Intervals, start, end) {
			continue
		}
		if overlapsAny(busy[pa.ProviderID], start, end) {
			continue
		}
		return pa.ProviderID, true, nil
	}
	return uuid.Nil, false, nil
}

// AssignBucketProvider picks the provider for an arrival-mode booking: the
// first whose window generates the bucket starting at bucketStart. Capacity
// is shared across the bucket rather than per provider, so no conflict
// check is needed; the assignment only anchors the appointment to a
// provider-scoped record.
func AssignBucketProvider(avail []ProviderAvailability, bucketStart, granularity int) (uuid.UUID, bool) {
	for _, pa := range avail {
		for _, iv := range pa.Intervals {
			first := iv.Start / granularity * granularity
			if bucketStart >= first && bucketStart < iv.End {
				return pa.ProviderID, true
			}
		}
	}
	return uuid.Nil, false
}

// busyIntervals indexes non-canceled appointments as minute intervals per
// provider.
func busyIntervals(appointments []*model.Appointment) (map[uuid.UUID][]Interval, error) {
	busy := make(map[uuid.UUID][]Interval)
	for _, a := range appointments {
		if a.Canceled() {
			continue
		}
		start, err := TimeToMinutes(a.StartTime)
		if err != nil {
			return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
		}
		end, err := TimeToMinutes(a.EndTime)
		if err != nil {
			return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
		}
		busy[a.ProviderID] = append(busy[a.ProviderID], Interval{Start: start, End: end})
	}
	return busy, nil
}

func overlapsAny(taken []Interval, start, end int) bool {
	for _, iv := range taken {
		if iv.Start < end && iv.End > start {
			return true
		}
	}
	return false
}

func containsRange(intervals []Interval, start, end int) bool {
	for _, iv := range intervals {
		if iv.Start <= start && end <= iv.End {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
