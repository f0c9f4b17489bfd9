package daterange

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyRange    = errors.New("daterange: pickup and dropoff are required")
	ErrInvertedRange = errors.New("daterange: dropoff must be after pickup")
)

// DateRange is a half-open rental interval [Pickup, Dropoff).
type DateRange struct {
	Pickup  time.Time
	Dropoff time.Time
}

// New validates the ordering invariant and normalizes to UTC.
func New(pickup, dropoff time.Time) (DateRange, error) {
	if pickup.IsZero() || dropoff.IsZero() {
		return DateRange{}, ErrEmptyRange
	}
	if !pickup.Before(dropoff) {
		return DateRange{}, ErrInvertedRange
	}
	return DateRange{Pickup: pickup.UTC(), Dropoff: dropoff.UTC()}, nil
}

// Days returns the number of chargeable days, rounding any partial day up.
func (r DateRange) Days() int {
	span := r.Dropoff.Sub(r.Pickup)
	days := int(span / (24 * time.Hour))
	if span%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// Overlaps reports whether two half-open intervals intersect. Covers the
// starts-inside, ends-inside and fully-contains cases in one comparison.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Pickup.Before(other.Dropoff) && other.Pickup.Before(r.Dropoff)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Pickup.Format(time.RFC3339), r.Dropoff.Format(time.RFC3339))
}
