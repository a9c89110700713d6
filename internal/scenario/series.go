package scenario

import (
	"fmt"
	"sort"
	"time"
)

// HoursPerDay is the fixed length of every series the engine accepts.
const HoursPerDay = 24

// Series pairs hourly timestamps with values. The engine treats a Series as an
// immutable snapshot; operations return copies and never mutate the receiver.
type Series struct {
	Times  []time.Time
	Values []float64
}

// NewSeries builds a Series from parallel slices.
func NewSeries(times []time.Time, values []float64) (Series, error) {
	if len(times) != len(values) {
		return Series{}, fmt.Errorf("series: %d timestamps vs %d values", len(times), len(values))
	}
	return Series{Times: times, Values: values}, nil
}

// Len returns the number of hourly entries.
func (s Series) Len() int {
	return len(s.Values)
}

// Sum returns the total of all values.
func (s Series) Sum() float64 {
	total := 0.0
	for _, v := range s.Values {
		total += v
	}
	return total
}

// Clone returns a deep copy.
func (s Series) Clone() Series {
	times := make([]time.Time, len(s.Times))
	values := make([]float64, len(s.Values))
	copy(times, s.Times)
	copy(values, s.Values)
	return Series{Times: times, Values: values}
}

// Sorted returns a copy ordered by ascending timestamp. The sort is stable so
// repeated calls with identical input produce identical output.
func (s Series) Sorted() Series {
	out := s.Clone()
	idx := make([]int, len(out.Times))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return s.Times[idx[i]].Before(s.Times[idx[j]]) })
	for i, from := range idx {
		out.Times[i] = s.Times[from]
		out.Values[i] = s.Values[from]
	}
	return out
}

// AlignTo re-indexes the series onto the given timestamps. Every requested
// timestamp must be present in the series.
func (s Series) AlignTo(times []time.Time) (Series, error) {
	byTime := make(map[int64]float64, len(s.Times))
	for i, ts := range s.Times {
		byTime[ts.UnixNano()] = s.Values[i]
	}

	out := Series{
		Times:  make([]time.Time, len(times)),
		Values: make([]float64, len(times)),
	}
	for i, ts := range times {
		v, ok := byTime[ts.UnixNano()]
		if !ok {
			return Series{}, fmt.Errorf("series: no value for %s", ts.UTC().Format(time.RFC3339))
		}
		out.Times[i] = ts
		out.Values[i] = v
	}
	return out, nil
}
