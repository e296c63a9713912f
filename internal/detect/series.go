package detect

import (
	"time"

	"metric-anomaly-alerts/internal/storage"
)

// Point is one (date, value) observation with the value already
// converted for statistics.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is a metric's ordered daily history over the lookback window.
type Series struct {
	points []Point
	byDate map[string]float64
}

// NormalizeDate truncates a timestamp to its UTC civil date.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// BuildSeries converts persisted metric points into a Series. Input is
// expected ascending by date with no duplicate dates.
func BuildSeries(points []storage.MetricPoint) *Series {
	s := &Series{
		points: make([]Point, 0, len(points)),
		byDate: make(map[string]float64, len(points)),
	}
	for _, p := range points {
		value := p.Value.InexactFloat64()
		date := NormalizeDate(p.Date)
		s.points = append(s.points, Point{Date: date, Value: value})
		s.byDate[dateKey(date)] = value
	}
	return s
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.points)
}

// Values returns the ordered value sequence.
func (s *Series) Values() []float64 {
	values := make([]float64, len(s.points))
	for i, p := range s.points {
		values[i] = p.Value
	}
	return values
}

// ValueOn returns the observation for one date, if present.
func (s *Series) ValueOn(date time.Time) (float64, bool) {
	value, ok := s.byDate[dateKey(date)]
	return value, ok
}

// Baseline returns the trailing-week values in
// [target-7d, target-1d], excluding the target day itself.
func (s *Series) Baseline(target time.Time) []float64 {
	target = NormalizeDate(target)
	from := target.AddDate(0, 0, -7)
	to := target.AddDate(0, 0, -1)

	values := make([]float64, 0, 7)
	for _, p := range s.points {
		if !p.Date.Before(from) && !p.Date.After(to) {
			values = append(values, p.Value)
		}
	}
	return values
}

// SameWeekday returns up to max historical values sharing the target's
// weekday, strictly before the target date, oldest first.
func (s *Series) SameWeekday(target time.Time, max int) []float64 {
	target = NormalizeDate(target)

	values := make([]float64, 0, max)
	for _, p := range s.points {
		if p.Date.Before(target) && p.Date.Weekday() == target.Weekday() {
			values = append(values, p.Value)
		}
	}
	if len(values) > max {
		values = values[len(values)-max:]
	}
	return values
}
