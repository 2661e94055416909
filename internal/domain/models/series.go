package models

// SeriesQuery describes a history fetch. Limit 0 means the whole period.
type SeriesQuery struct {
	Ticker       string
	Period       string
	LocalDataDir string
	Limit        int
}

// PriceSeries is a chronological close series from one concrete source.
type PriceSeries struct {
	Ticker string
	Source DataSource
	Points []PricePoint
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Points) }

// Tail returns a copy of the last n points (all of them if n <= 0 or n > Len).
func (s PriceSeries) Tail(n int) []PricePoint {
	if n <= 0 || n > len(s.Points) {
		n = len(s.Points)
	}
	out := make([]PricePoint, n)
	copy(out, s.Points[len(s.Points)-n:])
	return out
}

// LastClose returns the most recent observation.
func (s PriceSeries) LastClose() (float64, bool) {
	if len(s.Points) == 0 {
		return 0, false
	}
	return s.Points[len(s.Points)-1].Value, true
}
