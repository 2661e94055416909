package models

// DataSource selects where historical prices come from.
type DataSource string

const (
	// SourceAuto lets the provider router choose.
	SourceAuto     DataSource = "auto"
	SourceLocal    DataSource = "local"
	SourceYFinance DataSource = "yfinance"
)

// DataSources lists every accepted value, in wire order.
var DataSources = []DataSource{SourceAuto, SourceLocal, SourceYFinance}

// Valid reports whether s is one of the known sources.
func (s DataSource) Valid() bool {
	switch s {
	case SourceAuto, SourceLocal, SourceYFinance:
		return true
	default:
		return false
	}
}

func (s DataSource) String() string { return string(s) }
