package types

import "time"

// ApplianceUsageEntry is one appliance's contribution to a daily log.
type ApplianceUsageEntry struct {
	ApplianceID string     `json:"applianceID"`
	Name        string     `json:"name"`
	RatingMode  RatingMode `json:"ratingMode"`
	// RatingValue is the figure the PowerKW derivation used: watts for
	// standard mode, annual kWh for bee_annual, the ratio for iseer/eer.
	RatingValue float64 `json:"ratingValue"`
	PowerKW     float64 `json:"powerKW"`
	Hours       float64 `json:"hours"`
	Units       float64 `json:"units"`
	Cost        float64 `json:"cost"`
}

// UserDailyUsage is one calendar day's usage log. IsEstimated marks logs the
// engine synthesized from the inventory rather than user-entered readings.
type UserDailyUsage struct {
	Date        time.Time             `json:"date"`
	Entries     []ApplianceUsageEntry `json:"entries"`
	TotalUnits  float64               `json:"totalUnits"`
	TotalCost   float64               `json:"totalCost"`
	IsEstimated bool                  `json:"isEstimated"`
}

// DayKind distinguishes calendar days for rendering: a user-logged day, a
// past day with no log (estimated), or a day still in the future relative to
// the reference date.
type DayKind string

const (
	DayLogged    DayKind = "logged"
	DayEstimated DayKind = "estimated"
	DayFuture    DayKind = "future"
)

// DayStatus classifies a logged day's cumulative consumption against the
// subsidy limit.
type DayStatus string

const (
	DayStatusNone     DayStatus = ""
	DayStatusSafe     DayStatus = "safe"
	DayStatusWarning  DayStatus = "warning"
	DayStatusCritical DayStatus = "critical"
)

// DaySummary is one calendar day in a monthly summary.
type DaySummary struct {
	Date            time.Time `json:"date"`
	Kind            DayKind   `json:"kind"`
	Status          DayStatus `json:"status,omitempty"`
	Units           float64   `json:"units"`
	CumulativeUnits float64   `json:"cumulativeUnits"`
}

// MonthlyUsageSummary aggregates a month of daily logs into month-to-date and
// projected figures.
type MonthlyUsageSummary struct {
	Year        int        `json:"year"`
	Month       time.Month `json:"month"`
	DaysInMonth int        `json:"daysInMonth"`
	DaysLogged  int        `json:"daysLogged"`

	TotalUnits     float64 `json:"totalUnits"`
	AvgUnitsPerDay float64 `json:"avgUnitsPerDay"`
	ProjectedUnits float64 `json:"projectedUnits"`

	MTDBillCost        float64 `json:"mtdBillCost"`
	ProjectedBillTotal float64 `json:"projectedBillTotal"`
	EstRemainderCost   float64 `json:"estRemainderCost"`

	SlabCrossed bool `json:"slabCrossed"`

	// ConfidenceScore is nil until enough days are logged; it approaches but
	// never reaches 100.
	ConfidenceScore *float64 `json:"confidenceScore"`
	IsStabilized    bool     `json:"isStabilized"`

	Days []DaySummary `json:"days"`
}
