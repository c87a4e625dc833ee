package types

// ApplianceCategory groups appliances by the kind of load they present.
type ApplianceCategory string

const (
	CategoryLighting    ApplianceCategory = "lighting"
	CategoryCooling     ApplianceCategory = "cooling"
	CategoryHeating     ApplianceCategory = "heating"
	CategoryElectronics ApplianceCategory = "electronics"
	CategoryMotor       ApplianceCategory = "motor"
)

// RatingMode selects which fields of an Appliance are authoritative for
// energy calculations. Fields belonging to other modes are ignored even if
// present.
type RatingMode string

const (
	// RatingModeStandard uses the rated wattage directly.
	RatingModeStandard RatingMode = "standard"
	// RatingModeBEEAnnual uses the BEE label's annual kWh figure.
	RatingModeBEEAnnual RatingMode = "bee_annual"
	// RatingModeISEER derives power draw from cooling capacity and ISEER.
	RatingModeISEER RatingMode = "iseer"
	// RatingModeEER derives power draw from cooling capacity and EER.
	RatingModeEER RatingMode = "eer"
)

// Appliance is a single entry in a household's inventory.
type Appliance struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Category ApplianceCategory `json:"category"`

	// InputMode determines which of the rating fields below are used.
	InputMode RatingMode `json:"inputMode"`

	Watts        float64 `json:"watts"`
	HoursPerDay  float64 `json:"hoursPerDay"`
	DaysPerMonth float64 `json:"daysPerMonth"`
	Quantity     int     `json:"quantity"`

	// BEE label fields (bee_annual mode).
	AnnualKWH     float64 `json:"annualKWH,omitempty"`
	BEEStarRating int     `json:"beeStarRating,omitempty"`

	// Air conditioner fields (iseer/eer modes).
	CapacityTons float64 `json:"capacityTons,omitempty"`
	ISEER        float64 `json:"iseer,omitempty"`
	EER          float64 `json:"eer,omitempty"`
	Inverter     bool    `json:"inverter,omitempty"`
}

// Season scales appliance usage for season-sensitive categories.
type Season string

const (
	SeasonSummer  Season = "summer"
	SeasonWinter  Season = "winter"
	SeasonMonsoon Season = "monsoon"
)

// Seasons lists every season in a stable order.
var Seasons = []Season{SeasonSummer, SeasonWinter, SeasonMonsoon}

// SolarConfig describes a household's rooftop solar installation. When not
// installed it contributes zero generation regardless of capacity.
type SolarConfig struct {
	Installed  bool    `json:"isInstalled"`
	CapacityKW float64 `json:"capacityKW,omitempty"`
}

// SubsidyType identifies who funds the free-unit allowance, if anyone.
type SubsidyType string

const (
	SubsidyNone       SubsidyType = "none"
	SubsidyGovernment SubsidyType = "government"
	SubsidyCompany    SubsidyType = "company"
)

// SubsidyConfig describes the household's free-unit allowance. LimitUnits is
// ignored when Type is SubsidyNone.
type SubsidyConfig struct {
	Type       SubsidyType `json:"type"`
	LimitUnits float64     `json:"limitUnits,omitempty"`
}
