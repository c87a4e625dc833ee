package types

// TariffSlab is one tier of a progressive tariff. MaxUnits is nil for the
// final, unbounded slab.
type TariffSlab struct {
	MinUnits    float64  `json:"minUnits"`
	MaxUnits    *float64 `json:"maxUnits"`
	RatePerUnit float64  `json:"ratePerUnit"`
}

// StateTariff is a named progressive schedule: a fixed monthly charge plus an
// ordered list of contiguous slabs. Slabs must be ordered by ascending
// MinUnits and exactly the last slab must have MaxUnits == nil.
type StateTariff struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	State       string       `json:"state"`
	FixedCharge float64      `json:"fixedCharge"`
	Slabs       []TariffSlab `json:"slabs"`
}

// TariffInfo provides catalog metadata about a tariff for listings.
type TariffInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
	// Custom is true for a household-defined schedule rather than a
	// catalog entry.
	Custom bool `json:"custom,omitempty"`
}

// Info returns the listing metadata for the tariff.
func (t StateTariff) Info() TariffInfo {
	return TariffInfo{ID: t.ID, Name: t.Name, State: t.State}
}
