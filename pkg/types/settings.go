package types

import (
	"fmt"
)

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 3

// Settings represents the per-household configuration stored in the database.
// These are dynamic settings that can be changed without redeploying.
type Settings struct {
	// TariffID selects a schedule from the tariff catalog. CustomTariff, when
	// set, takes precedence over TariffID.
	TariffID     string       `json:"tariffID"`
	CustomTariff *StateTariff `json:"customTariff,omitempty"`

	Solar   SolarConfig   `json:"solar"`
	Subsidy SubsidyConfig `json:"subsidy"`

	// Season is the currently active season used for calculations.
	Season Season `json:"season"`

	// CrossingWithoutSubsidy controls whether the monthly summary reports the
	// subsidy limit as crossed when no subsidy is configured. Off by default:
	// with no subsidy there is no limit to cross.
	CrossingWithoutSubsidy bool `json:"crossingWithoutSubsidy"`

	// InsightLanguage is the BCP 47 tag passed to the insight service.
	InsightLanguage string `json:"insightLanguage"`
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were made, and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	// Loop through versions to apply migrations sequentially
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial
			if s.Season == "" {
				s.Season = SeasonSummer
				migrated = true
			}
			if s.Subsidy.Type == "" {
				s.Subsidy.Type = SubsidyNone
				migrated = true
			}
		case 2:
			// version 2: add insight language
			if s.InsightLanguage == "" {
				s.InsightLanguage = "en"
				migrated = true
			}
		case 3:
			// version 3: catalog IDs gained a _residential suffix
			switch s.TariffID {
			case "msedcl", "tneb", "bescom", "brpl":
				s.TariffID += "_residential"
				migrated = true
			}
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}
