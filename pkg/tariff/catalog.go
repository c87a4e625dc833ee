package tariff

import (
	"fmt"
	"sort"
	"sync"

	"github.com/urjabill/urjabill/pkg/engine"
	"github.com/urjabill/urjabill/pkg/types"
)

// Configured sets up the tariff catalog with the built-in schedules.
func Configured() *Catalog {
	c := NewCatalog()
	for _, t := range builtinTariffs() {
		if err := c.Register(t); err != nil {
			// built-ins are static data so a failure here is a programming error
			panic(fmt.Sprintf("builtin tariff %s: %v", t.ID, err))
		}
	}
	return c
}

// Catalog holds the available tariff schedules.
type Catalog struct {
	mu      sync.Mutex
	tariffs map[string]types.StateTariff
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		tariffs: make(map[string]types.StateTariff),
	}
}

// Register adds a tariff to the catalog after structural validation.
func (c *Catalog) Register(t types.StateTariff) error {
	if t.ID == "" {
		return fmt.Errorf("tariff must have an ID")
	}
	if err := engine.ValidateTariff(t); err != nil {
		return fmt.Errorf("tariff %s: %w", t.ID, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tariffs[t.ID] = t
	return nil
}

// Get returns the tariff for the given ID.
func (c *Catalog) Get(id string) (types.StateTariff, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tariffs[id]; ok {
		return t, nil
	}
	return types.StateTariff{}, fmt.Errorf("unknown tariff: %s", id)
}

// List returns metadata for every registered tariff, ordered by ID.
func (c *Catalog) List() []types.TariffInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	infos := make([]types.TariffInfo, 0, len(c.tariffs))
	for _, t := range c.tariffs {
		infos = append(infos, t.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// ForSettings resolves the tariff a household's settings select. A custom
// tariff takes precedence over the catalog but still has to validate.
func (c *Catalog) ForSettings(settings types.Settings) (types.StateTariff, error) {
	if settings.CustomTariff != nil {
		t := *settings.CustomTariff
		if err := engine.ValidateTariff(t); err != nil {
			return types.StateTariff{}, err
		}
		return t, nil
	}
	if settings.TariffID == "" {
		return types.StateTariff{}, fmt.Errorf("no tariff selected")
	}
	return c.Get(settings.TariffID)
}
