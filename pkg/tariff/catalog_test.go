package tariff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urjabill/urjabill/pkg/engine"
	"github.com/urjabill/urjabill/pkg/types"
)

func TestConfigured(t *testing.T) {
	c := Configured()

	t.Run("built-ins are registered", func(t *testing.T) {
		for _, id := range []string{"msedcl_residential", "brpl_residential", "tneb_residential", "bescom_residential", "flat_demo"} {
			tariff, err := c.Get(id)
			require.NoError(t, err, id)
			assert.Equal(t, id, tariff.ID)
		}
	})

	t.Run("built-ins validate structurally", func(t *testing.T) {
		for _, tariff := range builtinTariffs() {
			assert.NoError(t, engine.ValidateTariff(tariff), tariff.ID)
		}
	})

	t.Run("list is sorted by ID", func(t *testing.T) {
		infos := c.List()
		require.Len(t, infos, 5)
		for i := 1; i < len(infos); i++ {
			assert.Less(t, infos[i-1].ID, infos[i].ID)
		}
	})
}

func TestCatalog(t *testing.T) {
	valid := types.StateTariff{
		ID:   "test",
		Name: "Test",
		Slabs: []types.TariffSlab{
			{MinUnits: 0, RatePerUnit: 5},
		},
	}

	t.Run("register and get", func(t *testing.T) {
		c := NewCatalog()
		require.NoError(t, c.Register(valid))
		got, err := c.Get("test")
		require.NoError(t, err)
		assert.Equal(t, valid, got)
	})

	t.Run("register rejects missing ID", func(t *testing.T) {
		c := NewCatalog()
		bad := valid
		bad.ID = ""
		assert.Error(t, c.Register(bad))
	})

	t.Run("register rejects invalid slabs", func(t *testing.T) {
		c := NewCatalog()
		bad := valid
		bad.Slabs = nil
		err := c.Register(bad)
		var cerr *engine.ConfigurationError
		require.ErrorAs(t, err, &cerr)
	})

	t.Run("get unknown fails", func(t *testing.T) {
		c := NewCatalog()
		_, err := c.Get("nope")
		assert.Error(t, err)
	})
}

func TestForSettings(t *testing.T) {
	c := Configured()

	t.Run("selects by tariff ID", func(t *testing.T) {
		got, err := c.ForSettings(types.Settings{TariffID: "flat_demo"})
		require.NoError(t, err)
		assert.Equal(t, "flat_demo", got.ID)
	})

	t.Run("custom tariff wins over catalog", func(t *testing.T) {
		custom := &types.StateTariff{
			Name:        "My Society",
			FixedCharge: 10,
			Slabs: []types.TariffSlab{
				{MinUnits: 0, RatePerUnit: 9},
			},
		}
		got, err := c.ForSettings(types.Settings{TariffID: "flat_demo", CustomTariff: custom})
		require.NoError(t, err)
		assert.Equal(t, "My Society", got.Name)
	})

	t.Run("invalid custom tariff fails", func(t *testing.T) {
		custom := &types.StateTariff{Name: "Broken"}
		_, err := c.ForSettings(types.Settings{CustomTariff: custom})
		var cerr *engine.ConfigurationError
		require.ErrorAs(t, err, &cerr)
	})

	t.Run("nothing selected fails", func(t *testing.T) {
		_, err := c.ForSettings(types.Settings{})
		assert.Error(t, err)
	})
}
