package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/urjabill/urjabill/pkg/types"
)

func TestHandleCalculate(t *testing.T) {
	fridge := types.Appliance{
		ID:           "fridge-1",
		Name:         "Fridge",
		Category:     types.CategoryElectronics,
		InputMode:    types.RatingModeStandard,
		Watts:        100,
		HoursPerDay:  24,
		DaysPerMonth: 30,
		Quantity:     1,
	}

	t.Run("Success", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)

		mockDB.On("GetSettings", mock.Anything, "home1").Return(testSettings(), types.CurrentSettingsVersion, nil).Once()
		mockDB.On("ListAppliances", mock.Anything, "home1").Return([]types.Appliance{fridge}, nil).Once()

		req := withHousehold(httptest.NewRequest("GET", "/api/calculate?householdID=home1", nil), "home1")
		w := httptest.NewRecorder()

		srv.handleCalculate(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var result types.CalculationResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

		// 100W x 24h x 30d = 72 units; 72 x 3 + 50 fixed = 266
		assert.InDelta(t, 72, result.TotalUnits, 0.001)
		assert.InDelta(t, 266, result.Bill.Total, 0.001)
		assert.Equal(t, types.GradeA, result.EfficiencyScore)
		mockDB.AssertExpectations(t)
	})

	t.Run("SeasonOverride", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)

		ac := types.Appliance{
			ID:           "ac-1",
			Name:         "AC",
			Category:     types.CategoryCooling,
			InputMode:    types.RatingModeStandard,
			Watts:        1000,
			HoursPerDay:  5,
			DaysPerMonth: 30,
			Quantity:     1,
		}

		mockDB.On("GetSettings", mock.Anything, "home1").Return(testSettings(), types.CurrentSettingsVersion, nil).Once()
		mockDB.On("ListAppliances", mock.Anything, "home1").Return([]types.Appliance{ac}, nil).Once()

		req := withHousehold(httptest.NewRequest("GET", "/api/calculate?householdID=home1&season=winter", nil), "home1")
		w := httptest.NewRecorder()

		srv.handleCalculate(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var result types.CalculationResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

		// 150 base units scaled by the 0.90 winter multiplier
		assert.Equal(t, types.SeasonWinter, result.Season)
		assert.InDelta(t, 135, result.TotalUnits, 0.001)
	})

	t.Run("UnknownSeason", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)

		mockDB.On("GetSettings", mock.Anything, "home1").Return(testSettings(), types.CurrentSettingsVersion, nil).Once()

		req := withHousehold(httptest.NewRequest("GET", "/api/calculate?householdID=home1&season=spring", nil), "home1")
		w := httptest.NewRecorder()

		srv.handleCalculate(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InvalidApplianceRecord", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)

		broken := fridge
		broken.Watts = -1

		mockDB.On("GetSettings", mock.Anything, "home1").Return(testSettings(), types.CurrentSettingsVersion, nil).Once()
		mockDB.On("ListAppliances", mock.Anything, "home1").Return([]types.Appliance{broken}, nil).Once()

		req := withHousehold(httptest.NewRequest("GET", "/api/calculate?householdID=home1", nil), "home1")
		w := httptest.NewRecorder()

		srv.handleCalculate(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("UnknownTariff", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)

		settings := testSettings()
		settings.TariffID = "missing"
		mockDB.On("GetSettings", mock.Anything, "home1").Return(settings, types.CurrentSettingsVersion, nil).Once()

		req := withHousehold(httptest.NewRequest("GET", "/api/calculate?householdID=home1", nil), "home1")
		w := httptest.NewRecorder()

		srv.handleCalculate(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
