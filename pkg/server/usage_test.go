package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/urjabill/urjabill/pkg/types"
)

func testInventory() []types.Appliance {
	return []types.Appliance{
		{
			ID:           "fan-1",
			Name:         "Fan",
			Category:     types.CategoryCooling,
			InputMode:    types.RatingModeStandard,
			Watts:        75,
			HoursPerDay:  8,
			DaysPerMonth: 30,
			Quantity:     1,
		},
		{
			ID:           "fridge-1",
			Name:         "Fridge",
			Category:     types.CategoryElectronics,
			InputMode:    types.RatingModeStandard,
			Watts:        100,
			HoursPerDay:  24,
			DaysPerMonth: 30,
			Quantity:     1,
		},
	}
}

func TestHandleLogUsage(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)

		mockDB.On("GetSettings", mock.Anything, "home1").Return(testSettings(), types.CurrentSettingsVersion, nil).Once()
		mockDB.On("ListAppliances", mock.Anything, "home1").Return(testInventory(), nil).Once()
		mockDB.On("UpsertDailyUsage", mock.Anything, "home1", mock.MatchedBy(func(u types.UserDailyUsage) bool {
			// fan 0.075kW x 10h x 1.2 summer = 0.9 units, fridge off
			return !u.IsEstimated &&
				u.Date.Equal(time.Date(2026, time.June, 5, 0, 0, 0, 0, time.UTC)) &&
				math.Abs(u.TotalUnits-0.9) < 0.001 &&
				len(u.Entries) == 2
		})).Return(nil).Once()

		body, _ := json.Marshal(logUsageRequest{
			HouseholdID: "home1",
			Date:        "2026-06-05",
			Entries: []logUsageEntry{
				{ApplianceID: "fan-1", Hours: 10},
				{ApplianceID: "fridge-1", Hours: 0},
			},
		})
		req := withHousehold(httptest.NewRequest("POST", "/api/usage", bytes.NewBuffer(body)), "home1")
		w := httptest.NewRecorder()

		srv.handleLogUsage(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var saved types.UserDailyUsage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
		assert.False(t, saved.IsEstimated)
		assert.InDelta(t, 0.9, saved.TotalUnits, 0.001)
		mockDB.AssertExpectations(t)
	})

	t.Run("UnknownAppliance", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)

		mockDB.On("GetSettings", mock.Anything, "home1").Return(testSettings(), types.CurrentSettingsVersion, nil).Once()
		mockDB.On("ListAppliances", mock.Anything, "home1").Return(testInventory(), nil).Once()

		body, _ := json.Marshal(logUsageRequest{
			HouseholdID: "home1",
			Date:        "2026-06-05",
			Entries:     []logUsageEntry{{ApplianceID: "toaster-9", Hours: 1}},
		})
		req := withHousehold(httptest.NewRequest("POST", "/api/usage", bytes.NewBuffer(body)), "home1")
		w := httptest.NewRecorder()

		srv.handleLogUsage(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockDB.AssertNotCalled(t, "UpsertDailyUsage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("HoursOutOfRange", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)

		mockDB.On("GetSettings", mock.Anything, "home1").Return(testSettings(), types.CurrentSettingsVersion, nil).Once()
		mockDB.On("ListAppliances", mock.Anything, "home1").Return(testInventory(), nil).Once()

		body, _ := json.Marshal(logUsageRequest{
			HouseholdID: "home1",
			Date:        "2026-06-05",
			Entries:     []logUsageEntry{{ApplianceID: "fan-1", Hours: 25}},
		})
		req := withHousehold(httptest.NewRequest("POST", "/api/usage", bytes.NewBuffer(body)), "home1")
		w := httptest.NewRecorder()

		srv.handleLogUsage(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InvalidDate", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)

		body, _ := json.Marshal(logUsageRequest{
			HouseholdID: "home1",
			Date:        "05-06-2026",
			Entries:     []logUsageEntry{{ApplianceID: "fan-1", Hours: 1}},
		})
		req := withHousehold(httptest.NewRequest("POST", "/api/usage", bytes.NewBuffer(body)), "home1")
		w := httptest.NewRecorder()

		srv.handleLogUsage(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleGetUsage(t *testing.T) {
	t.Run("FillsGapsWithEstimates", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)

		logged := types.UserDailyUsage{
			Date:       time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			TotalUnits: 5,
		}

		mockDB.On("GetSettings", mock.Anything, "home1").Return(testSettings(), types.CurrentSettingsVersion, nil).Once()
		mockDB.On("ListAppliances", mock.Anything, "home1").Return(testInventory(), nil).Once()
		mockDB.On("GetDailyUsage", mock.Anything, "home1",
			time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC),
		).Return([]types.UserDailyUsage{logged}, nil).Once()

		req := withHousehold(httptest.NewRequest("GET", "/api/usage?householdID=home1&start=2026-01-01&end=2026-01-03", nil), "home1")
		w := httptest.NewRecorder()

		srv.handleGetUsage(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var out []types.UserDailyUsage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.Len(t, out, 3)

		assert.False(t, out[0].IsEstimated)
		assert.InDelta(t, 5, out[0].TotalUnits, 0.001)

		// fan 0.075x8x1.2 = 0.72 + fridge 0.1x24 = 2.4 per estimated day
		for _, day := range out[1:] {
			assert.True(t, day.IsEstimated)
			assert.InDelta(t, 3.12, day.TotalUnits, 0.001)
		}
		mockDB.AssertExpectations(t)
	})

	t.Run("InvalidRange", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)

		req := withHousehold(httptest.NewRequest("GET", "/api/usage?householdID=home1&start=2026-01-03&end=2026-01-01", nil), "home1")
		w := httptest.NewRecorder()

		srv.handleGetUsage(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("RangeTooLong", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)

		req := withHousehold(httptest.NewRequest("GET", "/api/usage?householdID=home1&start=2024-01-01&end=2026-01-01", nil), "home1")
		w := httptest.NewRecorder()

		srv.handleGetUsage(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
