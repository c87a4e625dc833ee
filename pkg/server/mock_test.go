package server

import (
	"context"
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/urjabill/urjabill/pkg/engine"
	"github.com/urjabill/urjabill/pkg/tariff"
	"github.com/urjabill/urjabill/pkg/types"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetSettings(ctx context.Context, householdID string) (types.Settings, int, error) {
	args := m.Called(ctx, householdID)
	if len(args) > 0 {
		return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
	}
	return types.Settings{}, 0, nil
}

func (m *mockStorage) SetSettings(ctx context.Context, householdID string, settings types.Settings, version int) error {
	args := m.Called(ctx, householdID, settings, version)
	return args.Error(0)
}

func (m *mockStorage) ListAppliances(ctx context.Context, householdID string) ([]types.Appliance, error) {
	args := m.Called(ctx, householdID)
	if len(args) > 0 {
		return args.Get(0).([]types.Appliance), args.Error(1)
	}
	return nil, nil
}

func (m *mockStorage) UpsertAppliance(ctx context.Context, householdID string, appliance types.Appliance) error {
	args := m.Called(ctx, householdID, appliance)
	return args.Error(0)
}

func (m *mockStorage) DeleteAppliance(ctx context.Context, householdID, applianceID string) error {
	args := m.Called(ctx, householdID, applianceID)
	return args.Error(0)
}

func (m *mockStorage) UpsertDailyUsage(ctx context.Context, householdID string, usage types.UserDailyUsage) error {
	args := m.Called(ctx, householdID, usage)
	return args.Error(0)
}

func (m *mockStorage) GetDailyUsage(ctx context.Context, householdID string, start, end time.Time) ([]types.UserDailyUsage, error) {
	args := m.Called(ctx, householdID, start, end)
	if len(args) > 0 {
		return args.Get(0).([]types.UserDailyUsage), args.Error(1)
	}
	return nil, nil
}

func (m *mockStorage) GetHousehold(ctx context.Context, householdID string) (types.Household, error) {
	args := m.Called(ctx, householdID)
	if len(args) > 0 {
		return args.Get(0).(types.Household), args.Error(1)
	}
	return types.Household{}, nil
}

func (m *mockStorage) ListHouseholds(ctx context.Context) ([]types.Household, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).([]types.Household), args.Error(1)
	}
	return nil, nil
}

func (m *mockStorage) CreateHousehold(ctx context.Context, householdID string, household types.Household) error {
	args := m.Called(ctx, householdID, household)
	return args.Error(0)
}

func (m *mockStorage) UpdateHousehold(ctx context.Context, householdID string, household types.Household) error {
	args := m.Called(ctx, householdID, household)
	return args.Error(0)
}

func (m *mockStorage) GetUser(ctx context.Context, userID string) (types.User, error) {
	args := m.Called(ctx, userID)
	if len(args) > 0 {
		return args.Get(0).(types.User), args.Error(1)
	}
	return types.User{}, nil
}

func (m *mockStorage) CreateUser(ctx context.Context, user types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockStorage) UpdateUser(ctx context.Context, user types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockStorage) InsertFeedback(ctx context.Context, feedback types.Feedback) error {
	args := m.Called(ctx, feedback)
	return args.Error(0)
}

func (m *mockStorage) ListFeedback(ctx context.Context) ([]types.Feedback, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).([]types.Feedback), args.Error(1)
	}
	return nil, nil
}

func (m *mockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

// testCatalog returns a catalog with a single simple schedule: 0-100 at 3,
// 100+ at 5, fixed charge 50.
func testCatalog() *tariff.Catalog {
	c := tariff.NewCatalog()
	hundred := 100.0
	err := c.Register(types.StateTariff{
		ID:          "test_residential",
		Name:        "Test Residential",
		State:       "Test",
		FixedCharge: 50,
		Slabs: []types.TariffSlab{
			{MinUnits: 0, MaxUnits: &hundred, RatePerUnit: 3},
			{MinUnits: 100, MaxUnits: nil, RatePerUnit: 5},
		},
	})
	if err != nil {
		panic(err)
	}
	return c
}

func newTestServer(db *mockStorage) *Server {
	return &Server{
		tariffs: testCatalog(),
		engine:  engine.NewEngine(engine.DefaultTunables()),
		storage: db,
	}
}

// withHousehold stamps the context values the auth middleware would have set.
func withHousehold(r *http.Request, householdID string) *http.Request {
	ctx := context.WithValue(r.Context(), householdIDContextKey, householdID)
	return r.WithContext(ctx)
}

func withUser(r *http.Request, user types.User) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	ctx = context.WithValue(ctx, allUserHouseholdsContextKey, user.Households)
	return r.WithContext(ctx)
}

func testSettings() types.Settings {
	return types.Settings{
		TariffID:        "test_residential",
		Season:          types.SeasonSummer,
		Subsidy:         types.SubsidyConfig{Type: types.SubsidyNone},
		InsightLanguage: "en",
	}
}
