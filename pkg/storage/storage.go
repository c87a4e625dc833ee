package storage

import (
	"context"
	"errors"
	"time"

	"github.com/urjabill/urjabill/pkg/types"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrHouseholdNotFound = errors.New("household not found")
)

// Database defines the interface for persisting data and retrieving settings.
type Database interface {
	// Settings
	GetSettings(ctx context.Context, householdID string) (types.Settings, int, error)
	SetSettings(ctx context.Context, householdID string, settings types.Settings, version int) error

	// Appliance Inventory
	ListAppliances(ctx context.Context, householdID string) ([]types.Appliance, error)
	UpsertAppliance(ctx context.Context, householdID string, appliance types.Appliance) error
	DeleteAppliance(ctx context.Context, householdID, applianceID string) error

	// Daily Usage Logs
	// UpsertDailyUsage adds or replaces the log for the usage's calendar day.
	UpsertDailyUsage(ctx context.Context, householdID string, usage types.UserDailyUsage) error
	GetDailyUsage(ctx context.Context, householdID string, start, end time.Time) ([]types.UserDailyUsage, error)

	// Households & Users
	GetHousehold(ctx context.Context, householdID string) (types.Household, error)
	ListHouseholds(ctx context.Context) ([]types.Household, error)
	CreateHousehold(ctx context.Context, householdID string, household types.Household) error
	UpdateHousehold(ctx context.Context, householdID string, household types.Household) error
	GetUser(ctx context.Context, userID string) (types.User, error)
	CreateUser(ctx context.Context, user types.User) error
	UpdateUser(ctx context.Context, user types.User) error

	// Feedback
	InsertFeedback(ctx context.Context, feedback types.Feedback) error
	ListFeedback(ctx context.Context) ([]types.Feedback, error)

	// Lifecycle
	Close() error
}
