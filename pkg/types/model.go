package types

import "time"

const (
	HouseholdIDNone = "none"
)

// Household represents a home whose appliances and usage are tracked.
type Household struct {
	ID          string                 `json:"id"`
	InviteCode  string                 `json:"inviteCode"`
	Permissions []HouseholdPermissions `json:"permissions"`
}

// HouseholdPermissions represents the permissions for a user on a household.
type HouseholdPermissions struct {
	UserID string `json:"userID"`
}

// UserHousehold represents a household on a user
type UserHousehold struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User represents a user of the system.
type User struct {
	ID         string          `json:"id"`
	Email      string          `json:"email"`
	Households []UserHousehold `json:"households"`
	Admin      bool            `json:"-"`
}

// Feedback represents feedback submitted by a user.
type Feedback struct {
	ID          string            `json:"id"`
	Sentiment   string            `json:"sentiment"`
	Comment     string            `json:"comment"`
	HouseholdID string            `json:"householdID"`
	UserID      string            `json:"userID"`
	Extra       map[string]string `json:"extra"`
	Timestamp   time.Time         `json:"timestamp"`
}
