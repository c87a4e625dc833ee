package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/urjabill/urjabill/pkg/log"
	"github.com/urjabill/urjabill/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// usageDayFormat is the document ID layout for daily usage logs. Date-only
// IDs sort lexicographically so range queries work on the document ID.
const usageDayFormat = "2006-01-02"

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. It persists settings, appliances, and usage logs under
// households/{id} and keeps users and feedback in top-level collections.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID verification could be here, but we allow empty if inferred.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) getCollection(householdID, name string) (*firestore.CollectionRef, error) {
	if householdID == "" {
		return nil, fmt.Errorf("householdID cannot be empty")
	}
	return f.client.Collection("households").Doc(householdID).Collection(name), nil
}

// GetSettings retrieves the dynamic configuration from the "config/settings" document.
func (f *FirestoreProvider) GetSettings(ctx context.Context, householdID string) (types.Settings, int, error) {
	coll, err := f.getCollection(householdID, "config")
	if err != nil {
		return types.Settings{}, 0, err
	}
	doc, err := coll.Doc("settings").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			// Return default settings if not found
			return types.Settings{}, 0, nil
		}
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings doc: %w", err)
	}

	version := docVersion(doc)

	var s types.Settings
	if err := unmarshalDocJSON(doc, &s); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read settings doc", slog.String("householdID", householdID), slog.Any("err", err))
		return types.Settings{}, 0, err
	}
	return s, version, nil
}

// SetSettings saves the dynamic configuration to the "config/settings" document.
// It stores the settings as a JSON string for portability.
func (f *FirestoreProvider) SetSettings(ctx context.Context, householdID string, settings types.Settings, version int) error {
	jsonBytes, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	coll, err := f.getCollection(householdID, "config")
	if err != nil {
		return err
	}
	_, err = coll.Doc("settings").Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// ListAppliances retrieves the full appliance inventory for a household.
func (f *FirestoreProvider) ListAppliances(ctx context.Context, householdID string) ([]types.Appliance, error) {
	coll, err := f.getCollection(householdID, "appliances")
	if err != nil {
		return nil, err
	}
	iter := coll.OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var appliances []types.Appliance
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating appliances: %w", err)
		}

		var a types.Appliance
		if err := unmarshalDocJSON(doc, &a); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to read appliance doc", slog.String("applianceID", doc.Ref.ID), slog.String("householdID", householdID), slog.Any("err", err))
			return nil, fmt.Errorf("appliance document %s: %w", doc.Ref.ID, err)
		}
		appliances = append(appliances, a)
	}
	return appliances, nil
}

// UpsertAppliance adds or replaces an appliance in the household's inventory.
// The document ID is the appliance ID.
func (f *FirestoreProvider) UpsertAppliance(ctx context.Context, householdID string, appliance types.Appliance) error {
	if appliance.ID == "" {
		return fmt.Errorf("appliance missing id")
	}
	jsonBytes, err := json.Marshal(appliance)
	if err != nil {
		return fmt.Errorf("failed to marshal appliance: %w", err)
	}

	coll, err := f.getCollection(householdID, "appliances")
	if err != nil {
		return err
	}
	_, err = coll.Doc(appliance.ID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert appliance %s: %w", appliance.ID, err)
	}
	return nil
}

// DeleteAppliance removes an appliance from the household's inventory.
// Deleting an appliance that does not exist is not an error.
func (f *FirestoreProvider) DeleteAppliance(ctx context.Context, householdID, applianceID string) error {
	if applianceID == "" {
		return fmt.Errorf("applianceID cannot be empty")
	}
	coll, err := f.getCollection(householdID, "appliances")
	if err != nil {
		return err
	}
	if _, err := coll.Doc(applianceID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete appliance %s: %w", applianceID, err)
	}
	return nil
}

// UpsertDailyUsage adds or replaces the usage log for the log's calendar day
// in the "usage_days" collection. The document ID is the date for efficient
// range queries.
func (f *FirestoreProvider) UpsertDailyUsage(ctx context.Context, householdID string, usage types.UserDailyUsage) error {
	if usage.Date.IsZero() {
		return fmt.Errorf("usage log missing date")
	}
	jsonBytes, err := json.Marshal(usage)
	if err != nil {
		return fmt.Errorf("failed to marshal usage log: %w", err)
	}

	coll, err := f.getCollection(householdID, "usage_days")
	if err != nil {
		return err
	}
	docID := usage.Date.UTC().Format(usageDayFormat)
	_, err = coll.Doc(docID).Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": usage.Date,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert usage log: %w", err)
	}
	return nil
}

// GetDailyUsage retrieves usage logs with dates in [start, end].
// Uses document ID range queries for efficient filtering without reading all documents.
func (f *FirestoreProvider) GetDailyUsage(ctx context.Context, householdID string, start, end time.Time) ([]types.UserDailyUsage, error) {
	startDocID := start.UTC().Format(usageDayFormat)
	endDocID := end.UTC().Format(usageDayFormat)

	coll, err := f.getCollection(householdID, "usage_days")
	if err != nil {
		return nil, err
	}
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<=", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var logs []types.UserDailyUsage
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating usage logs: %w", err)
		}

		var u types.UserDailyUsage
		if err := unmarshalDocJSON(doc, &u); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to read usage doc", slog.String("docID", doc.Ref.ID), slog.String("householdID", householdID), slog.Any("err", err))
			return nil, fmt.Errorf("usage document %s: %w", doc.Ref.ID, err)
		}
		logs = append(logs, u)
	}
	return logs, nil
}

// GetHousehold retrieves a household from the "households" collection.
func (f *FirestoreProvider) GetHousehold(ctx context.Context, householdID string) (types.Household, error) {
	doc, err := f.client.Collection("households").Doc(householdID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Household{}, fmt.Errorf("%w: %s", ErrHouseholdNotFound, householdID)
		}
		return types.Household{}, fmt.Errorf("failed to get household %s: %w", householdID, err)
	}

	var household types.Household
	if err := unmarshalDocJSON(doc, &household); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read household doc", slog.String("householdID", householdID), slog.Any("err", err))
		return types.Household{}, fmt.Errorf("household %s: %w", householdID, err)
	}
	return household, nil
}

// ListHouseholds retrieves all households from the "households" collection.
func (f *FirestoreProvider) ListHouseholds(ctx context.Context) ([]types.Household, error) {
	iter := f.client.Collection("households").Documents(ctx)
	defer iter.Stop()

	var households []types.Household
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating households: %w", err)
		}

		var household types.Household
		if err := unmarshalDocJSON(doc, &household); err != nil {
			// Skip malformed documents
			log.Ctx(ctx).WarnContext(ctx, "skipping malformed household doc", slog.String("householdID", doc.Ref.ID), slog.Any("err", err))
			continue
		}
		households = append(households, household)
	}
	return households, nil
}

// CreateHousehold creates a new household document. It fails if the document
// already exists.
func (f *FirestoreProvider) CreateHousehold(ctx context.Context, householdID string, household types.Household) error {
	jsonBytes, err := json.Marshal(household)
	if err != nil {
		return fmt.Errorf("failed to marshal household %s: %w", householdID, err)
	}
	_, err = f.client.Collection("households").Doc(householdID).Create(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to create household %s: %w", householdID, err)
	}
	return nil
}

// UpdateHousehold updates a household document in the "households" collection.
func (f *FirestoreProvider) UpdateHousehold(ctx context.Context, householdID string, household types.Household) error {
	jsonBytes, err := json.Marshal(household)
	if err != nil {
		return fmt.Errorf("failed to marshal household %s: %w", householdID, err)
	}
	_, err = f.client.Collection("households").Doc(householdID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update household %s: %w", householdID, err)
	}
	return nil
}

// GetUser retrieves a user from the "users" collection.
func (f *FirestoreProvider) GetUser(ctx context.Context, userID string) (types.User, error) {
	doc, err := f.client.Collection("users").Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return types.User{}, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	var user types.User
	if err := unmarshalDocJSON(doc, &user); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read user doc", slog.String("userID", userID), slog.Any("err", err))
		return types.User{}, fmt.Errorf("user %s: %w", userID, err)
	}
	return user, nil
}

// CreateUser creates a new user document in the "users" collection.
func (f *FirestoreProvider) CreateUser(ctx context.Context, user types.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", user.ID, err)
	}
	_, err = f.client.Collection("users").Doc(user.ID).Create(ctx, map[string]interface{}{
		"json": string(userJSON),
	})
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.ID, err)
	}
	return nil
}

// UpdateUser updates an existing user document in the "users" collection.
func (f *FirestoreProvider) UpdateUser(ctx context.Context, user types.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", user.ID, err)
	}
	_, err = f.client.Collection("users").Doc(user.ID).Set(ctx, map[string]interface{}{
		"json": string(userJSON),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}

// InsertFeedback adds a feedback record to the "feedback" collection.
func (f *FirestoreProvider) InsertFeedback(ctx context.Context, feedback types.Feedback) error {
	if feedback.ID == "" {
		return fmt.Errorf("feedback missing id")
	}
	jsonBytes, err := json.Marshal(feedback)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}
	_, err = f.client.Collection("feedback").Doc(feedback.ID).Create(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": feedback.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to insert feedback %s: %w", feedback.ID, err)
	}
	return nil
}

// ListFeedback retrieves all feedback records ordered by timestamp.
func (f *FirestoreProvider) ListFeedback(ctx context.Context) ([]types.Feedback, error) {
	iter := f.client.Collection("feedback").OrderBy("timestamp", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var all []types.Feedback
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating feedback: %w", err)
		}

		var fb types.Feedback
		if err := unmarshalDocJSON(doc, &fb); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping malformed feedback doc", slog.String("feedbackID", doc.Ref.ID), slog.Any("err", err))
			continue
		}
		all = append(all, fb)
	}
	return all, nil
}

// unmarshalDocJSON decodes the "json" field every document stores its record
// under.
func unmarshalDocJSON(doc *firestore.DocumentSnapshot, v interface{}) error {
	val, err := doc.DataAt("json")
	if err != nil {
		return fmt.Errorf("document missing 'json' field: %w", err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		return fmt.Errorf("document 'json' field is not a string")
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return fmt.Errorf("failed to unmarshal document json: %w", err)
	}
	return nil
}

// docVersion reads the optional "version" field (default 0).
func docVersion(doc *firestore.DocumentSnapshot) int {
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			return int(vInt)
		}
	}
	return 0
}
