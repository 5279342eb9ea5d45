package participantuser

import (
	"errors"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	idregistry "github.com/case-framework/enrollment-backend/pkg/id-registry"
)

func (dbService *ParticipantUserDBService) CreateDefaultIndexesForExternalIdentifiersCollection(instanceID string) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	collection := dbService.collectionExternalIdentifiers(instanceID)
	_, err := collection.Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "identifier", Value: 1},
					{Key: "substudyId", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "accountId", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "assigned", Value: 1}},
			},
		},
	)
	if err != nil {
		slog.Error("Error creating indexes for externalIdentifiers", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
	}
}

func (dbService *ParticipantUserDBService) CreateExternalIdentifier(instanceID string, extID idregistry.ExternalIdentifier) (idregistry.ExternalIdentifier, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	extID.CreatedAt = time.Now().Unix()
	extID.Assigned = false

	res, err := dbService.collectionExternalIdentifiers(instanceID).InsertOne(ctx, extID)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return extID, apperrors.ErrAlreadyExists
		}
		return extID, err
	}
	extID.ID = res.InsertedID.(primitive.ObjectID)
	return extID, nil
}

func (dbService *ParticipantUserDBService) GetExternalIdentifier(instanceID string, substudyID string, identifier string) (idregistry.ExternalIdentifier, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var extID idregistry.ExternalIdentifier
	err := dbService.collectionExternalIdentifiers(instanceID).FindOne(ctx, bson.M{
		"identifier": identifier,
		"substudyId": substudyID,
	}).Decode(&extID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return extID, apperrors.ErrNotFound
		}
		return extID, err
	}
	return extID, nil
}

// TryAssignExternalIdentifier claims the identifier for the account in one
// atomic step. The filter only matches while the entry is unassigned or held
// by the same account, so exactly one concurrent caller can win.
func (dbService *ParticipantUserDBService) TryAssignExternalIdentifier(instanceID string, substudyID string, identifier string, accountID string) (idregistry.ExternalIdentifier, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var extID idregistry.ExternalIdentifier
	err := dbService.collectionExternalIdentifiers(instanceID).FindOneAndUpdate(
		ctx,
		bson.M{
			"identifier": identifier,
			"substudyId": substudyID,
			"$or": []bson.M{
				{"assigned": false},
				{"accountId": accountID},
			},
		},
		bson.M{
			"$set": bson.M{
				"assigned":   true,
				"accountId":  accountID,
				"assignedAt": time.Now().Unix(),
			},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&extID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return extID, apperrors.ErrAlreadyExists
		}
		return extID, err
	}
	return extID, nil
}

func (dbService *ParticipantUserDBService) ReleaseExternalIdentifier(instanceID string, substudyID string, identifier string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionExternalIdentifiers(instanceID).UpdateOne(
		ctx,
		bson.M{
			"identifier": identifier,
			"substudyId": substudyID,
		},
		bson.M{
			"$set":   bson.M{"assigned": false},
			"$unset": bson.M{"accountId": "", "assignedAt": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (dbService *ParticipantUserDBService) DeleteExternalIdentifier(instanceID string, substudyID string, identifier string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionExternalIdentifiers(instanceID).DeleteOne(ctx, bson.M{
		"identifier": identifier,
		"substudyId": substudyID,
	})
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListExternalIdentifiers pages through the filtered set ordered by
// (identifier, substudyId), matching the unique index. The total always
// refers to the full filtered set.
func (dbService *ParticipantUserDBService) ListExternalIdentifiers(instanceID string, filter idregistry.ListFilter) ([]idregistry.ExternalIdentifier, int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	query := bson.M{}
	if filter.Prefix != "" {
		query["identifier"] = bson.M{"$regex": "^" + regexp.QuoteMeta(filter.Prefix)}
	}
	if filter.SubstudyID != "" {
		query["substudyId"] = filter.SubstudyID
	} else if filter.Scope != nil {
		query["substudyId"] = bson.M{"$in": filter.Scope}
	}
	if filter.AssignedFilter != nil {
		query["assigned"] = *filter.AssignedFilter
	}

	total, err := dbService.collectionExternalIdentifiers(instanceID).CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	if filter.Cursor.LastIdentifier != "" {
		query["$or"] = []bson.M{
			{"identifier": bson.M{"$gt": filter.Cursor.LastIdentifier}},
			{
				"identifier": filter.Cursor.LastIdentifier,
				"substudyId": bson.M{"$gt": filter.Cursor.LastSubstudyID},
			},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "identifier", Value: 1}, {Key: "substudyId", Value: 1}}).
		SetLimit(filter.PageSize)

	cursor, err := dbService.collectionExternalIdentifiers(instanceID).Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	items := []idregistry.ExternalIdentifier{}
	if err = cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
