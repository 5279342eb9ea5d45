package study

import (
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
)

func (dbService *StudyDBService) CreateDefaultIndexesForOrganizationsCollection(instanceID string) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionOrganizations(instanceID).Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "identifier", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	)
	if err != nil {
		slog.Error("Error creating indexes for organizations", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
	}
}

func (dbService *StudyDBService) CreateOrganization(instanceID string, org Organization) (Organization, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	org.CreatedAt = time.Now().Unix()
	res, err := dbService.collectionOrganizations(instanceID).InsertOne(ctx, org)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return org, apperrors.ErrAlreadyExists
		}
		return org, err
	}
	org.ID = res.InsertedID.(primitive.ObjectID)
	return org, nil
}

func (dbService *StudyDBService) GetOrganization(instanceID string, orgID string) (Organization, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		return Organization{}, apperrors.ErrNotFound
	}

	var org Organization
	err = dbService.collectionOrganizations(instanceID).FindOne(ctx, bson.M{"_id": objID}).Decode(&org)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return org, apperrors.ErrNotFound
		}
		return org, err
	}
	return org, nil
}

func (dbService *StudyDBService) GetOrganizations(instanceID string) ([]Organization, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	cursor, err := dbService.collectionOrganizations(instanceID).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orgs := []Organization{}
	if err = cursor.All(ctx, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (dbService *StudyDBService) AddOrganizationMember(instanceID string, orgID string, accountID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		return apperrors.ErrNotFound
	}

	res, err := dbService.collectionOrganizations(instanceID).UpdateOne(
		ctx,
		bson.M{"_id": objID},
		bson.M{"$addToSet": bson.M{"memberAccountIds": accountID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (dbService *StudyDBService) RemoveOrganizationMember(instanceID string, orgID string, accountID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		return apperrors.ErrNotFound
	}

	res, err := dbService.collectionOrganizations(instanceID).UpdateOne(
		ctx,
		bson.M{"_id": objID},
		bson.M{"$pull": bson.M{"memberAccountIds": accountID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteOrganization removes the organization only while it has no members
// left. The member check and the delete are one conditional operation, so a
// concurrent member add cannot race past it.
func (dbService *StudyDBService) DeleteOrganization(instanceID string, orgID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		return apperrors.ErrNotFound
	}

	res, err := dbService.collectionOrganizations(instanceID).DeleteOne(ctx, bson.M{
		"_id": objID,
		"$or": []bson.M{
			{"memberAccountIds": bson.M{"$exists": false}},
			{"memberAccountIds": bson.M{"$size": 0}},
		},
	})
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		// deleted nothing: either unknown or still has members
		if _, getErr := dbService.GetOrganization(instanceID, orgID); getErr != nil {
			return getErr
		}
		return apperrors.ErrConstraintViolation
	}
	return nil
}
