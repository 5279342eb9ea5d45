package study

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	"github.com/case-framework/enrollment-backend/pkg/consent"
)

func (dbService *StudyDBService) CreateDefaultIndexesForSubpopulationsCollection(instanceID string) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionSubpopulations(instanceID).Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "guid", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "studyKey", Value: 1}},
			},
		},
	)
	if err != nil {
		slog.Error("Error creating indexes for subpopulations", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
	}
}

func (dbService *StudyDBService) CreateSubpopulation(instanceID string, subpopulation consent.Subpopulation) (consent.Subpopulation, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	subpopulation.GUID = uuid.New().String()
	subpopulation.CreatedAt = time.Now().Unix()

	res, err := dbService.collectionSubpopulations(instanceID).InsertOne(ctx, subpopulation)
	if err != nil {
		return subpopulation, err
	}
	subpopulation.ID = res.InsertedID.(primitive.ObjectID)
	return subpopulation, nil
}

func (dbService *StudyDBService) GetSubpopulationsForStudy(instanceID string, studyKey string) ([]consent.Subpopulation, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	cursor, err := dbService.collectionSubpopulations(instanceID).Find(ctx, bson.M{"studyKey": studyKey})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	subpopulations := []consent.Subpopulation{}
	if err = cursor.All(ctx, &subpopulations); err != nil {
		return nil, err
	}
	return subpopulations, nil
}

func (dbService *StudyDBService) GetSubpopulationByGUID(instanceID string, guid string) (consent.Subpopulation, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var subpopulation consent.Subpopulation
	err := dbService.collectionSubpopulations(instanceID).FindOne(ctx, bson.M{"guid": guid}).Decode(&subpopulation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return subpopulation, apperrors.ErrNotFound
		}
		return subpopulation, err
	}
	return subpopulation, nil
}

// PublishNewConsentVersion bumps the published consent version of the
// subpopulation and returns the new value. Accounts are untouched, their
// states go obsolete lazily at the next evaluation.
func (dbService *StudyDBService) PublishNewConsentVersion(instanceID string, guid string) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var subpopulation consent.Subpopulation
	err := dbService.collectionSubpopulations(instanceID).FindOneAndUpdate(
		ctx,
		bson.M{"guid": guid},
		bson.M{"$inc": bson.M{"publishedVersion": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&subpopulation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, apperrors.ErrNotFound
		}
		return 0, err
	}
	return subpopulation.PublishedVersion, nil
}

func (dbService *StudyDBService) DeleteSubpopulation(instanceID string, guid string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionSubpopulations(instanceID).DeleteOne(ctx, bson.M{"guid": guid})
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		return apperrors.ErrNotFound
	}
	return nil
}
