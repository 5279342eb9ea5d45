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
	"github.com/case-framework/enrollment-backend/pkg/consent"
)

func (dbService *StudyDBService) CreateDefaultIndexesForIntentsCollection(instanceID string) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionIntents(instanceID).Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "phone", Value: 1},
					{Key: "studyKey", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		},
	)
	if err != nil {
		slog.Error("Error creating indexes for participationIntents", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
	}
}

func (dbService *StudyDBService) SaveIntent(instanceID string, intent consent.Intent) (consent.Intent, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	intent.CreatedAt = time.Now().Unix()
	res, err := dbService.collectionIntents(instanceID).InsertOne(ctx, intent)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return intent, apperrors.ErrAlreadyExists
		}
		return intent, err
	}
	intent.ID = res.InsertedID.(primitive.ObjectID)
	return intent, nil
}

// PopIntent removes and returns the pending intent in one atomic step, so
// two concurrent account creations cannot both consume it.
func (dbService *StudyDBService) PopIntent(instanceID string, phone string, studyKey string) (consent.Intent, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var intent consent.Intent
	err := dbService.collectionIntents(instanceID).FindOneAndDelete(ctx, bson.M{
		"phone":    phone,
		"studyKey": studyKey,
	}).Decode(&intent)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return intent, apperrors.ErrNotFound
		}
		return intent, err
	}
	return intent, nil
}
