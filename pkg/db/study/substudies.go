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

func (dbService *StudyDBService) CreateDefaultIndexesForSubstudiesCollection(instanceID string) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionSubstudies(instanceID).Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "orgId", Value: 1}},
			},
		},
	)
	if err != nil {
		slog.Error("Error creating indexes for substudies", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
	}
}

func (dbService *StudyDBService) CreateSubstudy(instanceID string, substudy Substudy) (Substudy, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	substudy.CreatedAt = time.Now().Unix()
	res, err := dbService.collectionSubstudies(instanceID).InsertOne(ctx, substudy)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return substudy, apperrors.ErrAlreadyExists
		}
		return substudy, err
	}
	substudy.ID = res.InsertedID.(primitive.ObjectID)
	return substudy, nil
}

func (dbService *StudyDBService) GetSubstudyByKey(instanceID string, key string) (Substudy, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var substudy Substudy
	err := dbService.collectionSubstudies(instanceID).FindOne(ctx, bson.M{"key": key}).Decode(&substudy)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return substudy, apperrors.ErrNotFound
		}
		return substudy, err
	}
	return substudy, nil
}

func (dbService *StudyDBService) SubstudyExists(instanceID string, substudyID string) (bool, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	count, err := dbService.collectionSubstudies(instanceID).CountDocuments(ctx, bson.M{"key": substudyID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (dbService *StudyDBService) GetSubstudies(instanceID string) ([]Substudy, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	cursor, err := dbService.collectionSubstudies(instanceID).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	substudies := []Substudy{}
	if err = cursor.All(ctx, &substudies); err != nil {
		return nil, err
	}
	return substudies, nil
}

func (dbService *StudyDBService) GetSubstudiesByOrg(instanceID string, orgID string) ([]Substudy, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	cursor, err := dbService.collectionSubstudies(instanceID).Find(ctx, bson.M{"orgId": orgID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	substudies := []Substudy{}
	if err = cursor.All(ctx, &substudies); err != nil {
		return nil, err
	}
	return substudies, nil
}

func (dbService *StudyDBService) DeleteSubstudy(instanceID string, key string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionSubstudies(instanceID).DeleteOne(ctx, bson.M{"key": key})
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		return apperrors.ErrNotFound
	}
	return nil
}
