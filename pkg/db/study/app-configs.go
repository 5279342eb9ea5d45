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
	"github.com/case-framework/enrollment-backend/pkg/criteria"
)

func (dbService *StudyDBService) CreateDefaultIndexesForAppConfigsCollection(instanceID string) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionAppConfigs(instanceID).Indexes().CreateMany(
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
		slog.Error("Error creating indexes for appConfigs", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
	}
}

func (dbService *StudyDBService) CreateAppConfig(instanceID string, appConfig AppConfig) (AppConfig, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	appConfig.GUID = uuid.New().String()
	appConfig.CreatedAt = time.Now().Unix()

	res, err := dbService.collectionAppConfigs(instanceID).InsertOne(ctx, appConfig)
	if err != nil {
		return appConfig, err
	}
	appConfig.ID = res.InsertedID.(primitive.ObjectID)
	return appConfig, nil
}

func (dbService *StudyDBService) GetAppConfigByGUID(instanceID string, guid string) (AppConfig, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var appConfig AppConfig
	err := dbService.collectionAppConfigs(instanceID).FindOne(ctx, bson.M{"guid": guid}).Decode(&appConfig)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return appConfig, apperrors.ErrNotFound
		}
		return appConfig, err
	}
	return appConfig, nil
}

func (dbService *StudyDBService) GetAppConfigsForStudy(instanceID string, studyKey string) ([]AppConfig, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	cursor, err := dbService.collectionAppConfigs(instanceID).Find(ctx, bson.M{"studyKey": studyKey})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	appConfigs := []AppConfig{}
	if err = cursor.All(ctx, &appConfigs); err != nil {
		return nil, err
	}
	return appConfigs, nil
}

func (dbService *StudyDBService) UpdateAppConfig(instanceID string, guid string, label string, criteriaUpdate *criteria.Criteria, config map[string]interface{}) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionAppConfigs(instanceID).UpdateOne(
		ctx,
		bson.M{"guid": guid},
		bson.M{"$set": bson.M{
			"label":    label,
			"criteria": criteriaUpdate,
			"config":   config,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (dbService *StudyDBService) DeleteAppConfig(instanceID string, guid string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionAppConfigs(instanceID).DeleteOne(ctx, bson.M{"guid": guid})
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		return apperrors.ErrNotFound
	}
	return nil
}
