package study

import (
	"context"
	"time"

	"github.com/case-framework/enrollment-backend/pkg/db"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collection names
const (
	COLLECTION_NAME_ORGANIZATIONS      = "organizations"
	COLLECTION_NAME_SUBSTUDIES         = "substudies"
	COLLECTION_NAME_APP_CONFIGS        = "appConfigs"
	COLLECTION_NAME_SUBPOPULATIONS     = "subpopulations"
	COLLECTION_NAME_CONSENT_SIGNATURES = "consentSignatures"
	COLLECTION_NAME_INTENTS            = "participationIntents"
)

type StudyDBService struct {
	DBClient        *mongo.Client
	timeout         int
	noCursorTimeout bool
	DBNamePrefix    string
	InstanceIDs     []string
}

func NewStudyDBService(configs db.DBConfig) (*StudyDBService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer cancel()

	dbClient, err := mongo.Connect(ctx,
		options.Client().ApplyURI(configs.URI),
		options.Client().SetMaxConnIdleTime(time.Duration(configs.IdleConnTimeout)*time.Second),
		options.Client().SetMaxPoolSize(configs.MaxPoolSize),
	)

	if err != nil {
		return nil, err
	}

	ctx, conCancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	err = dbClient.Ping(ctx, nil)
	defer conCancel()

	if err != nil {
		return nil, err
	}

	studyDBSc := &StudyDBService{
		DBClient:        dbClient,
		timeout:         configs.Timeout,
		noCursorTimeout: configs.NoCursorTimeout,
		DBNamePrefix:    configs.DBNamePrefix,
		InstanceIDs:     configs.InstanceIDs,
	}

	if configs.RunIndexCreation {
		studyDBSc.CreateDefaultIndexes()
	}
	return studyDBSc, nil
}

func (dbService *StudyDBService) getDBName(instanceID string) string {
	return dbService.DBNamePrefix + instanceID + "_studyDB"
}

func (dbService *StudyDBService) getContext() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(dbService.timeout)*time.Second)
}

func (dbService *StudyDBService) collectionOrganizations(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_ORGANIZATIONS)
}

func (dbService *StudyDBService) collectionSubstudies(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_SUBSTUDIES)
}

func (dbService *StudyDBService) collectionAppConfigs(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_APP_CONFIGS)
}

func (dbService *StudyDBService) collectionSubpopulations(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_SUBPOPULATIONS)
}

func (dbService *StudyDBService) collectionConsentSignatures(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_CONSENT_SIGNATURES)
}

func (dbService *StudyDBService) collectionIntents(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_INTENTS)
}

func (dbService *StudyDBService) CreateDefaultIndexes() {
	for _, instanceID := range dbService.InstanceIDs {
		dbService.CreateDefaultIndexesForOrganizationsCollection(instanceID)
		dbService.CreateDefaultIndexesForSubstudiesCollection(instanceID)
		dbService.CreateDefaultIndexesForAppConfigsCollection(instanceID)
		dbService.CreateDefaultIndexesForSubpopulationsCollection(instanceID)
		dbService.CreateDefaultIndexesForConsentSignaturesCollection(instanceID)
		dbService.CreateDefaultIndexesForIntentsCollection(instanceID)
	}
}
