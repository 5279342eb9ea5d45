package study

import (
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	"github.com/case-framework/enrollment-backend/pkg/consent"
)

func (dbService *StudyDBService) CreateDefaultIndexesForConsentSignaturesCollection(instanceID string) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionConsentSignatures(instanceID).Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "accountId", Value: 1},
					{Key: "subpopulationGuid", Value: 1},
					{Key: "version", Value: -1},
				},
			},
		},
	)
	if err != nil {
		slog.Error("Error creating indexes for consentSignatures", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
	}
}

func (dbService *StudyDBService) SaveSignature(instanceID string, signature consent.Signature) (consent.Signature, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionConsentSignatures(instanceID).InsertOne(ctx, signature)
	if err != nil {
		return signature, err
	}
	signature.ID = res.InsertedID.(primitive.ObjectID)
	return signature, nil
}

// GetLatestSignature returns the signature with the highest signed version
// for the pair, apperrors.ErrNotFound when the account never signed.
func (dbService *StudyDBService) GetLatestSignature(instanceID string, accountID string, subpopulationGUID string) (consent.Signature, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}, {Key: "signedAt", Value: -1}})

	var signature consent.Signature
	err := dbService.collectionConsentSignatures(instanceID).FindOne(ctx, bson.M{
		"accountId":         accountID,
		"subpopulationGuid": subpopulationGUID,
	}, opts).Decode(&signature)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return signature, apperrors.ErrNotFound
		}
		return signature, err
	}
	return signature, nil
}

func (dbService *StudyDBService) GetSignaturesForAccount(instanceID string, accountID string) ([]consent.Signature, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	cursor, err := dbService.collectionConsentSignatures(instanceID).Find(ctx, bson.M{"accountId": accountID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	signatures := []consent.Signature{}
	if err = cursor.All(ctx, &signatures); err != nil {
		return nil, err
	}
	return signatures, nil
}

func (dbService *StudyDBService) DeleteSignaturesForAccount(instanceID string, accountID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionConsentSignatures(instanceID).DeleteMany(ctx, bson.M{"accountId": accountID})
	return err
}
