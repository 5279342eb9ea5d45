package participantuser

import (
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	userTypes "github.com/case-framework/enrollment-backend/pkg/user-management/types"
)

func (dbService *ParticipantUserDBService) CreateDefaultIndexesForAccountsCollection(instanceID string) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	collection := dbService.collectionAccounts(instanceID)
	_, err := collection.Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
			},
			{
				Keys:    bson.D{{Key: "phone", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"phone": bson.M{"$type": "string"}}),
			},
			{
				Keys:    bson.D{{Key: "synapseUserId", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"synapseUserId": bson.M{"$type": "string"}}),
			},
			{
				Keys: bson.D{{Key: "substudyIds", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "timestamps.createdAt", Value: 1}},
			},
		},
	)
	if err != nil {
		slog.Error("Error creating indexes for accounts", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
	}
}

func (dbService *ParticipantUserDBService) CreateAccount(instanceID string, account userTypes.Account) (userTypes.Account, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	now := time.Now().Unix()
	account.Timestamps.CreatedAt = now
	account.Timestamps.UpdatedAt = now

	res, err := dbService.collectionAccounts(instanceID).InsertOne(ctx, account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account, apperrors.ErrAlreadyExists
		}
		return account, err
	}
	account.ID = res.InsertedID.(primitive.ObjectID)
	return account, nil
}

func (dbService *ParticipantUserDBService) GetAccountByID(instanceID string, accountID string) (userTypes.Account, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return userTypes.Account{}, apperrors.ErrNotFound
	}

	var account userTypes.Account
	err = dbService.collectionAccounts(instanceID).FindOne(ctx, bson.M{"_id": objID}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account, apperrors.ErrNotFound
		}
		return account, err
	}
	return account, nil
}

func (dbService *ParticipantUserDBService) GetAccountByEmail(instanceID string, email string) (userTypes.Account, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var account userTypes.Account
	err := dbService.collectionAccounts(instanceID).FindOne(ctx, bson.M{"email": email}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account, apperrors.ErrNotFound
		}
		return account, err
	}
	return account, nil
}

func (dbService *ParticipantUserDBService) GetAccountByExternalID(instanceID string, substudyID string, identifier string) (userTypes.Account, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var account userTypes.Account
	err := dbService.collectionAccounts(instanceID).FindOne(ctx, bson.M{"externalIds." + substudyID: identifier}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account, apperrors.ErrNotFound
		}
		return account, err
	}
	return account, nil
}

// BindAccountIdentifierIfUnset writes the identifier field only while it is
// still absent on the account document. When the field is already set, the
// current account is returned unchanged with bound false.
func (dbService *ParticipantUserDBService) BindAccountIdentifierIfUnset(instanceID string, accountID string, field string, value string) (userTypes.Account, bool, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return userTypes.Account{}, false, apperrors.ErrNotFound
	}

	var account userTypes.Account
	err = dbService.collectionAccounts(instanceID).FindOneAndUpdate(
		ctx,
		bson.M{
			"_id": objID,
			field: bson.M{"$exists": false},
		},
		bson.M{
			"$set": bson.M{
				field:                  value,
				"timestamps.updatedAt": time.Now().Unix(),
			},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&account)
	if err == nil {
		return account, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return userTypes.Account{}, false, err
	}

	// field already set or account missing, re-read to tell the two apart
	account, err = dbService.GetAccountByID(instanceID, accountID)
	if err != nil {
		return userTypes.Account{}, false, err
	}
	return account, false, nil
}

func (dbService *ParticipantUserDBService) AttachExternalID(instanceID string, accountID string, substudyID string, identifier string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return apperrors.ErrNotFound
	}

	res, err := dbService.collectionAccounts(instanceID).UpdateOne(
		ctx,
		bson.M{"_id": objID},
		bson.M{
			"$set": bson.M{
				"externalIds." + substudyID: identifier,
				"timestamps.updatedAt":      time.Now().Unix(),
			},
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

func (dbService *ParticipantUserDBService) DetachExternalID(instanceID string, accountID string, substudyID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return apperrors.ErrNotFound
	}

	res, err := dbService.collectionAccounts(instanceID).UpdateOne(
		ctx,
		bson.M{"_id": objID},
		bson.M{
			"$unset": bson.M{"externalIds." + substudyID: ""},
			"$set":   bson.M{"timestamps.updatedAt": time.Now().Unix()},
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

func (dbService *ParticipantUserDBService) UpdateAccountStatus(instanceID string, accountID string, status string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return apperrors.ErrNotFound
	}

	update := bson.M{
		"status":               status,
		"timestamps.updatedAt": time.Now().Unix(),
	}
	if status == userTypes.ACCOUNT_STATUS_DISABLED {
		update["timestamps.disabledAt"] = time.Now().Unix()
	}

	res, err := dbService.collectionAccounts(instanceID).UpdateOne(
		ctx,
		bson.M{"_id": objID},
		bson.M{"$set": update},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (dbService *ParticipantUserDBService) UpdateLoginTime(instanceID string, accountID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return apperrors.ErrNotFound
	}

	_, err = dbService.collectionAccounts(instanceID).UpdateOne(
		ctx,
		bson.M{"_id": objID},
		bson.M{"$set": bson.M{"timestamps.lastLogin": time.Now().Unix()}},
	)
	return err
}

func (dbService *ParticipantUserDBService) SaveFailedLoginAttempt(instanceID string, accountID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return apperrors.ErrNotFound
	}

	_, err = dbService.collectionAccounts(instanceID).UpdateOne(
		ctx,
		bson.M{"_id": objID},
		bson.M{"$push": bson.M{"failedLoginAttempts": time.Now().Unix()}},
	)
	return err
}

func (dbService *ParticipantUserDBService) ResetFailedLoginAttempts(instanceID string, accountID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return apperrors.ErrNotFound
	}

	_, err = dbService.collectionAccounts(instanceID).UpdateOne(
		ctx,
		bson.M{"_id": objID},
		bson.M{"$set": bson.M{"failedLoginAttempts": []int64{}}},
	)
	return err
}

func (dbService *ParticipantUserDBService) MarkIdentifierVerified(instanceID string, accountID string, channel string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return apperrors.ErrNotFound
	}

	field := "emailVerifiedAt"
	if channel == userTypes.CHANNEL_PHONE {
		field = "phoneVerifiedAt"
	}

	res, err := dbService.collectionAccounts(instanceID).UpdateOne(
		ctx,
		bson.M{"_id": objID},
		bson.M{"$set": bson.M{
			field:                  time.Now().Unix(),
			"timestamps.updatedAt": time.Now().Unix(),
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

func (dbService *ParticipantUserDBService) DeleteAccount(instanceID string, accountID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return apperrors.ErrNotFound
	}

	res, err := dbService.collectionAccounts(instanceID).DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteUnverifiedAccounts removes accounts that never verified any of
// their identifiers before the cutoff. Accounts holding an assigned
// external identifier or a management role are not touched.
func (dbService *ParticipantUserDBService) DeleteUnverifiedAccounts(instanceID string, createdBefore int64) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"timestamps.createdAt": bson.M{"$lt": createdBefore},
		"emailVerifiedAt":      0,
		"phoneVerifiedAt":      0,
		"externalIds":          bson.M{"$exists": false},
		"roles":                bson.M{"$exists": false},
	}

	res, err := dbService.collectionAccounts(instanceID).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// substudyScopeFilter matches accounts whose effective substudy set
// intersects the viewer's scope: either a direct assignment or an external
// identifier owned by one of the scoped substudies.
func substudyScopeFilter(substudyIDs []string) bson.M {
	or := []bson.M{
		{"substudyIds": bson.M{"$in": substudyIDs}},
	}
	for _, substudyID := range substudyIDs {
		or = append(or, bson.M{"externalIds." + substudyID: bson.M{"$exists": true}})
	}
	return bson.M{"$or": or}
}

// GetScopedAccountByID returns the account only when it is in scope for the
// given substudies. Out of scope reads like a missing account.
func (dbService *ParticipantUserDBService) GetScopedAccountByID(instanceID string, accountID string, substudyIDs []string) (userTypes.Account, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	if len(substudyIDs) == 0 {
		return userTypes.Account{}, apperrors.ErrNotFound
	}

	objID, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return userTypes.Account{}, apperrors.ErrNotFound
	}

	filter := substudyScopeFilter(substudyIDs)
	filter["_id"] = objID

	var account userTypes.Account
	err = dbService.collectionAccounts(instanceID).FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account, apperrors.ErrNotFound
		}
		return account, err
	}
	return account, nil
}

func (dbService *ParticipantUserDBService) GetScopedAccounts(instanceID string, substudyIDs []string, page int64, limit int64) (accounts []userTypes.Account, total int64, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	if len(substudyIDs) == 0 {
		return []userTypes.Account{}, 0, nil
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	filter := substudyScopeFilter(substudyIDs)

	total, err = dbService.collectionAccounts(instanceID).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamps.createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := dbService.collectionAccounts(instanceID).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	accounts = []userTypes.Account{}
	if err = cursor.All(ctx, &accounts); err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}
