package messaging

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
	"github.com/case-framework/enrollment-backend/pkg/notifications"
)

func (dbService *MessagingDBService) CreateDefaultIndexesForMessageTemplatesCollection(instanceID string) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionMessageTemplates(instanceID).Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "guid", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "messageType", Value: 1}},
			},
		},
	)
	if err != nil {
		slog.Error("Error creating indexes for messageTemplates", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
	}
}

func (dbService *MessagingDBService) SaveMessageTemplate(instanceID string, template notifications.MessageTemplate) (notifications.MessageTemplate, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	if err := notifications.CheckAllTranslationsParsable(template.Translations, template.MessageType); err != nil {
		return template, err
	}

	template.GUID = uuid.New().String()
	template.CreatedAt = time.Now()

	res, err := dbService.collectionMessageTemplates(instanceID).InsertOne(ctx, template)
	if err != nil {
		return template, err
	}
	template.ID = res.InsertedID.(primitive.ObjectID)
	return template, nil
}

func (dbService *MessagingDBService) GetMessageTemplatesByType(instanceID string, messageType string) ([]notifications.MessageTemplate, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	cursor, err := dbService.collectionMessageTemplates(instanceID).Find(ctx, bson.M{"messageType": messageType})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	templates := []notifications.MessageTemplate{}
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (dbService *MessagingDBService) GetMessageTemplateByGUID(instanceID string, guid string) (notifications.MessageTemplate, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var template notifications.MessageTemplate
	err := dbService.collectionMessageTemplates(instanceID).FindOne(ctx, bson.M{"guid": guid}).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return template, apperrors.ErrNotFound
		}
		return template, err
	}
	return template, nil
}

func (dbService *MessagingDBService) GetAllMessageTemplates(instanceID string) ([]notifications.MessageTemplate, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	cursor, err := dbService.collectionMessageTemplates(instanceID).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	templates := []notifications.MessageTemplate{}
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (dbService *MessagingDBService) DeleteMessageTemplate(instanceID string, guid string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionMessageTemplates(instanceID).DeleteOne(ctx, bson.M{"guid": guid})
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		return apperrors.ErrNotFound
	}
	return nil
}
