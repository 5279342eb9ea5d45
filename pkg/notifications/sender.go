package notifications

import (
	"encoding/base64"
	"log/slog"

	"github.com/case-framework/enrollment-backend/pkg/criteria"
	httpclient "github.com/case-framework/enrollment-backend/pkg/http-client"
)

// TemplateStore is the DB dependency of the sender.
type TemplateStore interface {
	GetMessageTemplatesByType(instanceID string, messageType string) ([]MessageTemplate, error)
}

// Sender delivers messages through the messaging bridge. Delivery is best
// effort, callers must not depend on the outcome.
type Sender struct {
	templates TemplateStore
	bridge    httpclient.ClientConfig
}

func NewSender(templates TemplateStore, bridge httpclient.ClientConfig) *Sender {
	return &Sender{
		templates: templates,
		bridge:    bridge,
	}
}

const (
	CHANNEL_EMAIL = "email"
	CHANNEL_PHONE = "phone"

	bridgeSendMessagePath = "/v1/messages/send"
)

// SendVerification picks the message template for the channel, resolves the
// translation for the account's preferred languages and hands the message to
// the bridge. Errors are logged only.
func (s *Sender) SendVerification(instanceID string, accountID string, channel string, address string, languages []string) {
	messageType := MESSAGE_TYPE_VERIFY_EMAIL
	if channel == CHANNEL_PHONE {
		messageType = MESSAGE_TYPE_VERIFY_PHONE
	}

	payload := map[string]string{
		"accountID": accountID,
	}
	if err := s.SendMessage(instanceID, messageType, channel, address, languages, payload); err != nil {
		slog.Error("could not send verification message",
			slog.String("instanceID", instanceID),
			slog.String("accountID", accountID),
			slog.String("channel", channel),
			slog.String("error", err.Error()))
	}
}

func (s *Sender) SendMessage(
	instanceID string,
	messageType string,
	channel string,
	address string,
	languages []string,
	contentInfos map[string]string,
) error {
	templates, err := s.templates.GetMessageTemplatesByType(instanceID, messageType)
	if err != nil {
		return err
	}

	tmpl, err := pickTemplate(templates, criteria.Context{Languages: languages})
	if err != nil {
		return err
	}

	translation := GetTemplateTranslation(tmpl.Translations, languages, tmpl.DefaultLanguage)
	decodedTemplate, err := base64.StdEncoding.DecodeString(translation.TemplateDef)
	if err != nil {
		return err
	}
	content, err := ResolveTemplate(messageType+translation.Lang, string(decodedTemplate), contentInfos)
	if err != nil {
		return err
	}

	_, err = s.bridge.RunHTTPcall(bridgeSendMessagePath, map[string]interface{}{
		"instanceID": instanceID,
		"channel":    channel,
		"to":         address,
		"subject":    translation.Subject,
		"content":    content,
	})
	return err
}

func pickTemplate(templates []MessageTemplate, ctx criteria.Context) (MessageTemplate, error) {
	candidates := make([]criteria.Selectable, 0, len(templates))
	var fallback *MessageTemplate
	for i, tmpl := range templates {
		if tmpl.Criteria == nil {
			if fallback == nil || tmpl.CreatedAt.Before(fallback.CreatedAt) {
				t := templates[i]
				fallback = &t
			}
			continue
		}
		candidates = append(candidates, criteria.Selectable{
			Index:     i,
			GUID:      tmpl.GUID,
			CreatedAt: tmpl.CreatedAt.Unix(),
			Criteria:  *tmpl.Criteria,
		})
	}

	if index, ok := criteria.SelectFirstMatching(candidates, ctx); ok {
		return templates[index], nil
	}
	if fallback != nil {
		return *fallback, nil
	}
	return MessageTemplate{}, errNoTemplate
}
