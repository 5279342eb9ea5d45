package notifications

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/case-framework/enrollment-backend/pkg/criteria"
	httpclient "github.com/case-framework/enrollment-backend/pkg/http-client"
)

func encTemplate(def string) string {
	return base64.StdEncoding.EncodeToString([]byte(def))
}

func TestResolveTemplate(t *testing.T) {
	t.Run("empty template", func(t *testing.T) {
		_, err := ResolveTemplate("test", "", nil)
		if err == nil {
			t.Error("should fail for empty template")
		}
	})

	t.Run("with content infos", func(t *testing.T) {
		content, err := ResolveTemplate("test", "Hello {{.name}}", map[string]string{"name": "Ada"})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		if content != "Hello Ada" {
			t.Errorf("unexpected content: %s", content)
		}
	})
}

func TestGetTemplateTranslation(t *testing.T) {
	translations := []LocalizedTemplate{
		{Lang: "en", Subject: "sub-en"},
		{Lang: "nl", Subject: "sub-nl"},
	}

	t.Run("first preferred language wins", func(t *testing.T) {
		tr := GetTemplateTranslation(translations, []string{"nl", "en"}, "en")
		if tr.Lang != "nl" {
			t.Errorf("unexpected translation: %v", tr)
		}
	})

	t.Run("fallback to default language", func(t *testing.T) {
		tr := GetTemplateTranslation(translations, []string{"fr"}, "en")
		if tr.Lang != "en" {
			t.Errorf("unexpected translation: %v", tr)
		}
	})
}

func TestPickTemplate(t *testing.T) {
	lang := func(l string) *criteria.Criteria {
		return &criteria.Criteria{Language: l}
	}
	templates := []MessageTemplate{
		{GUID: "g1", Criteria: lang("en"), CreatedAt: time.Unix(100, 0)},
		{GUID: "g2", Criteria: lang("nl"), CreatedAt: time.Unix(200, 0)},
		{GUID: "g3", CreatedAt: time.Unix(300, 0)},
	}

	t.Run("criteria match preferred over fallback", func(t *testing.T) {
		tmpl, err := pickTemplate(templates, criteria.Context{Languages: []string{"nl"}})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		if tmpl.GUID != "g2" {
			t.Errorf("unexpected template: %s", tmpl.GUID)
		}
	})

	t.Run("no match falls back to template without criteria", func(t *testing.T) {
		tmpl, err := pickTemplate(templates, criteria.Context{Languages: []string{"fr"}})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		if tmpl.GUID != "g3" {
			t.Errorf("unexpected template: %s", tmpl.GUID)
		}
	})

	t.Run("no match and no fallback", func(t *testing.T) {
		_, err := pickTemplate(templates[:2], criteria.Context{Languages: []string{"fr"}})
		if err == nil {
			t.Error("should fail when nothing matches")
		}
	})
}

type fakeTemplateStore struct {
	templates []MessageTemplate
}

func (s *fakeTemplateStore) GetMessageTemplatesByType(instanceID string, messageType string) ([]MessageTemplate, error) {
	found := []MessageTemplate{}
	for _, tmpl := range s.templates {
		if tmpl.MessageType == messageType {
			found = append(found, tmpl)
		}
	}
	return found, nil
}

func TestSenderSendMessage(t *testing.T) {
	var received map[string]interface{}
	bridge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
	}))
	defer bridge.Close()

	store := &fakeTemplateStore{
		templates: []MessageTemplate{
			{
				GUID:            "g1",
				MessageType:     MESSAGE_TYPE_VERIFY_EMAIL,
				DefaultLanguage: "en",
				Translations: []LocalizedTemplate{
					{Lang: "en", Subject: "Verify your email", TemplateDef: encTemplate("Code for {{.accountID}}")},
				},
				CreatedAt: time.Unix(100, 0),
			},
		},
	}

	sender := NewSender(store, httpclient.NewClientConfig(bridge.URL, "test-key", time.Second, nil))

	err := sender.SendMessage("default", MESSAGE_TYPE_VERIFY_EMAIL, CHANNEL_EMAIL, "p@example.com", []string{"en"}, map[string]string{"accountID": "acc1"})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
		return
	}
	if received["to"] != "p@example.com" || received["content"] != "Code for acc1" {
		t.Errorf("unexpected bridge payload: %v", received)
	}
}
