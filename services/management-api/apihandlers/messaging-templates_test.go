package apihandlers

import (
	"net/http"
	"testing"

	"github.com/case-framework/enrollment-backend/pkg/notifications"
)

func TestSaveMessageTemplateCriteriaValidation(t *testing.T) {
	h := &HttpEndpoints{}

	t.Run("overlapping group sets are rejected", func(t *testing.T) {
		bad := overlappingCriteria()
		template := notifications.MessageTemplate{
			MessageType: notifications.MESSAGE_TYPE_REGISTRATION,
			Criteria:    &bad,
		}
		c, w := newManagementTestContext(t, template, nil)
		h.saveMessageTemplate(c)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}
