package apihandlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/case-framework/enrollment-backend/pkg/criteria"
	jwthandling "github.com/case-framework/enrollment-backend/pkg/jwt-handling"
)

func newManagementTestContext(t *testing.T, payload interface{}, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	c.Request = httptest.NewRequest("POST", "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	c.Set("validatedToken", &jwthandling.ManagementUserClaims{InstanceID: "default"})
	return c, w
}

func overlappingCriteria() criteria.Criteria {
	return criteria.Criteria{
		AllOfGroups:  []string{"groupA"},
		NoneOfGroups: []string{"groupA"},
	}
}

func TestCreateSubpopulationCriteriaValidation(t *testing.T) {
	h := &HttpEndpoints{}

	t.Run("overlapping group sets are rejected", func(t *testing.T) {
		req := CreateSubpopulationReq{
			Name:     "adults",
			Criteria: overlappingCriteria(),
		}
		c, w := newManagementTestContext(t, req, gin.Params{{Key: "studyKey", Value: "main"}})
		h.createSubpopulation(c)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}

func TestAppConfigCriteriaValidation(t *testing.T) {
	h := &HttpEndpoints{}
	bad := overlappingCriteria()

	t.Run("create rejects overlapping group sets", func(t *testing.T) {
		req := AppConfigReq{
			Label:    "default config",
			Criteria: &bad,
		}
		c, w := newManagementTestContext(t, req, gin.Params{{Key: "studyKey", Value: "main"}})
		h.createAppConfig(c)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("update rejects overlapping group sets", func(t *testing.T) {
		req := AppConfigReq{
			Label:    "default config",
			Criteria: &bad,
		}
		c, w := newManagementTestContext(t, req, gin.Params{
			{Key: "studyKey", Value: "main"},
			{Key: "appConfigGUID", Value: "cfg-1"},
		})
		h.updateAppConfig(c)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}
