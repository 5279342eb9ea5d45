package apihelpers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParseAcceptLanguages(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newCtx := func(header string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/", nil)
		if header != "" {
			c.Request.Header.Set("Accept-Language", header)
		}
		return c
	}

	t.Run("missing header", func(t *testing.T) {
		langs := ParseAcceptLanguages(newCtx(""))
		if len(langs) != 0 {
			t.Errorf("unexpected languages: %v", langs)
		}
	})

	t.Run("ordered by quality", func(t *testing.T) {
		langs := ParseAcceptLanguages(newCtx("fr;q=0.9, en, de;q=0.5"))
		if len(langs) != 3 || langs[0] != "en" || langs[1] != "fr" || langs[2] != "de" {
			t.Errorf("unexpected languages: %v", langs)
		}
	})

	t.Run("region subtags reduced to base", func(t *testing.T) {
		langs := ParseAcceptLanguages(newCtx("en-US, nl-BE;q=0.8"))
		if len(langs) != 2 || langs[0] != "en" || langs[1] != "nl" {
			t.Errorf("unexpected languages: %v", langs)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		langs := ParseAcceptLanguages(newCtx(";;;"))
		if len(langs) != 0 {
			t.Errorf("unexpected languages: %v", langs)
		}
	})
}
