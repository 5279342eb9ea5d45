package apihelpers

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// ParseAcceptLanguages reads the Accept-Language header and returns the
// language tags ordered by preference. Malformed headers yield an empty list.
func ParseAcceptLanguages(c *gin.Context) []string {
	header := c.GetHeader("Accept-Language")
	if header == "" {
		return nil
	}

	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		slog.Debug("could not parse Accept-Language header", slog.String("value", header), slog.String("error", err.Error()))
		return nil
	}

	langs := make([]string, 0, len(tags))
	for _, t := range tags {
		base, conf := t.Base()
		if conf == language.No {
			continue
		}
		langs = append(langs, base.String())
	}
	return langs
}
