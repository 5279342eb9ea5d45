package apihandlers

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	mw "github.com/case-framework/enrollment-backend/pkg/apihelpers/middlewares"
)

func (h *HttpEndpoints) AddRoutes(rg *gin.RouterGroup) {
	v1 := rg.Group("/v1")

	v1.POST("/messages/send",
		mw.HasValidAPIKey(h.apiKeys),
		h.sendMessage)
}

type SendMessageReq struct {
	InstanceID string `json:"instanceID"`
	Channel    string `json:"channel"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Content    string `json:"content"`
}

// sendMessage writes the message into a per recipient folder instead of
// delivering it, so local clients can inspect what would have been sent.
func (h *HttpEndpoints) sendMessage(c *gin.Context) {
	var req SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.To == "" {
		slog.Error("missing 'to' field")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'to' field"})
		return
	}

	if err := h.saveMessageToFile(req); err != nil {
		slog.Error("message could not be saved", slog.String("to", req.To), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "message could not be saved"})
		return
	}

	slog.Info("message saved", slog.String("channel", req.Channel), slog.String("to", req.To))
	c.JSON(http.StatusOK, gin.H{"message": "message saved"})
}

func (h *HttpEndpoints) saveMessageToFile(message SendMessageReq) error {
	folderPath := filepath.Join(h.messagesDir, sanitizeForFilename(message.To))
	if err := os.MkdirAll(folderPath, os.ModePerm); err != nil {
		return err
	}

	filePath, err := uniqueMessageFilePath(folderPath, message.Channel, message.Subject)
	if err != nil {
		return err
	}

	return os.WriteFile(filePath, []byte(message.Content), 0644)
}

// uniqueMessageFilePath appends a counter when the generated name collides
// with an earlier message in the same second.
func uniqueMessageFilePath(folderPath string, channel string, subject string) (string, error) {
	ext := ".txt"
	if channel == "email" {
		ext = ".html"
	}

	name := sanitizeForFilename(subject)
	if len(name) > 10 {
		name = name[:10]
	}
	baseName := time.Now().Format("20060102_150405") + "_" + name

	filePath := filepath.Join(folderPath, baseName+ext)
	counter := 1
	for {
		if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
			break
		}
		filePath = filepath.Join(folderPath, baseName+"_"+strconv.Itoa(counter)+ext)
		counter++
	}
	return filePath, nil
}

func sanitizeForFilename(value string) string {
	invalidChars := regexp.MustCompile(`[\/\\:?"<>|+ ]`)
	return invalidChars.ReplaceAllString(value, "_")
}
