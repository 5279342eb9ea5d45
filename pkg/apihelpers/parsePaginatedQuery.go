package apihelpers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

type CursorQuery struct {
	PageSize int64
	Cursor   string
}

func ParseCursorQueryFromCtx(c *gin.Context) (*CursorQuery, error) {
	pageSize, err := strconv.ParseInt(c.DefaultQuery("pageSize", "20"), 10, 64)
	if err != nil {
		return nil, err
	}

	return &CursorQuery{
		PageSize: pageSize,
		Cursor:   c.DefaultQuery("cursor", ""),
	}, nil
}
