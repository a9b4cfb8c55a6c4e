package routes

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/graphrag-chat/backend/internal/server/middleware"
	"github.com/graphrag-chat/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

type knowledgeFile struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

type knowledgeBaseResponse struct {
	Files []knowledgeFile `json:"files"`
}

// GetKnowledgeBaseHandler lists the stored .txt files with their size in KB.
func GetKnowledgeBaseHandler(c echo.Context) error {
	a := middleware.GetApp(c)

	stored, err := a.Files.List(c.Request().Context())
	if err != nil {
		logger.Error("[KnowledgeBase] Failed to list files", "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to read knowledge base"})
	}

	files := make([]knowledgeFile, 0, len(stored))
	for _, f := range stored {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".txt") {
			continue
		}
		files = append(files, knowledgeFile{
			Name: f.Name,
			Size: fmt.Sprintf("%.2f KB", float64(f.Size)/1024),
		})
	}
	return c.JSON(http.StatusOK, knowledgeBaseResponse{Files: files})
}
