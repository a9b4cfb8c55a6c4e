package routes

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/graphrag-chat/backend/internal/server/middleware"
	"github.com/graphrag-chat/backend/internal/storage"
	"github.com/graphrag-chat/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DeleteKnowledgeFileHandler removes a stored file, its chunks and its graph
// documents.
func DeleteKnowledgeFileHandler(c echo.Context) error {
	name := c.Param("filename")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if _, err := storage.CleanName(name); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid file name"})
	}

	a := middleware.GetApp(c)
	err := a.HandleDelete(c.Request().Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "File not found"})
	}
	if err != nil {
		logger.Error("[KnowledgeBase] Failed to delete file", "file", name, "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to delete file"})
	}

	logger.Info("[KnowledgeBase] Deleted file", "file", name)
	return c.JSON(http.StatusOK, messageResponse{Message: "File deleted"})
}
