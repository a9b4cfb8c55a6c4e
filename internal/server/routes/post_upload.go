package routes

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/graphrag-chat/backend/internal/server/middleware"
	"github.com/graphrag-chat/backend/internal/storage"
	"github.com/graphrag-chat/backend/pkg/loader"
	"github.com/graphrag-chat/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

type uploadResponse struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

var allowedExtensions = map[string]bool{"txt": true, "docx": true}

// UploadHandler stores a .txt or .docx file and schedules its indexing. A
// .docx file is stored as the .txt file of the same base name.
func UploadHandler(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No file uploaded"})
	}

	name, err := storage.CleanName(file.Filename)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid file name"})
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !allowedExtensions[ext] {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Unsupported file type"})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Failed to read upload"})
	}
	defer src.Close()

	var body io.Reader = src
	stored := name
	if ext == "docx" {
		content, err := io.ReadAll(src)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Failed to read upload"})
		}
		text, err := loader.DocxToText(content)
		if err != nil {
			logger.Warn("[Upload] Invalid docx", "file", name, "err", err)
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid docx file"})
		}
		stored = strings.TrimSuffix(name, filepath.Ext(name)) + ".txt"
		body = bytes.NewBufferString(text)
	}

	a := middleware.GetApp(c)
	ctx := c.Request().Context()

	size, err := a.Files.Put(ctx, stored, body)
	if err != nil {
		logger.Error("[Upload] Failed to store file", "file", stored, "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to save file"})
	}

	if err := a.HandleUpload(ctx, stored); err != nil {
		logger.Error("[Upload] Failed to index file", "file", stored, "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to index file"})
	}

	logger.Info("[Upload] Stored file", "file", stored, "size", size)
	return c.JSON(http.StatusOK, uploadResponse{Filename: file.Filename, Size: size})
}
