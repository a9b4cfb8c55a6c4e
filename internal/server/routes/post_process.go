package routes

import (
	"errors"
	"net/http"

	"github.com/graphrag-chat/backend/internal/app"
	"github.com/graphrag-chat/backend/internal/server/middleware"
	"github.com/graphrag-chat/backend/internal/server/util"
	"github.com/graphrag-chat/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

type processRequest struct {
	Messages []util.Message `json:"messages" validate:"required,min=1,dive"`
	UseRAG   bool           `json:"useRAG"`
	// UseMCP is accepted for client compatibility and ignored.
	UseMCP bool `json:"useMCP"`
}

// ProcessHandler streams the answer to the last user message.
func ProcessHandler(c echo.Context) error {
	data := new(processRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
	}

	conv, err := util.ParseConversation(data.Messages)
	if errors.Is(err, util.ErrNoQuestion) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
	}

	a := middleware.GetApp(c)
	ctx := c.Request().Context()
	logger.Debug("[Chat] Request", "rag", data.UseRAG, "history", len(conv.History))

	events, _, err := a.StreamAnswer(ctx, app.ChatRequest{
		System:   conv.System,
		History:  conv.History,
		Question: conv.Question,
		UseRAG:   data.UseRAG,
	})
	if err != nil {
		logger.Error("[Chat] Failed to start answer stream", "err", err)
		util.StartStream(c)
		return util.WriteStreamError(c, err)
	}

	if _, err := util.StreamText(c, events); err != nil {
		logger.Error("[Chat] Failed to write answer stream", "err", err)
	}
	return nil
}
