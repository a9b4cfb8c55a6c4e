package util

import (
	"encoding/json"
	"net/http"

	"github.com/graphrag-chat/backend/pkg/ai"

	"github.com/labstack/echo/v4"
)

type streamError struct {
	Error string `json:"error"`
	Done  bool   `json:"done"`
}

// StreamText writes content fragments as raw text and flushes after each
// one. A stream error ends the body with a JSON error object. The returned
// string is the text that was written.
func StreamText(c echo.Context, events <-chan ai.StreamEvent) (string, error) {
	StartStream(c)
	res := c.Response()

	var written []byte
	for ev := range events {
		if ev.Type == ai.StreamEventError {
			return string(written), WriteStreamError(c, ev.Err)
		}
		if ev.Content == "" {
			continue
		}
		if _, err := res.Write([]byte(ev.Content)); err != nil {
			return string(written), err
		}
		written = append(written, ev.Content...)
		res.Flush()
	}
	return string(written), nil
}

// StartStream commits the streaming headers. Errors after this point can
// only be reported inside the body.
func StartStream(c echo.Context) {
	res := c.Response()
	if res.Committed {
		return
	}
	res.Header().Set(echo.HeaderContentType, "text/event-stream; charset=utf-8")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()
}

// WriteStreamError appends {"error": ..., "done": true} to a started stream.
func WriteStreamError(c echo.Context, err error) error {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	data, mErr := json.Marshal(streamError{Error: msg, Done: true})
	if mErr != nil {
		return mErr
	}
	if _, wErr := c.Response().Write(data); wErr != nil {
		return wErr
	}
	c.Response().Flush()
	return nil
}
