package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graphrag-chat/backend/internal/app"
	"github.com/graphrag-chat/backend/internal/app/apptest"
	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/ai/aitest"

	"github.com/labstack/echo/v4"
)

func newTestServer(t *testing.T, client *aitest.Client) (*echo.Echo, *app.App) {
	t.Helper()
	a, _ := apptest.New(t, client, apptest.Config(t))
	return New(a), a
}

func do(e *echo.Echo, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func postJSON(e *echo.Echo, target string, payload any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(payload)
	return do(e, http.MethodPost, target, bytes.NewBuffer(data), echo.MIMEApplicationJSON)
}

func upload(t *testing.T, e *echo.Echo, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(content)
	_ = w.Close()
	return do(e, http.MethodPost, "/api/upload", &buf, w.FormDataContentType())
}

func buildDocx(t *testing.T, paragraph string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>` + paragraph + `</w:t></w:r></w:p>` +
		`</w:body></w:document>`))
	_ = zw.Close()
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t, apptest.FactClient())
	rec := do(e, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestProcessWithoutRAG(t *testing.T) {
	client := apptest.FactClient()
	e, _ := newTestServer(t, client)

	rec := postJSON(e, "/api/process", map[string]any{
		"messages": []map[string]string{
			{"type": "system", "text": "you are helpful"},
			{"type": "user", "text": "hi"},
			{"type": "ai", "text": "hello"},
			{"type": "user", "text": "who are you?"},
			{"type": "bot", "text": ""},
		},
		"useRAG": false,
		"useMCP": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/event-stream") {
		t.Fatalf("content type = %s", rec.Header().Get(echo.HeaderContentType))
	}
	if rec.Body.String() != apptest.Answer {
		t.Fatalf("body = %q", rec.Body.String())
	}

	msgs := client.Messages()[0]
	if len(msgs) != 4 || msgs[0].Role != ai.RoleSystem || msgs[2].Role != ai.RoleAssistant || msgs[3].Message != "who are you?" {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestUploadAndAskWithRAG(t *testing.T) {
	client := apptest.FactClient()
	e, _ := newTestServer(t, client)

	rec := upload(t, e, "facts.txt", []byte("Alice|WORKS_AT|Acme"))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload = %d %s", rec.Code, rec.Body.String())
	}
	var up struct {
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &up)
	if up.Filename != "facts.txt" || up.Size != 19 {
		t.Fatalf("upload response = %+v", up)
	}

	rec = postJSON(e, "/api/process", map[string]any{
		"messages": []map[string]string{{"type": "user", "text": "Who employs Alice?"}},
		"useRAG":   true,
	})
	if rec.Code != http.StatusOK || rec.Body.String() != apptest.Answer {
		t.Fatalf("process = %d %q", rec.Code, rec.Body.String())
	}

	msgs := client.Messages()
	prompt := msgs[len(msgs)-1][0].Message
	if !strings.Contains(prompt, "#Document Alice|WORKS_AT|Acme") || !strings.Contains(prompt, "问题：Who employs Alice?") {
		t.Fatalf("answer prompt = %q", prompt)
	}
}

func TestProcessStreamError(t *testing.T) {
	client := aitest.New()
	client.ChatFunc = func(context.Context, []ai.ChatMessage, ai.GenerateOptions) (string, error) {
		return "partial", errors.New("model overloaded")
	}
	e, _ := newTestServer(t, client)

	rec := postJSON(e, "/api/process", map[string]any{
		"messages": []map[string]string{{"type": "user", "text": "q"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := `partial{"error":"model overloaded","done":true}`
	if rec.Body.String() != want {
		t.Fatalf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestProcessRejectsBadRequests(t *testing.T) {
	e, _ := newTestServer(t, apptest.FactClient())

	tests := []struct {
		name    string
		payload any
	}{
		{"no messages", map[string]any{"messages": []any{}}},
		{"missing type", map[string]any{"messages": []map[string]string{{"text": "q"}}}},
		{"no user message", map[string]any{"messages": []map[string]string{{"type": "assistant", "text": "a"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postJSON(e, "/api/process", tt.payload); rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
		})
	}

	rec := do(e, http.MethodPost, "/api/process", bytes.NewBufferString("{"), echo.MIMEApplicationJSON)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid json status = %d", rec.Code)
	}
}

func TestUploadRejectsUnsupportedTypes(t *testing.T) {
	e, _ := newTestServer(t, apptest.FactClient())
	if rec := upload(t, e, "slides.pdf", []byte("%PDF")); rec.Code != http.StatusBadRequest {
		t.Fatalf("pdf upload = %d", rec.Code)
	}
	if rec := upload(t, e, "broken.docx", []byte("not a zip")); rec.Code != http.StatusBadRequest {
		t.Fatalf("broken docx upload = %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/upload", nil, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing file = %d", rec.Code)
	}
}

func TestUploadDocxAndListAndDelete(t *testing.T) {
	e, a := newTestServer(t, apptest.FactClient())

	rec := upload(t, e, "report.docx", buildDocx(t, "Bob|FOUNDED|Initech"))
	if rec.Code != http.StatusOK {
		t.Fatalf("docx upload = %d %s", rec.Code, rec.Body.String())
	}
	if ok, _ := a.Files.Exists(context.Background(), "report.txt"); !ok {
		t.Fatal("docx not stored as report.txt")
	}
	_ = upload(t, e, "facts.txt", []byte("Alice|WORKS_AT|Acme"))

	rec = do(e, http.MethodGet, "/api/knowledge-base", nil, "")
	var list struct {
		Files []struct {
			Name string `json:"name"`
			Size string `json:"size"`
		} `json:"files"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("list body %s: %v", rec.Body.String(), err)
	}
	if len(list.Files) != 2 || list.Files[0].Name != "facts.txt" || list.Files[0].Size != "0.02 KB" || list.Files[1].Name != "report.txt" {
		t.Fatalf("files = %+v", list.Files)
	}

	rec = do(e, http.MethodDelete, "/api/knowledge-base/facts.txt", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d %s", rec.Code, rec.Body.String())
	}
	if sources, _ := a.Vector.Sources(context.Background()); len(sources) != 1 || sources[0] != "report.txt" {
		t.Fatalf("vector sources = %v", sources)
	}

	rec = do(e, http.MethodDelete, "/api/knowledge-base/facts.txt", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d", rec.Code)
	}
}

func TestEmptyKnowledgeBase(t *testing.T) {
	e, _ := newTestServer(t, apptest.FactClient())
	rec := do(e, http.MethodGet, "/api/knowledge-base", nil, "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"files":[]}` {
		t.Fatalf("list = %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	e, a := newTestServer(t, apptest.FactClient())
	a.Recorder.Duplicate()

	rec := do(e, http.MethodGet, "/metrics", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "rag_ingest_duplicates_total 1") {
		t.Fatalf("metrics = %d %s", rec.Code, rec.Body.String())
	}
}
