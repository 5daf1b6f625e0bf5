package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"datachat/ai"
	"datachat/db"
	"datachat/models"
	"datachat/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0}

const salesCSV = "region,product,sales\nNorth,Widget,10\nSouth,Gadget,20\nEast,Widget,30\n"

type stubAssistant struct {
	imageReply string
	imageErr   error
	chartReply string
	chartErr   error

	mu        sync.Mutex
	chartData []string
}

func (s *stubAssistant) GenerateChartCode(ctx context.Context, apiKey string, spec ai.ChartSpec) (string, error) {
	s.mu.Lock()
	s.chartData = append(s.chartData, string(spec.Data))
	s.mu.Unlock()
	if s.chartErr != nil {
		return "", s.chartErr
	}
	return s.chartReply + "\n```python\nplot_" + spec.ChartType + "()\n```", nil
}

func (s *stubAssistant) AnalyzeImage(ctx context.Context, apiKey, prompt, imageBase64 string) (string, error) {
	return s.imageReply, s.imageErr
}

func (s *stubAssistant) GenerateQAPairs(ctx context.Context, apiKey, tableMarkdown string, n int) ([]models.QAPair, error) {
	return []models.QAPair{{Question: "What is the region?", Answer: "North"}}, nil
}

func (s *stubAssistant) Chat(ctx context.Context, apiKey, model string, messages []ai.ChatMessage) (string, error) {
	return "Here is what I found.", nil
}

func (s *stubAssistant) ChatModel() string { return "test-model" }

// closeNotifyingRecorder lets c.Stream run under httptest.
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newRecorder() *closeNotifyingRecorder {
	return &closeNotifyingRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool { return r.closed }

type testServer struct {
	router    *gin.Engine
	assistant *stubAssistant
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := db.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	exports, err := service.NewExportStorage(t.TempDir())
	require.NoError(t, err)

	assistant := &stubAssistant{imageReply: `{"qa_pairs":[]}`}
	charts := service.NewChartGenerator(assistant, service.NewRunRegistry(), nil).WithChunking(2, 0)
	chat := service.NewChatService(store, assistant, charts, exports, nil, nil)
	h := New(store, assistant, chat, nil, Options{})
	return &testServer{router: NewRouter(h, RouterConfig{}), assistant: assistant}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *closeNotifyingRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := newRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) sendMessage(t *testing.T, sessionID, prompt, filename string, data []byte) *closeNotifyingRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if prompt != "" {
		require.NoError(t, mw.WriteField("prompt", prompt))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/messages", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := newRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *closeNotifyingRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createSessionWithCSV(t *testing.T) (sessionID, messageID string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/sessions", models.CreateSessionRequest{})
	require.Equal(t, http.StatusCreated, rec.Code)
	sess := decode[models.ChatSession](t, rec)

	rec = s.sendMessage(t, sess.ID, "", "sales.csv", []byte(salesCSV))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[models.SendMessageResponse](t, rec)
	return sess.ID, resp.AIMessage.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]string](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "needs_request_key", body["ai_service"])
	assert.Equal(t, "not_configured", body["sql_server"])
}

func TestImageUnderstanding(t *testing.T) {
	s := newTestServer(t)
	img := base64.StdEncoding.EncodeToString(pngHeader)

	rec := s.do(t, http.MethodPost, "/api/aya-understanding", models.ImageUnderstandingRequest{ImageBase64: img})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"qa_pairs":[]}`, decode[models.ImageUnderstandingResponse](t, rec).Response)

	rec = s.do(t, http.MethodPost, "/api/aya-understanding", `{"prompt": "hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to process request", decode[map[string]string](t, rec)["error"])

	s.assistant.imageErr = ai.ErrQAPairsExhausted
	rec = s.do(t, http.MethodPost, "/api/aya-understanding", models.ImageUnderstandingRequest{ImageBase64: img})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to process request", decode[map[string]string](t, rec)["error"])
}

func TestGenerateChart(t *testing.T) {
	s := newTestServer(t)
	req := `{"data":[{"sales":10,"region":"North","active":true}],"prompt":"compare","chartType":"bar","chartSize":5}`

	rec := s.do(t, http.MethodPost, "/api/generate-chart", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[models.GenerateChartResponse](t, rec)
	assert.Equal(t, "plot_bar()", resp.Code)
	assert.Equal(t, "", resp.Image)
	assert.Equal(t, []string{`[{"sales":10,"region":"North","active":true}]`}, s.assistant.chartData)

	s.assistant.chartErr = errors.New("boom")
	rec = s.do(t, http.MethodPost, "/api/generate-chart", req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to generate chart", decode[map[string]string](t, rec)["error"])
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/sessions", models.CreateSessionRequest{Title: "Sales"})
	require.Equal(t, http.StatusCreated, rec.Code)
	sess := decode[models.ChatSession](t, rec)
	assert.Equal(t, "Sales", sess.Title)

	rec = s.sendMessage(t, sess.ID, "Show me sales by region", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	msg := decode[models.SendMessageResponse](t, rec)
	assert.Equal(t, "Here is what I found.", msg.AIMessage.Analysis)

	rec = s.sendMessage(t, sess.ID, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.sendMessage(t, sess.ID, "", "report.pdf", []byte("%PDF-1.7\n"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/sessions/"+sess.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Message](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ChatSession](t, rec), 1)

	rec = s.do(t, http.MethodDelete, "/api/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/sessions/"+sess.ID+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDatasetSelection(t *testing.T) {
	s := newTestServer(t)
	_, mid := s.createSessionWithCSV(t)

	rec := s.do(t, http.MethodGet, "/api/messages/"+mid+"/dataset?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[models.DatasetView](t, rec)
	assert.Len(t, view.Rows, 1)
	assert.Equal(t, 3, view.TotalRows)

	rec = s.do(t, http.MethodPut, "/api/messages/"+mid+"/selection", models.SelectionRequest{Rows: []int{0, 1}, Columns: []string{"region", "sales"}})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[models.DatasetView](t, rec)
	assert.Len(t, view.Selected, 2)

	rec = s.do(t, http.MethodPut, "/api/messages/"+mid+"/selection", models.SelectionRequest{Rows: []int{7}, Columns: []string{"region"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/messages/"+mid+"/selection/toggle", `{"column": "sales"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/messages/"+mid+"/selection/toggle", `{"column": "region"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "You must select at least 1 column(s).", decode[map[string]string](t, rec)["error"])

	rec = s.do(t, http.MethodGet, "/api/messages/unknown/dataset", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/messages/"+mid+"/qa-pairs", `{"count": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[models.QAPairsResponse](t, rec).QAPairs, 1)

	rec = s.do(t, http.MethodPost, "/api/messages/"+mid+"/qa-pairs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/messages/"+mid+"/qa-pairs", `{"count": "many"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request", decode[map[string]string](t, rec)["error"])
}

func TestChartsJSONAndExport(t *testing.T) {
	s := newTestServer(t)
	_, mid := s.createSessionWithCSV(t)

	rec := s.do(t, http.MethodPost, "/api/messages/"+mid+"/charts", models.GenerateChartsRequest{ChartSize: 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "you must select at least one chart type", decode[map[string]string](t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/api/messages/"+mid+"/charts", models.GenerateChartsRequest{ChartTypes: []string{"bar"}, ChartSize: 1, Count: 500})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.assistant.chartData)

	rec = s.do(t, http.MethodPost, "/api/messages/"+mid+"/charts", models.GenerateChartsRequest{ChartTypes: []string{"bar", "pie"}, ChartSize: 3})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.GenerateChartsResponse](t, rec)
	require.Len(t, resp.Charts, 3)
	assert.Equal(t, "plot_pie()", resp.Charts[1].Code)

	rec = s.do(t, http.MethodGet, "/api/messages/"+mid+"/charts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ChartResult](t, rec), 3)

	img := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
	rec = s.do(t, http.MethodPut, "/api/messages/"+mid+"/charts/0/image", models.ChartImageRequest{Image: img})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, img, decode[models.ChartResult](t, rec).Image)

	rec = s.do(t, http.MethodPut, "/api/messages/"+mid+"/charts/x/image", models.ChartImageRequest{Image: img})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/messages/"+mid+"/charts/8/image", models.ChartImageRequest{Image: img})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/messages/"+mid+"/charts/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"cancelled": false}, decode[map[string]bool](t, rec))

	rec = s.do(t, http.MethodPost, "/api/messages/"+mid+"/charts/export", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	info := decode[models.ExportFileInfo](t, rec)
	assert.Equal(t, 3, info.Charts)

	rec = s.do(t, http.MethodGet, "/api/exports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	files := decode[map[string][]models.ExportFileInfo](t, rec)["files"]
	require.Len(t, files, 1)

	rec = s.do(t, http.MethodGet, "/api/exports/"+info.Filename, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), info.Filename)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = s.do(t, http.MethodGet, "/api/exports/missing.zip", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/exports/notes.txt", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChartsStream(t *testing.T) {
	s := newTestServer(t)
	_, mid := s.createSessionWithCSV(t)

	data, err := json.Marshal(models.GenerateChartsRequest{ChartTypes: []string{"line"}, ChartSize: 3})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/messages/"+mid+"/charts", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	rec := newRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event:chunk"))
	assert.Equal(t, 1, strings.Count(body, "event:done"))
	assert.NotContains(t, body, "event:error")
}

func TestChartsStreamReportsErrors(t *testing.T) {
	s := newTestServer(t)
	_, mid := s.createSessionWithCSV(t)
	s.assistant.chartErr = ai.ErrMissingAPIKey

	data, err := json.Marshal(models.GenerateChartsRequest{ChartTypes: []string{"bar"}, ChartSize: 2})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/messages/"+mid+"/charts", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	rec := newRecorder()
	s.router.ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "event:error")
	assert.Contains(t, body, ai.ErrMissingAPIKey.Error())
}

func TestImportSQLWithoutServer(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/datasets/sql", models.SQLDatasetRequest{SessionID: "x", Query: "SELECT 1"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/datasets/sql", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoutes(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode[map[string]string](t, rec)["error"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := newRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
