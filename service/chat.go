package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"datachat/ai"
	"datachat/dataset"
	"datachat/db"
	"datachat/logger"
	"datachat/models"
	"datachat/validation"

	"github.com/google/uuid"
)

var (
	ErrEmptyMessage  = errors.New("a message needs a prompt or a file")
	ErrInvalidPrompt = errors.New("prompt does not look like a meaningful request")
	ErrEmptyToggle   = errors.New("toggle needs a row or a column")
)

const (
	defaultSessionTitle = "New Chat"
	defaultQAPairs      = 5
	titleMaxRunes       = 40
)

// Assistant is the subset of the model client the chat flow needs.
type Assistant interface {
	ChartCoder
	AnalyzeImage(ctx context.Context, apiKey, prompt, imageBase64 string) (string, error)
	GenerateQAPairs(ctx context.Context, apiKey, tableMarkdown string, n int) ([]models.QAPair, error)
	Chat(ctx context.Context, apiKey, model string, messages []ai.ChatMessage) (string, error)
	ChatModel() string
}

// Upload is a file attached to a chat message.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

type SendMessageInput struct {
	SessionID string
	Prompt    string
	APIKey    string
	File      *Upload
}

type ChatService struct {
	store     *db.DB
	assistant Assistant
	charts    *ChartGenerator
	evaluator *Evaluator
	exports   *ExportStorage
	sql       *SQLServerService
	log       logger.Logger
}

func NewChatService(store *db.DB, assistant Assistant, charts *ChartGenerator, exports *ExportStorage, sql *SQLServerService, log logger.Logger) *ChatService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ChatService{
		store:     store,
		assistant: assistant,
		charts:    charts,
		evaluator: NewEvaluator(),
		exports:   exports,
		sql:       sql,
		log:       log,
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *ChatService) CreateSession(title string) (*models.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultSessionTitle
	}
	now := timestamp(time.Now())
	session := &models.ChatSession{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveSession(session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

func (s *ChatService) ListSessions() ([]models.ChatSession, error) {
	return s.store.ListSessions()
}

func (s *ChatService) DeleteSession(id string) error {
	return s.store.DeleteSession(id)
}

func (s *ChatService) ListMessages(sessionID string) ([]models.Message, error) {
	if _, err := s.store.GetSession(sessionID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(sessionID)
}

// touchSession bumps UpdatedAt and names an untitled session after its
// first message.
func (s *ChatService) touchSession(session *models.ChatSession, hint string) {
	if session.Title == defaultSessionTitle && strings.TrimSpace(hint) != "" {
		session.Title = truncateRunes(strings.TrimSpace(hint), titleMaxRunes)
	}
	session.UpdatedAt = timestamp(time.Now())
	if err := s.store.SaveSession(session); err != nil {
		s.log.Warn("CHAT", "failed to update session", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// SendMessage stores the user message and the AI message that answers it.
// CSV uploads become a dataset with the default selection, images are
// analysed by the vision model and text-only prompts get a chat reply.
// Model failures are recorded on the AI message rather than returned.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.SendMessageResponse, error) {
	session, err := s.store.GetSession(in.SessionID)
	if err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(in.Prompt)
	hasFile := in.File != nil && len(in.File.Data) > 0
	if prompt == "" && !hasFile {
		return nil, ErrEmptyMessage
	}
	if !hasFile && !validation.IsValidPrompt(prompt) {
		return nil, ErrInvalidPrompt
	}

	kind := models.FileKindNone
	mime := ""
	if hasFile {
		head := in.File.Data
		if len(head) > 3072 {
			head = head[:3072]
		}
		kind, mime, err = validation.DetectFileKind(in.File.Name, in.File.ContentType, head)
		if err != nil {
			return nil, err
		}
	}

	userTime := time.Now()
	user := models.Message{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Type:      models.MessageTypeUser,
		Prompt:    prompt,
		FileKind:  kind,
		MimeType:  mime,
		CreatedAt: timestamp(userTime),
	}
	if hasFile {
		user.FileName = in.File.Name
	}
	if err := s.store.SaveMessage(&user); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	reply := models.Message{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Type:      models.MessageTypeAI,
		Prompt:    prompt,
		FileKind:  kind,
		FileName:  user.FileName,
		MimeType:  mime,
		ReplyTo:   user.ID,
	}
	resp := &models.SendMessageResponse{}

	switch kind {
	case models.FileKindCSV:
		view, err := s.storeCSV(reply.ID, in.File.Data)
		if err != nil {
			reply.Error = err.Error()
		} else {
			resp.Dataset = view
		}
	case models.FileKindImage:
		imagePrompt := prompt
		if imagePrompt == "" {
			imagePrompt = ai.DefaultImagePrompt
		}
		encoded := base64.StdEncoding.EncodeToString(in.File.Data)
		analysis, err := s.assistant.AnalyzeImage(ctx, in.APIKey, imagePrompt, encoded)
		if err != nil {
			s.log.Error("CHAT", "image analysis failed", map[string]interface{}{
				"message_id": reply.ID,
				"error":      err,
			})
			reply.Error = userFacingError(err, "Failed to analyze image")
		} else {
			reply.Analysis = analysis
		}
	default:
		answer, err := s.assistant.Chat(ctx, in.APIKey, s.assistant.ChatModel(), []ai.ChatMessage{
			{Role: "user", Content: prompt},
		})
		if err != nil {
			s.log.Error("CHAT", "chat reply failed", map[string]interface{}{
				"message_id": reply.ID,
				"error":      err,
			})
			reply.Error = userFacingError(err, "Failed to process request")
		} else {
			reply.Analysis = strings.TrimSpace(answer)
		}
	}

	replyTime := time.Now()
	if !replyTime.After(userTime) {
		replyTime = userTime.Add(time.Microsecond)
	}
	reply.CreatedAt = timestamp(replyTime)
	if err := s.store.SaveMessage(&reply); err != nil {
		return nil, fmt.Errorf("save reply: %w", err)
	}

	hint := prompt
	if hint == "" {
		hint = user.FileName
	}
	s.touchSession(session, hint)

	resp.UserMessage = user
	resp.AIMessage = reply
	return resp, nil
}

// userFacingError keeps the missing-key message visible and hides the rest.
func userFacingError(err error, fallback string) string {
	if errors.Is(err, ai.ErrMissingAPIKey) {
		return "Cohere API key not found"
	}
	return fallback
}

func (s *ChatService) storeCSV(messageID string, data []byte) (*models.DatasetView, error) {
	ds, err := dataset.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	rec := &db.DatasetRecord{Dataset: ds, Selection: dataset.DefaultSelection(ds)}
	if err := s.store.SaveDataset(messageID, rec); err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	return DatasetViewOf(rec, 0), nil
}

// DatasetViewOf renders a stored dataset; limit > 0 caps the rows returned.
func DatasetViewOf(rec *db.DatasetRecord, limit int) *models.DatasetView {
	sel := rec.Selection
	if sel == nil {
		sel = dataset.DefaultSelection(rec.Dataset)
	}
	rows := rec.Dataset.Rows
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return &models.DatasetView{
		Headers:   rec.Dataset.Headers,
		Rows:      rows,
		TotalRows: rec.Dataset.Len(),
		Selection: models.SelectionView{Rows: sel.Rows, Columns: sel.Columns},
		Selected:  rec.Dataset.Project(sel),
	}
}

func (s *ChatService) Dataset(messageID string, limit int) (*models.DatasetView, error) {
	rec, err := s.store.GetDataset(messageID)
	if err != nil {
		return nil, err
	}
	return DatasetViewOf(rec, limit), nil
}

func (s *ChatService) SetSelection(messageID string, rows []int, columns []string) (*models.DatasetView, error) {
	rec, err := s.store.UpdateSelection(messageID, func(ds *dataset.Dataset, sel *dataset.Selection) error {
		return sel.Set(ds, rows, columns)
	})
	if err != nil {
		return nil, err
	}
	return DatasetViewOf(rec, 0), nil
}

func (s *ChatService) ToggleSelection(messageID string, req models.ToggleRequest) (*models.DatasetView, error) {
	if req.Row == nil && req.Column == "" {
		return nil, ErrEmptyToggle
	}
	rec, err := s.store.UpdateSelection(messageID, func(ds *dataset.Dataset, sel *dataset.Selection) error {
		if req.Row != nil {
			return sel.ToggleRow(ds, *req.Row)
		}
		return sel.ToggleColumn(ds, req.Column)
	})
	if err != nil {
		return nil, err
	}
	return DatasetViewOf(rec, 0), nil
}

// selected returns the selected slice as its own dataset, columns in
// selection order.
func (s *ChatService) selected(messageID string) (*dataset.Dataset, error) {
	rec, err := s.store.GetDataset(messageID)
	if err != nil {
		return nil, err
	}
	sel := rec.Selection
	if sel == nil {
		sel = dataset.DefaultSelection(rec.Dataset)
	}
	if sel.Empty() {
		return nil, dataset.ErrEmptySelection
	}
	return &dataset.Dataset{Headers: sel.Columns, Rows: rec.Dataset.Project(sel)}, nil
}

// GenerateQAPairs asks for question-answer pairs about the selected slice,
// stores them and scores them.
func (s *ChatService) GenerateQAPairs(ctx context.Context, messageID string, req models.QAPairsRequest) (*models.QAPairsResponse, error) {
	slice, err := s.selected(messageID)
	if err != nil {
		return nil, err
	}
	n := req.Count
	if n <= 0 {
		n = defaultQAPairs
	}
	batch := req.BatchSize
	if batch <= 0 || batch > slice.Len() {
		batch = slice.Len()
	}

	pairs, err := s.assistant.GenerateQAPairs(ctx, req.APIKey, slice.Markdown(batch), n)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveQAPairs(messageID, pairs); err != nil {
		return nil, fmt.Errorf("save qa pairs: %w", err)
	}
	eval := s.evaluator.EvaluateQAPairs(slice, batch, n, pairs)
	return &models.QAPairsResponse{QAPairs: pairs, Evaluation: &eval}, nil
}

// GenerateCharts fans chart requests out over the selected slice and stores
// whatever came back, also when the run was cancelled.
func (s *ChatService) GenerateCharts(ctx context.Context, messageID string, req models.GenerateChartsRequest, onChunk func([]models.ChartResult)) (*models.GenerateChartsResponse, error) {
	if len(req.ChartTypes) == 0 {
		return nil, dataset.ErrNoChartTypes
	}
	if err := validation.ValidateChartSize(req.ChartSize); err != nil {
		return nil, err
	}
	if err := validation.ValidateChartCount(req.Count); err != nil {
		return nil, err
	}
	types, err := dataset.NewChartTypeSet(req.ChartTypes)
	if err != nil {
		return nil, err
	}
	slice, err := s.selected(messageID)
	if err != nil {
		return nil, err
	}

	count := req.Count
	if count <= 0 {
		count = req.ChartSize
	}
	results, runErr := s.charts.Generate(ctx, ChartRun{
		MessageID: messageID,
		Data:      slice,
		Prompt:    req.Prompt,
		Types:     types,
		ChartSize: req.ChartSize,
		Count:     count,
		APIKey:    req.APIKey,
	}, onChunk)

	cancelled := errors.Is(runErr, context.Canceled)
	if runErr != nil && !cancelled {
		return nil, runErr
	}
	if err := s.store.SaveCharts(messageID, results); err != nil {
		return nil, fmt.Errorf("save charts: %w", err)
	}
	return &models.GenerateChartsResponse{
		Charts:    results,
		Requested: count,
		Cancelled: cancelled,
	}, nil
}

func (s *ChatService) CancelCharts(messageID string) bool {
	return s.charts.Runs().Cancel(messageID)
}

func (s *ChatService) Charts(messageID string) ([]models.ChartResult, error) {
	return s.store.GetCharts(messageID)
}

// AttachChartImage stores the image the client rendered for a chart.
func (s *ChatService) AttachChartImage(messageID string, index int, image string) (*models.ChartResult, error) {
	_, mime, err := validation.DecodeImage(image)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(image, "data:") {
		image = "data:" + mime + ";base64," + image
	}
	return s.store.SetChartImage(messageID, index, image)
}

// ExportCharts writes the stored charts of a message to a zip archive.
func (s *ChatService) ExportCharts(messageID string) (*models.ExportFileInfo, error) {
	charts, err := s.store.GetCharts(messageID)
	if err != nil {
		return nil, err
	}
	return s.exports.SaveArchive(charts)
}

func (s *ChatService) Exports() *ExportStorage { return s.exports }

// ImportSQL runs a query against SQL Server and stores the result as a
// dataset message pair, as if the rows had been uploaded as CSV.
func (s *ChatService) ImportSQL(ctx context.Context, req models.SQLDatasetRequest) (*models.SendMessageResponse, error) {
	if s.sql == nil {
		return nil, ErrSQLServerDisabled
	}
	session, err := s.store.GetSession(req.SessionID)
	if err != nil {
		return nil, err
	}
	ds, err := s.sql.QueryDataset(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = strings.TrimSpace(req.Query)
	}
	now := time.Now()
	user := models.Message{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Type:      models.MessageTypeUser,
		Prompt:    prompt,
		FileKind:  models.FileKindCSV,
		FileName:  "query.csv",
		MimeType:  "text/csv",
		CreatedAt: timestamp(now),
	}
	reply := user
	reply.ID = uuid.New().String()
	reply.Type = models.MessageTypeAI
	reply.ReplyTo = user.ID
	reply.CreatedAt = timestamp(now.Add(time.Microsecond))

	rec := &db.DatasetRecord{Dataset: ds, Selection: dataset.DefaultSelection(ds)}
	if err := s.store.SaveMessage(&user); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	if err := s.store.SaveDataset(reply.ID, rec); err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	if err := s.store.SaveMessage(&reply); err != nil {
		return nil, fmt.Errorf("save reply: %w", err)
	}
	s.touchSession(session, prompt)

	return &models.SendMessageResponse{
		UserMessage: user,
		AIMessage:   reply,
		Dataset:     DatasetViewOf(rec, 0),
	}, nil
}

// SQLConnected reports SQL Server reachability; false when not configured.
func (s *ChatService) SQLConnected(ctx context.Context) bool {
	return s.sql.IsConnected(ctx)
}

func (s *ChatService) SQLConfigured() bool {
	return s.sql != nil
}
