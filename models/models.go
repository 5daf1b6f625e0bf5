package models

import "encoding/json"

type MessageType string

const (
	MessageTypeUser MessageType = "user"
	MessageTypeAI   MessageType = "ai"
)

type FileKind string

const (
	FileKindNone  FileKind = ""
	FileKindCSV   FileKind = "csv"
	FileKindImage FileKind = "image"
)

type ChatSession struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type CreateSessionRequest struct {
	Title string `json:"title"`
}

// Message is one entry in a chat session. The AI message paired with a user
// message carries the same prompt and file, and owns the dataset, analysis
// and chart results derived from it.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Type      MessageType `json:"type"`
	Prompt    string      `json:"prompt,omitempty"`
	FileKind  FileKind    `json:"file_type,omitempty"`
	FileName  string      `json:"file_name,omitempty"`
	MimeType  string      `json:"mime_type,omitempty"`
	ReplyTo   string      `json:"reply_to,omitempty"`
	Analysis  string      `json:"analysis,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt string      `json:"created_at"`
}

type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type QAPairs struct {
	QAPairs []QAPair `json:"qa_pairs"`
}

type ChartResult struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
	Code  string `json:"code"`
	Image string `json:"image"`
}

// ImageUnderstandingRequest is the body of POST /api/aya-understanding.
type ImageUnderstandingRequest struct {
	Prompt      string `json:"prompt"`
	ImageBase64 string `json:"imageBase64" binding:"required"`
	APIKey      string `json:"apiKey,omitempty"`
}

type ImageUnderstandingResponse struct {
	Response string `json:"response"`
}

// GenerateChartRequest is the body of POST /api/generate-chart.
type GenerateChartRequest struct {
	// Data is forwarded to the model verbatim, so cells may hold any JSON value.
	Data      json.RawMessage `json:"data" swaggertype:"array,object"`
	Prompt    string          `json:"prompt"`
	ChartType string          `json:"chartType" binding:"required"`
	ChartSize int             `json:"chartSize"`
	APIKey    string          `json:"apiKey,omitempty"`
}

type GenerateChartResponse struct {
	Code  string `json:"code"`
	Image string `json:"image"`
}

type SendMessageResponse struct {
	UserMessage Message      `json:"user_message"`
	AIMessage   Message      `json:"ai_message"`
	Dataset     *DatasetView `json:"dataset,omitempty"`
}

type SelectionView struct {
	Rows    []int    `json:"rows"`
	Columns []string `json:"columns"`
}

type DatasetView struct {
	Headers   []string            `json:"headers"`
	Rows      []map[string]string `json:"rows"`
	TotalRows int                 `json:"total_rows"`
	Selection SelectionView       `json:"selection"`
	Selected  []map[string]string `json:"selected"`
}

type SelectionRequest struct {
	Rows    []int    `json:"rows" binding:"required"`
	Columns []string `json:"columns" binding:"required"`
}

type ToggleRequest struct {
	Row    *int   `json:"row,omitempty"`
	Column string `json:"column,omitempty"`
}

type GenerateChartsRequest struct {
	Prompt     string   `json:"prompt"`
	ChartTypes []string `json:"chartTypes"`
	ChartSize  int      `json:"chartSize"`
	Count      int      `json:"count,omitempty"`
	APIKey     string   `json:"apiKey,omitempty"`
}

type GenerateChartsResponse struct {
	Charts    []ChartResult `json:"charts"`
	Requested int           `json:"requested"`
	Cancelled bool          `json:"cancelled"`
}

type ChartImageRequest struct {
	Image string `json:"image" binding:"required"`
}

type QAPairsRequest struct {
	Count     int    `json:"count"`
	BatchSize int    `json:"batchSize"`
	APIKey    string `json:"apiKey,omitempty"`
}

type QAPairsResponse struct {
	QAPairs    []QAPair          `json:"qa_pairs"`
	Evaluation *QAPairEvaluation `json:"evaluation,omitempty"`
}

type SQLDatasetRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Query     string `json:"query" binding:"required"`
	Prompt    string `json:"prompt"`
}

type ChartEvaluation struct {
	ChartType    string   `json:"chart_type" yaml:"chart_type"`
	Correctness  float64  `json:"correctness" yaml:"correctness"`
	Completeness float64  `json:"completeness" yaml:"completeness"`
	Diversity    float64  `json:"diversity" yaml:"diversity"`
	Comments     []string `json:"comments" yaml:"comments"`
}

type QAPairEvaluation struct {
	Correctness float64  `json:"correctness" yaml:"correctness"`
	Diversity   float64  `json:"diversity" yaml:"diversity"`
	Relevance   float64  `json:"relevance" yaml:"relevance"`
	Comments    []string `json:"comments" yaml:"comments"`
}

type ExportFileInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
	Charts   int    `json:"charts,omitempty"`
}
