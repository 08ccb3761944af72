package chi

import "time"

// ErrorResponseCode is the machine-readable error code of an API error.
type ErrorResponseCode string

// API error codes.
const (
	ErrorResponseCodeBadRequest                ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized              ErrorResponseCode = "unauthorized"
	ErrorResponseCodeValidationFailed          ErrorResponseCode = "validation_failed"
	ErrorResponseCodeEmptyHistory              ErrorResponseCode = "empty_history"
	ErrorResponseCodeNotFound                  ErrorResponseCode = "not_found"
	ErrorResponseCodeDocumentNotFound          ErrorResponseCode = "document_not_found"
	ErrorResponseCodeAlreadyExists             ErrorResponseCode = "already_exists"
	ErrorResponseCodeIngestionRunning          ErrorResponseCode = "ingestion_running"
	ErrorResponseCodeRateLimited               ErrorResponseCode = "rate_limited"
	ErrorResponseCodeTokenBudgetExceeded       ErrorResponseCode = "token_budget_exceeded"
	ErrorResponseCodeEmbeddingFailed           ErrorResponseCode = "embedding_failed"
	ErrorResponseCodeEmbeddingProviderError    ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeChatProviderError         ErrorResponseCode = "chat_provider_error"
	ErrorResponseCodeQueryGenerationFailed     ErrorResponseCode = "query_generation_failed"
	ErrorResponseCodeAnswerParseFailed         ErrorResponseCode = "answer_parse_failed"
	ErrorResponseCodeRetrievalFailed           ErrorResponseCode = "retrieval_failed"
	ErrorResponseCodeKeywordSearchNotSupported ErrorResponseCode = "keyword_search_not_supported"
	ErrorResponseCodeInternalError             ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// ChatTurn is one exchange of the conversation history.
type ChatTurn struct {
	User string `json:"user"`
	Bot  string `json:"bot,omitempty"`
}

// RequestOverrides are the per-request retrieval and answer knobs.
type RequestOverrides struct {
	RetrievalMode            *string  `json:"retrieval_mode,omitempty"`
	SemanticRanker           *bool    `json:"semantic_ranker,omitempty"`
	SemanticCaptions         *bool    `json:"semantic_captions,omitempty"`
	Top                      *int     `json:"top,omitempty"`
	Temperature              *float32 `json:"temperature,omitempty"`
	SuggestFollowupQuestions *bool    `json:"suggest_followup_questions,omitempty"`
	PermissionIDs            []string `json:"permission_ids,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	History   []ChatTurn        `json:"history"`
	Overrides *RequestOverrides `json:"overrides,omitempty"`
}

// SupportingContentRecord is one retrieved chunk.
type SupportingContentRecord struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	OriginURI   string   `json:"origin_uri,omitempty"`
	Permissions []string `json:"permissions"`
}

// ApproachResponse is the body of a successful chat reply.
type ApproachResponse struct {
	Answer          string                    `json:"answer"`
	Thoughts        string                    `json:"thoughts"`
	DataPoints      []SupportingContentRecord `json:"data_points"`
	CitationBaseURL string                    `json:"citation_base_url"`
	Questions       []string                  `json:"questions"`
	// Error reports a follow-up failure; the answer is still valid.
	Error string `json:"error,omitempty"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query     string            `json:"query"`
	Vector    []float32         `json:"vector,omitempty"`
	Overrides *RequestOverrides `json:"overrides,omitempty"`
}

// QueryResponse lists the retrieved records.
type QueryResponse struct {
	Items []SupportingContentRecord `json:"items"`
	Total int                       `json:"total"`
}

// DocumentResponse describes a stored document.
type DocumentResponse struct {
	Name          string     `json:"name"`
	ContentType   string     `json:"content_type"`
	Size          int64      `json:"size"`
	LastModified  *time.Time `json:"last_modified,omitempty"`
	URL           string     `json:"url"`
	Status        string     `json:"status"`
	EmbeddingType string     `json:"embedding_type"`
	Permissions   []string   `json:"permissions"`
}

// DocumentListResponse is one page of documents.
type DocumentListResponse struct {
	Items      []DocumentResponse `json:"items"`
	HasMore    bool               `json:"has_more"`
	NextCursor *string            `json:"next_cursor,omitempty"`
}

// ListDocumentsParams are the query parameters of GET /api/documents.
type ListDocumentsParams struct {
	Limit  *int    `form:"limit,omitempty" json:"limit,omitempty"`
	Cursor *string `form:"cursor,omitempty" json:"cursor,omitempty"`
}

// UploadDocumentsParams are the query parameters of POST /api/documents.
type UploadDocumentsParams struct {
	Overwrite *bool `form:"overwrite,omitempty" json:"overwrite,omitempty"`
}

// BatchResultItem is the outcome for one document of a multi-document call.
type BatchResultItem struct {
	Name   string         `json:"name"`
	Status string         `json:"status"`
	Reason string         `json:"reason,omitempty"`
	Error  *ErrorResponse `json:"error,omitempty"`
}

// BatchResponse summarizes a multi-document call.
type BatchResponse struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
}

// RemoveDocumentResponse reports a single removal.
type RemoveDocumentResponse struct {
	Name           string `json:"name"`
	RemovedRecords int    `json:"removed_records"`
}

// SynchronizeResponse acknowledges a started ingestion run.
type SynchronizeResponse struct {
	RunID string `json:"run_id"`
}

// IndexStatusResponse is the ingestion progress snapshot.
type IndexStatusResponse struct {
	RunID                       string     `json:"run_id,omitempty"`
	Status                      string     `json:"status"`
	PagesProcessed              int        `json:"pages_processed"`
	ChunksProcessed             int        `json:"chunks_processed"`
	ChunkFailures               int        `json:"chunk_failures"`
	TotalPages                  int        `json:"total_pages"`
	DocumentPageProcessedBuffer int        `json:"document_page_processed_buffer"`
	Percent                     float64    `json:"percent"`
	LastError                   string     `json:"last_error,omitempty"`
	StartedAt                   *time.Time `json:"started_at,omitempty"`
	FinishedAt                  *time.Time `json:"finished_at,omitempty"`
}

// BudgetStatus is the state of one provider token budget. TokensRemaining
// is -1 and TokensLimit 0 when the period is unlimited.
type BudgetStatus struct {
	Provider        string    `json:"provider"`
	Period          string    `json:"period"`
	TokensLimit     int64     `json:"tokens_limit"`
	TokensUsed      int64     `json:"tokens_used"`
	TokensRemaining int64     `json:"tokens_remaining"`
	IsExhausted     bool      `json:"is_exhausted"`
	ResetsAt        time.Time `json:"resets_at"`
}

// UsageResponse is the body of GET /api/usage.
type UsageResponse struct {
	Budgets []BudgetStatus `json:"budgets"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
