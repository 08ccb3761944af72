// Package chi serves the assistant's HTTP API on a chi router.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/domain"
	dombatch "github.com/kailas-cloud/docassist/internal/domain/batch"
	domchat "github.com/kailas-cloud/docassist/internal/domain/chat"
	domdoc "github.com/kailas-cloud/docassist/internal/domain/document"
	domingest "github.com/kailas-cloud/docassist/internal/domain/ingestion"
	"github.com/kailas-cloud/docassist/internal/domain/search/mode"
	"github.com/kailas-cloud/docassist/internal/domain/search/request"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/docassist/internal/logger"
	documentuc "github.com/kailas-cloud/docassist/internal/usecase/document"
	healthuc "github.com/kailas-cloud/docassist/internal/usecase/health"
)

// Request limits.
const (
	defaultPageSize = 20
	maxPageSize     = 100

	// maxUploadBytes caps a multipart upload body.
	maxUploadBytes  int64 = 256 << 20
	maxUploadMemory int64 = 32 << 20
)

// Usage response headers.
const (
	headerEmbeddingTokens  = "X-Embedding-Tokens"
	headerCompletionTokens = "X-Completion-Tokens"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// errorMapping binds a sentinel to its HTTP status and code. Order matters:
// the first sentinel in the chain wins.
type errorMapping struct {
	sentinel error
	status   int
	code     ErrorResponseCode
}

var errorMappings = []errorMapping{
	{domain.ErrRateLimited, http.StatusTooManyRequests, ErrorResponseCodeRateLimited},
	{domain.ErrTokenBudgetExceeded, http.StatusTooManyRequests, ErrorResponseCodeTokenBudgetExceeded},
	{domain.ErrEmptyHistory, http.StatusBadRequest, ErrorResponseCodeEmptyHistory},
	{domain.ErrInvalidInput, http.StatusBadRequest, ErrorResponseCodeValidationFailed},
	{domain.ErrVectorDimMismatch, http.StatusBadRequest, ErrorResponseCodeValidationFailed},
	{domain.ErrDocumentNotFound, http.StatusNotFound, ErrorResponseCodeDocumentNotFound},
	{domain.ErrAlreadyExists, http.StatusConflict, ErrorResponseCodeAlreadyExists},
	{domain.ErrIngestionRunning, http.StatusConflict, ErrorResponseCodeIngestionRunning},
	{domain.ErrKeywordSearchNotSupported, http.StatusNotImplemented, ErrorResponseCodeKeywordSearchNotSupported},
	{domain.ErrEmbedding, http.StatusBadGateway, ErrorResponseCodeEmbeddingFailed},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorResponseCodeEmbeddingProviderError},
	{domain.ErrQueryGeneration, http.StatusBadGateway, ErrorResponseCodeQueryGenerationFailed},
	{domain.ErrAnswerParse, http.StatusBadGateway, ErrorResponseCodeAnswerParseFailed},
	{domain.ErrChatProviderError, http.StatusBadGateway, ErrorResponseCodeChatProviderError},
	{domain.ErrRetrieval, http.StatusBadGateway, ErrorResponseCodeRetrievalFailed},
	{domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound},
}

// Server implements ServerInterface.
type Server struct {
	chat          ChatService
	documents     DocumentService
	ingestion     IngestionService
	health        HealthService
	budget        BudgetService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	chat ChatService,
	documents DocumentService,
	ingestion IngestionService,
	health HealthService,
	budget BudgetService,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		chat:      chat,
		documents: documents,
		ingestion: ingestion,
		health:    health,
		budget:    budget,
		logger:    logger,
	}
	for _, m := range errorMappings {
		s.errorHandlers = append(s.errorHandlers, sentinelHandler(m.sentinel, m.status, m.code))
	}
	return s
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ov, err := overridesFromAPI(req.Overrides)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	history := make([]domchat.Turn, len(req.History))
	for i, t := range req.History {
		history[i] = domchat.Turn{User: t.User, Bot: t.Bot}
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.chat.Reply(ctx, history, ov)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, approachResponseToAPI(resp))
}

// Query handles POST /api/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ov, err := overridesFromAPI(req.Overrides)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	records, err := s.chat.Search(ctx, req.Query, req.Vector, ov)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, QueryResponse{
		Items: recordsToAPI(records),
		Total: len(records),
	})
}

// ListDocuments handles GET /api/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request, params ListDocumentsParams) {
	if params.Limit != nil && (*params.Limit <= 0 || *params.Limit > maxPageSize) {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
			fmt.Sprintf("limit must be between 1 and %d", maxPageSize))
		return
	}

	docs, err := s.documents.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]DocumentResponse, len(docs))
	for i := range docs {
		items[i] = documentToAPI(&docs[i])
	}

	writeJSON(w, http.StatusOK, paginateDocuments(items, params.Cursor, params.Limit))
}

func paginateDocuments(items []DocumentResponse, cursor *string, limitPtr *int) DocumentListResponse {
	limit := defaultPageSize
	if limitPtr != nil {
		limit = *limitPtr
	}

	startIdx := 0
	if cursor != nil && *cursor != "" {
		for i, item := range items {
			if item.Name == *cursor {
				startIdx = i + 1
				break
			}
		}
	}

	if startIdx > len(items) {
		startIdx = len(items)
	}
	end := min(startIdx+limit, len(items))

	page := items[startIdx:end]
	hasMore := end < len(items)

	resp := DocumentListResponse{
		Items:   page,
		HasMore: hasMore,
	}
	if hasMore && len(page) > 0 {
		c := page[len(page)-1].Name
		resp.NextCursor = &c
	}
	return resp
}

// UploadDocuments handles POST /api/documents (multipart/form-data). Files
// are read from the "files" parts; "permissions" values are comma-separated
// permission names applied to every file.
func (s *Server) UploadDocuments(w http.ResponseWriter, r *http.Request, params UploadDocumentsParams) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid multipart body: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "at least one file is required")
		return
	}

	files := make([]documentuc.File, 0, len(headers))
	for _, fh := range headers {
		content, err := readPart(fh)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest,
				fmt.Sprintf("read %s: %v", fh.Filename, err))
			return
		}
		files = append(files, documentuc.File{Name: fh.Filename, Content: content})
	}

	var perms []string
	for _, v := range r.MultipartForm.Value["permissions"] {
		perms = append(perms, domdoc.SplitPermissions(v)...)
	}

	results := s.documents.Upload(r.Context(), files, documentuc.UploadOptions{
		Permissions: perms,
		Overwrite:   params.Overwrite != nil && *params.Overwrite,
	})
	writeJSON(w, http.StatusOK, batchResponseToAPI(results))
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open part: %w", err)
	}
	defer func() { _ = f.Close() }()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read part: %w", err)
	}
	return b, nil
}

// DeleteAllDocuments handles DELETE /api/documents.
func (s *Server) DeleteAllDocuments(w http.ResponseWriter, r *http.Request) {
	results, err := s.documents.RemoveAll(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponseToAPI(results))
}

// DeleteDocument handles DELETE /api/documents/{name}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request, name string) {
	if err := domdoc.ValidateName(name); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	n, err := s.documents.Remove(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RemoveDocumentResponse{Name: name, RemovedRecords: n})
}

// Synchronize handles POST /api/synchronize. The run continues after the
// response is written.
func (s *Server) Synchronize(w http.ResponseWriter, r *http.Request) {
	runID, err := s.ingestion.Start(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SynchronizeResponse{RunID: runID})
}

// CancelSynchronize handles DELETE /api/synchronize.
func (s *Server) CancelSynchronize(w http.ResponseWriter, _ *http.Request) {
	s.ingestion.Cancel()
	writeJSON(w, http.StatusAccepted, indexStatusToAPI(s.ingestion.Status()))
}

// GetIndexStatus handles GET /api/index-status.
func (s *Server) GetIndexStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, indexStatusToAPI(s.ingestion.Status()))
}

// GetPrompts handles GET /api/prompts.
func (s *Server) GetPrompts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.chat.Prompts())
}

// GetUsage handles GET /api/usage.
func (s *Server) GetUsage(w http.ResponseWriter, _ *http.Request) {
	statuses := s.budget.Report()
	resp := UsageResponse{Budgets: make([]BudgetStatus, 0, len(statuses))}
	for _, b := range statuses {
		resp.Budgets = append(resp.Budgets, BudgetStatus{
			Provider:        b.Provider(),
			Period:          string(b.Period()),
			TokensLimit:     b.Limit(),
			TokensUsed:      b.Used(),
			TokensRemaining: b.Remaining(),
			IsExhausted:     b.Exhausted(),
			ResetsAt:        b.ResetsAt(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.TokenUsage) {
	if usage == nil {
		return
	}
	if usage.EmbeddingTokens > 0 {
		w.Header().Set(headerEmbeddingTokens, strconv.Itoa(usage.EmbeddingTokens))
	}
	if usage.CompletionTokens > 0 {
		w.Header().Set(headerCompletionTokens, strconv.Itoa(usage.CompletionTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			return m.sentinel.Error()
		}
	}
	return "internal error"
}

// errorCode returns the API code of the first matching sentinel.
func errorCode(err error) ErrorResponseCode {
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			return m.code
		}
	}
	return ErrorResponseCodeInternalError
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContextOr(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func overridesFromAPI(o *RequestOverrides) (domchat.Overrides, error) {
	// Follow-up questions are on unless the caller opts out.
	ov := domchat.Overrides{SuggestFollowupQuestions: true}
	if o == nil {
		return ov, nil
	}

	if o.RetrievalMode != nil {
		m, ok := mode.Parse(*o.RetrievalMode, mode.Hybrid)
		if !ok {
			return domchat.Overrides{}, errors.New("retrieval_mode must be one of text, vector, hybrid")
		}
		ov.RetrievalMode = m
	}
	if o.Top != nil {
		if *o.Top <= 0 || *o.Top > request.MaxTop {
			return domchat.Overrides{}, fmt.Errorf("top must be between 1 and %d", request.MaxTop)
		}
		ov.Top = *o.Top
	}
	if o.Temperature != nil {
		if *o.Temperature < 0 || *o.Temperature > 2 {
			return domchat.Overrides{}, errors.New("temperature must be between 0 and 2")
		}
		t := *o.Temperature
		ov.Temperature = &t
	}
	ov.SemanticRanker = derefBool(o.SemanticRanker)
	ov.SemanticCaptions = derefBool(o.SemanticCaptions)
	if o.SuggestFollowupQuestions != nil {
		ov.SuggestFollowupQuestions = *o.SuggestFollowupQuestions
	}
	ov.PermissionIDs = o.PermissionIDs
	return ov, nil
}

func derefBool(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}

func approachResponseToAPI(resp *domchat.Response) ApproachResponse {
	out := ApproachResponse{
		Answer:          resp.AnswerWithFollowUps(),
		Thoughts:        resp.Answer.Thoughts,
		DataPoints:      recordsToAPI(resp.DataPoints),
		CitationBaseURL: resp.CitationBaseURL,
		Questions:       resp.FollowUps.Questions,
	}
	if out.Questions == nil {
		out.Questions = []string{}
	}
	switch err := resp.FollowUps.Err; {
	case err == nil:
	case errors.Is(err, domain.ErrFollowUpParse):
		out.Error = domain.ErrFollowUpParse.Error()
	default:
		out.Error = safeDomainMessage(err)
	}
	return out
}

func recordsToAPI(records []result.SupportingContent) []SupportingContentRecord {
	out := make([]SupportingContentRecord, len(records))
	for i := range records {
		out[i] = SupportingContentRecord{
			Title:       records[i].Title(),
			Content:     records[i].Content(),
			OriginURI:   records[i].OriginURI(),
			Permissions: records[i].Permissions(),
		}
	}
	return out
}

func documentToAPI(d *domdoc.Document) DocumentResponse {
	resp := DocumentResponse{
		Name:          d.Name(),
		ContentType:   d.ContentType(),
		Size:          d.Size(),
		URL:           d.URL(),
		Status:        string(d.Status()),
		EmbeddingType: string(d.EmbeddingType()),
		Permissions:   d.Permissions(),
	}
	if resp.Permissions == nil {
		resp.Permissions = []string{}
	}
	if lm := d.LastModified(); !lm.IsZero() {
		t := lm.UTC()
		resp.LastModified = &t
	}
	return resp
}

func batchResponseToAPI(results []dombatch.Result) BatchResponse {
	items := make([]BatchResultItem, len(results))
	for i, r := range results {
		items[i] = BatchResultItem{
			Name:   r.Name(),
			Status: string(r.Status()),
			Reason: r.Reason(),
		}
		if r.Err() != nil {
			items[i].Error = &ErrorResponse{
				Code:    errorCode(r.Err()),
				Message: safeDomainMessage(r.Err()),
			}
		}
	}
	ok, skipped, failed := dombatch.Counts(results)
	return BatchResponse{
		Items:     items,
		Succeeded: ok,
		Skipped:   skipped,
		Failed:    failed,
	}
}

func indexStatusToAPI(snap domingest.Snapshot) IndexStatusResponse {
	resp := IndexStatusResponse{
		RunID:                       snap.RunID,
		Status:                      string(snap.Status),
		PagesProcessed:              snap.PagesProcessed,
		ChunksProcessed:             snap.ChunksProcessed,
		ChunkFailures:               snap.ChunkFailures,
		TotalPages:                  snap.TotalPages,
		DocumentPageProcessedBuffer: snap.PageBuffer(),
		Percent:                     snap.Percent(),
		LastError:                   snap.LastError,
	}
	if !snap.StartedAt.IsZero() {
		t := snap.StartedAt.UTC()
		resp.StartedAt = &t
	}
	if !snap.FinishedAt.IsZero() {
		t := snap.FinishedAt.UTC()
		resp.FinishedAt = &t
	}
	return resp
}
