package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput signals a request that fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrRateLimited signals a rate limit hit. Callers may retry.
	ErrRateLimited = errors.New("rate limited")
	// ErrTokenBudgetExceeded signals a spent daily or monthly provider token budget.
	ErrTokenBudgetExceeded = errors.New("token budget exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrChatProviderError signals a chat-completion provider failure.
	ErrChatProviderError = errors.New("chat provider error")
	// ErrKeywordSearchNotSupported signals that the backend lacks keyword search.
	ErrKeywordSearchNotSupported = errors.New("keyword search not supported by backend")
	// ErrIngestionRunning signals that an ingestion run is already in progress.
	ErrIngestionRunning = errors.New("ingestion already running")

	// ErrUnsupportedStream signals a document stream without random access.
	ErrUnsupportedStream = errors.New("unsupported stream")
	// ErrRetrieval signals that the search backend produced no response.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrEmptyHistory signals a chat request without a user question.
	ErrEmptyHistory = errors.New("empty chat history")
	// ErrEmbedding signals a failure to embed the user question.
	ErrEmbedding = errors.New("embedding failed")
	// ErrQueryGeneration signals an unusable search query rewrite.
	ErrQueryGeneration = errors.New("query generation failed")
	// ErrAnswerParse signals a model answer that is not the required JSON object.
	ErrAnswerParse = errors.New("answer parse failed")
	// ErrFollowUpParse signals a follow-up response that is not a JSON string array.
	ErrFollowUpParse = errors.New("follow-up parse failed")
)

// UnsupportedStreamError reports a document whose stream cannot be seeked.
type UnsupportedStreamError struct {
	Name string
}

func (e *UnsupportedStreamError) Error() string {
	return fmt.Sprintf("%s: %s is not seekable", ErrUnsupportedStream, e.Name)
}

func (e *UnsupportedStreamError) Unwrap() error { return ErrUnsupportedStream }

// RetrievalError wraps a search backend failure.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string {
	if e.Err == nil {
		return ErrRetrieval.Error() + ": no response"
	}
	return fmt.Sprintf("%s: %v", ErrRetrieval, e.Err)
}

func (e *RetrievalError) Unwrap() []error { return withCause(ErrRetrieval, e.Err) }

// EmptyHistoryError reports a history with no turns or a last turn without user text.
type EmptyHistoryError struct {
	Turns int
}

func (e *EmptyHistoryError) Error() string {
	if e.Turns == 0 {
		return ErrEmptyHistory.Error() + ": no turns"
	}
	return ErrEmptyHistory.Error() + ": last turn has no user text"
}

func (e *EmptyHistoryError) Unwrap() error { return ErrEmptyHistory }

// EmbeddingError wraps an embedding capability failure for the user question.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("%s: %v", ErrEmbedding, e.Err) }

func (e *EmbeddingError) Unwrap() []error { return withCause(ErrEmbedding, e.Err) }

// QueryGenerationError reports a rewrite that did not yield exactly one completion.
type QueryGenerationError struct {
	Choices int
	Err     error
}

func (e *QueryGenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", ErrQueryGeneration, e.Err)
	}
	return fmt.Sprintf("%s: expected 1 completion, got %d", ErrQueryGeneration, e.Choices)
}

func (e *QueryGenerationError) Unwrap() []error { return withCause(ErrQueryGeneration, e.Err) }

// AnswerParseError reports a completion missing the answer or thoughts field.
type AnswerParseError struct {
	Raw string
	Err error
}

func (e *AnswerParseError) Error() string { return fmt.Sprintf("%s: %v", ErrAnswerParse, e.Err) }

func (e *AnswerParseError) Unwrap() []error { return withCause(ErrAnswerParse, e.Err) }

// FollowUpParseError reports a follow-up completion that is not a JSON array of strings.
type FollowUpParseError struct {
	Raw string
	Err error
}

func (e *FollowUpParseError) Error() string { return fmt.Sprintf("%s: %v", ErrFollowUpParse, e.Err) }

func (e *FollowUpParseError) Unwrap() []error { return withCause(ErrFollowUpParse, e.Err) }

func withCause(sentinel, cause error) []error {
	if cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, cause}
}
