// Package chat models conversation turns, request overrides and answer results.
package chat

import (
	"strings"

	"github.com/kailas-cloud/docassist/internal/domain"
	"github.com/kailas-cloud/docassist/internal/domain/search/mode"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
)

// Turn is one exchange: the user utterance and the prior bot answer, if any.
type Turn struct {
	User string
	Bot  string
}

// LastQuestion returns the user text of the final turn.
func LastQuestion(history []Turn) (string, error) {
	if len(history) == 0 {
		return "", &domain.EmptyHistoryError{}
	}
	q := history[len(history)-1].User
	if strings.TrimSpace(q) == "" {
		return "", &domain.EmptyHistoryError{Turns: len(history)}
	}
	return q, nil
}

// Overrides are per-request knobs sent with a chat or query request.
type Overrides struct {
	RetrievalMode            mode.Mode
	SemanticRanker           bool
	SemanticCaptions         bool
	Top                      int
	Temperature              *float32
	SuggestFollowupQuestions bool
	// PermissionIDs are resolved to names through the permission store.
	PermissionIDs []string
}

// Answer is the parsed primary completion.
type Answer struct {
	Text     string `json:"answer"`
	Thoughts string `json:"thoughts"`
}

// FollowUps is the outcome of the optional follow-up step. A failure here
// never invalidates the Answer it was generated from.
type FollowUps struct {
	Requested bool
	Questions []string
	Err       error
}

// Response is the assembled reply to a chat request.
type Response struct {
	Answer          Answer
	FollowUps       FollowUps
	DataPoints      []result.SupportingContent
	CitationBaseURL string
}

// AnswerWithFollowUps renders the answer text with each follow-up question
// appended as a " <<question>> " marker.
func (r *Response) AnswerWithFollowUps() string {
	if len(r.FollowUps.Questions) == 0 {
		return r.Answer.Text
	}
	var sb strings.Builder
	sb.WriteString(r.Answer.Text)
	for _, q := range r.FollowUps.Questions {
		sb.WriteString(" <<")
		sb.WriteString(q)
		sb.WriteString(">> ")
	}
	return sb.String()
}
