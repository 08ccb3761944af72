package chat

import "strings"

// Template placeholders.
const (
	PlaceholderSources = "{sources}"
	PlaceholderAnswer  = "{answer}"
)

// NoSources replaces the grounding context when retrieval found nothing.
const NoSources = "no source available."

// Prompts are the fixed instruction templates of the answer pipeline.
type Prompts struct {
	QueryRewrite   string `json:"query_rewrite"`
	AnswerSystem   string `json:"answer_system"`
	AnswerUser     string `json:"answer_user"`
	FollowUpSystem string `json:"follow_up_system"`
	FollowUpUser   string `json:"follow_up_user"`
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() Prompts {
	return Prompts{
		QueryRewrite: `You are a helpful AI assistant, generate search query for followup question.
Make your respond simple and precise. Return the query only, do not return any other text.
e.g.
Northwind Health Plus AND standard plan.
standard plan AND dental AND employee benefit.
`,
		AnswerSystem: "You are a system assistant who helps the company employees with their healthcare " +
			"plan questions, and questions about the employee handbook. Be brief in your answers",
		AnswerUser: ` ## Source ##
{sources}
## End ##

You answer needs to be a json object with the following format.
{
    "answer": // the answer to the question, add a source reference to the end of each sentence. e.g. Apple is a fruit [reference1.pdf][reference2.pdf]. If no source available, put the answer as I don't know.
    "thoughts": // brief thoughts on how you came up with the answer, e.g. what sources you used, what you thought about, etc.
}`,
		FollowUpSystem: "You are a helpful AI assistant",
		FollowUpUser: `Generate three follow-up question based on the answer you just generated.
# Answer
{answer}

# Format of the response
Return the follow-up question as a json string list.
e.g.
[
    "What is the deductible?",
    "What is the co-pay?",
    "What is the out-of-pocket maximum?"
]`,
	}
}

// Merge returns p with empty fields taken from def.
func (p Prompts) Merge(def Prompts) Prompts {
	pick := func(v, d string) string {
		if strings.TrimSpace(v) == "" {
			return d
		}
		return v
	}
	return Prompts{
		QueryRewrite:   pick(p.QueryRewrite, def.QueryRewrite),
		AnswerSystem:   pick(p.AnswerSystem, def.AnswerSystem),
		AnswerUser:     pick(p.AnswerUser, def.AnswerUser),
		FollowUpSystem: pick(p.FollowUpSystem, def.FollowUpSystem),
		FollowUpUser:   pick(p.FollowUpUser, def.FollowUpUser),
	}
}

func (p Prompts) answerUser(sources string) string {
	return strings.ReplaceAll(p.AnswerUser, PlaceholderSources, sources)
}

func (p Prompts) followUpUser(answer string) string {
	return strings.ReplaceAll(p.FollowUpUser, PlaceholderAnswer, answer)
}
