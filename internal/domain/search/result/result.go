package result

// SupportingContent is one retrieved chunk prepared for prompt grounding.
type SupportingContent struct {
	title       string
	content     string
	originURI   string
	permissions []string
	score       float64
}

// New creates a supporting-content record. Nil permissions become an empty set.
func New(title, content, originURI string, permissions []string, score float64) SupportingContent {
	if permissions == nil {
		permissions = []string{}
	}
	return SupportingContent{
		title: title, content: content, originURI: originURI,
		permissions: permissions, score: score,
	}
}

// Title returns the source page name.
func (r *SupportingContent) Title() string { return r.title }

// Content returns the single-line chunk text or caption.
func (r *SupportingContent) Content() string { return r.content }

// OriginURI returns the URL of the source document.
func (r *SupportingContent) OriginURI() string { return r.originURI }

// Permissions returns the record's ACL tokens.
func (r *SupportingContent) Permissions() []string { return r.permissions }

// Score returns the fused relevance score.
func (r *SupportingContent) Score() float64 { return r.score }
