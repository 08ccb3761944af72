package result

// Hit is a raw index hit. Fields absent from the stored record are empty.
type Hit struct {
	Key         string
	ID          string
	Content     string
	SourcePage  string
	SourceFile  string
	URL         string
	Permissions []string
	Score       float64
}
