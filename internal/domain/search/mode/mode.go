package mode

import "strings"

// Mode is the retrieval strategy.
type Mode string

// Retrieval mode constants.
const (
	// Text runs keyword search only.
	Text Mode = "text"
	// Vector runs embedding similarity only.
	Vector Mode = "vector"
	// Hybrid runs both legs and fuses their rankings.
	Hybrid Mode = "hybrid"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Text || m == Vector || m == Hybrid
}

// Parse accepts any letter case ("Vector", "HYBRID"); empty input yields def.
func Parse(s string, def Mode) (Mode, bool) {
	if s == "" {
		return def, true
	}
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	return m, m.IsValid()
}

// UsesKeywords reports whether the mode runs the keyword leg.
func (m Mode) UsesKeywords() bool { return m != Vector }

// UsesVectors reports whether the mode runs the vector leg.
func (m Mode) UsesVectors() bool { return m != Text }
