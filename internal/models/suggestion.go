package models

// ConnectionSuggestion is a ranked "people you may know" entry. Ordering is
// mutual-connection count descending, full name ascending on ties.
type ConnectionSuggestion struct {
	UserID      string   `json:"user_id"`
	FullName    string   `json:"full_name"`
	Headline    string   `json:"headline,omitempty"`
	Role        UserRole `json:"role"`
	MutualCount int      `json:"mutual_count"`
}
