package models

// Status is the review status stored on a posting row.
// An empty Status means the posting is still pending review.
type Status string

const (
	StatusPending  Status = ""
	StatusAccepted Status = "yes"
)

// Posting is a persisted job opportunity awaiting or past review.
type Posting struct {
	ID     int64  `json:"id"`
	Link   string `json:"link"`
	Text   string `json:"text"`
	Status Status `json:"status,omitempty"`
}

func (p Posting) Pending() bool {
	return p.Status == StatusPending
}

// ReviewOutcome reports what a review decision actually did to the store.
type ReviewOutcome string

const (
	OutcomeApplied        ReviewOutcome = "applied"
	OutcomeAlreadyApplied ReviewOutcome = "already_applied"
	OutcomeNotFound       ReviewOutcome = "not_found"
)

// Match is a candidate judged relevant by a matcher, with the text shown to the operator.
type Match struct {
	Link string `json:"link"`
	Text string `json:"text"`
}
