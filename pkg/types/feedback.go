package types

// ActionKind tags an ActionPayload
type ActionKind string

const (
	ActionCorrect   ActionKind = "correct"
	ActionIncorrect ActionKind = "incorrect"
)

// ActionPayload is the opaque value embedded in the result message's
// interactive elements and echoed back verbatim by Slack.
// It is not signed; see DESIGN.md.
type ActionPayload struct {
	Action           ActionKind `json:"action"`
	TopSpecies       string     `json:"topSpecies"`
	CorrectedSpecies string     `json:"correctedSpecies,omitempty"`
	ModelVersion     string     `json:"modelVersion"`
	Filename         string     `json:"filename"`
	ThreadTS         string     `json:"thread_ts"`
}

// FeedbackRecord is one row of the feedback table
type FeedbackRecord struct {
	FeedbackID       string  `json:"feedback_id"`
	SlackMessageID   string  `json:"slack_message_id"`
	UserID           string  `json:"slack_user_id"`
	ModelVersion     string  `json:"model_version"`
	IsCorrect        bool    `json:"is_correct"`
	TopPrediction    string  `json:"top_prediction"`
	CorrectedSpecies *string `json:"corrected_species"`
	ZipCode          *string `json:"zip_code"`
	Comments         *string `json:"comments"`
	Timestamp        int64   `json:"timestamp"` // epoch millis
}
