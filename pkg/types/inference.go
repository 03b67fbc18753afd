package types

// InferenceRequest is the payload sent to the inference function
type InferenceRequest struct {
	ImageURL string `json:"image_url"`
}

// Prediction is one ranked guess. Rank 0 is the top guess.
type Prediction struct {
	Species    string  `json:"species"`
	Confidence float64 `json:"confidence"`
}

// InferenceEnvelope is either a result (ModelVersion + Predictions) or an Error, never both
type InferenceEnvelope struct {
	ModelVersion string       `json:"model_version,omitempty"`
	Predictions  []Prediction `json:"predictions,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// Top returns at most n predictions in their original order
func (e InferenceEnvelope) Top(n int) []Prediction {
	if len(e.Predictions) < n {
		n = len(e.Predictions)
	}
	return e.Predictions[:n]
}
