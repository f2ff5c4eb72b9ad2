package models

// ClassifyRequest is the body of POST /api/v1/classify. Images maps an
// opaque image id to base64-encoded image bytes.
type ClassifyRequest struct {
	Method string            `json:"method,omitempty"`
	Images map[string]string `json:"images"`
}

// Prediction is the classification decision for a single image. Score is
// the raw cosine similarity of the top match formatted to 3 decimal places;
// callers applying threshold-based rejection should compare it against the
// recommended operating threshold reported by /status.
type Prediction struct {
	Class string `json:"class"`
	Score string `json:"score"`
}

// ClassifyResponse maps image ids to predictions.
type ClassifyResponse map[string]Prediction
