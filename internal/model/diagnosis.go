package model

// Remedy is an entry in the homeopathy remedy table.
type Remedy struct {
	Name        string   `json:"name"`
	Keywords    []string `json:"keywords"`
	Description string   `json:"description"`
	Potency     string   `json:"potency"`
}

// DiagnosisRequest carries free-text symptoms.
type DiagnosisRequest struct {
	Symptoms []string `json:"symptoms" binding:"required,min=1,dive,required"`
}

// DiagnosisResult is one ranked remedy suggestion.
type DiagnosisResult struct {
	Remedy      string   `json:"remedy"`
	Description string   `json:"description"`
	Potency     string   `json:"potency"`
	Score       int      `json:"score"`
	Confidence  float64  `json:"confidence"`
	Matched     []string `json:"matched_keywords"`
}
