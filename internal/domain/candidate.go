package domain

// DetectionCandidate is the ephemeral output of a single detector. Candidates
// are never persisted as-is; the merger consumes them immediately and only the
// evidence log keeps the raw rows for audit.
type DetectionCandidate struct {
	RawFragment   string          `json:"raw_fragment"`
	Method        DetectionMethod `json:"method"`
	ExtractedID   string          `json:"extracted_id,omitempty"`
	ExtractedName string          `json:"extracted_name,omitempty"`
	Confidence    float64         `json:"confidence"`
	RoleHint      Role            `json:"role_hint"`
}
