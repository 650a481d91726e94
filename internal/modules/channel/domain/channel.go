package domain

// Entry maps a human-readable channel label to a destination id.
// Labels are unique within the directory.
type Entry struct {
	Label         string `json:"label"`
	DestinationID string `json:"destination_id"`
	Link          string `json:"link,omitempty"`
}
