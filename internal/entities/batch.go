package entities

import "time"

// Batch is the persisted summary of one compression run.
type Batch struct {
	ID               int64     `json:"id"`
	GroupLabel       *string   `json:"group_label,omitempty"`
	NamingMode       string    `json:"naming_mode"`
	TargetBytes      int64     `json:"target_bytes"`
	ToleranceBytes   int64     `json:"tolerance_bytes"`
	ItemsProcessed   int       `json:"items_processed"`
	ItemsFailed      int       `json:"items_failed"`
	Truncated        bool      `json:"truncated"`
	TotalInputBytes  int64     `json:"total_input_bytes"`
	TotalOutputBytes int64     `json:"total_output_bytes"`
	ZipKey           string    `json:"zip_key"`
	CreatedTimestamp time.Time `json:"created_timestamp"`
}

// BatchFailure is one per-item failure recorded against a batch.
type BatchFailure struct {
	ID        int64  `json:"id"`
	BatchID   int64  `json:"batch_id"`
	ItemIndex int    `json:"item_index"`
	FileName  string `json:"file_name"`
	Reason    string `json:"reason"`
}

// BatchSummary is what the upload endpoint reports back alongside the ZIP.
type BatchSummary struct {
	Batch         Batch          `json:"batch"`
	Failures      []BatchFailure `json:"failures,omitempty"`
	DownloadToken string         `json:"download_token"`
}

// Ticket is a staff feedback entry about the tools.
type Ticket struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            *string   `json:"email,omitempty"`
	Category         string    `json:"category"`
	Message          string    `json:"message"`
	Resolved         bool      `json:"resolved"`
	CreatedTimestamp time.Time `json:"created_timestamp"`
}
