package models

import "time"

// MetadataRecord is the sidecar written next to (but in a separate tree from) a
// delivered project file. The approver chain is submitter → team leader → admin.
type MetadataRecord struct {
	Filename         string    `json:"filename"`
	Team             string    `json:"team"`
	Year             string    `json:"year"`
	Submitter        string    `json:"submitter"`
	ApproverChain    []string  `json:"approver_chain"`
	ApprovedAt       time.Time `json:"approved_at"`
	Description      string    `json:"description,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	SourceUploadPath string    `json:"source_upload_path"`
	FinalPath        string    `json:"final_path,omitempty"`
}
