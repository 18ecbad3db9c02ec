package types

import "time"

// EvidenceFile describes a supporting document attached to a stage or a
// budget item. Only metadata is kept; the file itself lives elsewhere.
type EvidenceFile struct {
	Name       string    `json:"name" yaml:"name"`
	URL        string    `json:"url" yaml:"url"`
	Size       int64     `json:"size,omitempty" yaml:"size,omitempty"`
	UploadedAt time.Time `json:"uploaded_at,omitempty" yaml:"uploaded_at,omitempty"`
}

// cloneEvidence returns a copy so list snapshots never share backing arrays.
func cloneEvidence(files []EvidenceFile) []EvidenceFile {
	if files == nil {
		return nil
	}
	out := make([]EvidenceFile, len(files))
	copy(out, files)
	return out
}
