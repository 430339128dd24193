package media

import "time"

// MediaObject represents stored media metadata.
type MediaObject struct {
	ID           string    `json:"id"`
	PublicID     string    `json:"publicId"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Bytes        int64     `json:"bytes"`
	URL          string    `json:"url"`
	UserID       string    `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UploadInput is one uploaded file, already read into memory.
type UploadInput struct {
	UserID       string
	OriginalName string
	Data         []byte
}

// CascadeResult aggregates per-id outcomes of one post.deleted cascade.
type CascadeResult struct {
	Deleted int `json:"deleted"`
	Missing int `json:"missing"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Total is the number of ids the cascade looked at.
func (r CascadeResult) Total() int {
	return r.Deleted + r.Missing + r.Failed + r.Skipped
}
