package responses

import (
	"github.com/murmurhq/murmur-server/services/media-api/internal/domain/media"
)

// UploadResponse is returned with 201 after a file is stored.
type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	MediaID string `json:"mediaId"`
	URL     string `json:"url"`
}

// BuildUploadResponse creates response from domain object
func BuildUploadResponse(obj *media.MediaObject) *UploadResponse {
	return &UploadResponse{
		Success: true,
		Message: "Media uploaded successfully",
		MediaID: obj.ID,
		URL:     obj.URL,
	}
}

// ListResponse wraps every media record.
type ListResponse struct {
	Success bool                `json:"success"`
	Data    []media.MediaObject `json:"data"`
}

// BuildListResponse creates the listing response
func BuildListResponse(items []media.MediaObject) *ListResponse {
	return &ListResponse{
		Success: true,
		Data:    items,
	}
}
