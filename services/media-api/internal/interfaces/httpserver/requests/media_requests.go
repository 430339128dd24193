package requests

import "mime/multipart"

// UploadForm is the multipart body of POST /api/media/upload.
type UploadForm struct {
	File *multipart.FileHeader `form:"file" binding:"required"`
}
