package responses

// CreatePostResponse is returned with 201 after a post is stored.
type CreatePostResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	PostID  string `json:"postId"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func BuildCreatePostResponse(postID string) *CreatePostResponse {
	return &CreatePostResponse{
		Success: true,
		Message: "Post created successfully",
		PostID:  postID,
	}
}

func BuildDeletePostResponse() *MessageResponse {
	return &MessageResponse{
		Success: true,
		Message: "Post deleted successfully",
	}
}
