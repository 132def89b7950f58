package model

// UserListResponse is the envelope for the admin user listing endpoint.
type UserListResponse struct {
	Users      []map[string]interface{} `json:"users"`
	Page       int                      `json:"page"`
	Total      int64                    `json:"total"`
	TotalPages int                      `json:"totalPages"`
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
// Context carries field-level validation details when present.
type ErrorDetail struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}
