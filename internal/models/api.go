package models

// CriteriaResponse wraps the current draft in the API response.
type CriteriaResponse struct {
	Data Draft `json:"data"`
}

// SubmitResponse is returned when a search has been accepted.
type SubmitResponse struct {
	Tag   uint64 `json:"tag"`
	Phase string `json:"phase"`
}

// SearchError describes a failed search so the user can tell a connectivity
// problem from a rejection by the service.
type SearchError struct {
	Kind       string `json:"kind"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
}

// SearchStateResponse is the serialized search state.
type SearchStateResponse struct {
	Phase     string          `json:"phase"`
	Tag       uint64          `json:"tag,omitempty"`
	Draft     Draft           `json:"draft"`
	Criteria  *SearchCriteria `json:"criteria,omitempty"`
	Locations []Location      `json:"locations"`
	Error     *SearchError    `json:"error,omitempty"`
}

// ErrorResponse represents an error response from the API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}
