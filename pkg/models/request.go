package models

// ValuesRequest represents a request for variable values.
type ValuesRequest struct {
	ExecutionContext
	PrevSelection    *string `json:"prevSelection"`
	DefaultSelection *string `json:"defaultSelection"`
}

// BatchValuesRequest represents a request for values of several variables.
type BatchValuesRequest struct {
	Variables []ValuesRequest `json:"variables"`
}

// BatchValuesResponse contains values of requested variables in the request order.
type BatchValuesResponse struct {
	Variables []*VariableValues `json:"variables"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
