package global

// Error codes carried in ValidationError.Code
const (
	CodeRequired          = "required"
	CodeInvalidFormat     = "invalid_format"
	CodeInvalidStatus     = "invalid_status"
	CodeInvalidTransition = "invalid_transition"
	CodeInvalidRange      = "invalid_range"
	CodeJSONParse         = "json_parse_error"
	CodeMultipartParse    = "multipart_parse_error"
	CodeEmptyCart         = "empty_cart"
	CodeUnauthorized      = "unauthorized"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type APIResponse struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

func SuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

func ErrorResponse(message string, errors []ValidationError) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Errors:  errors,
	}
}

// FieldError is the single-field error list most handlers answer with
func FieldError(field, message, code string) []ValidationError {
	return []ValidationError{{Field: field, Message: message, Code: code}}
}
