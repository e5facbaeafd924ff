package response

// Response is the envelope for every JSON body the API returns
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorData describes a failed request
type ErrorData struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Meta carries pagination info for list responses
type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Error codes
const (
	ErrCodeBadRequest            = "BAD_REQUEST"
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeConflict              = "CONFLICT"
	ErrCodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
	ErrCodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// Success wraps data in a success envelope
func Success(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// Paginated wraps a page of data with its pagination meta
func Paginated(data interface{}, page, perPage int, total int64) Response {
	totalPages := 0
	if perPage > 0 {
		totalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

// Error builds an error envelope
func Error(code, message string) Response {
	return Response{
		Success: false,
		Error:   &ErrorData{Code: code, Message: message},
	}
}

// ErrorWithDetails builds an error envelope carrying extra context
func ErrorWithDetails(code, message string, details interface{}) Response {
	r := Error(code, message)
	r.Error.Details = details
	return r
}

func BadRequest(message string) Response {
	return Error(ErrCodeBadRequest, message)
}

func ValidationError(message string, details interface{}) Response {
	return ErrorWithDetails(ErrCodeValidation, message, details)
}

func Unauthorized(message string) Response {
	return Error(ErrCodeUnauthorized, message)
}

func Forbidden(message string) Response {
	return Error(ErrCodeForbidden, message)
}

func NotFound(message string) Response {
	return Error(ErrCodeNotFound, message)
}

func Conflict(message string) Response {
	return Error(ErrCodeConflict, message)
}

func ServiceUnavailable(message string) Response {
	return Error(ErrCodeServiceUnavailable, message)
}

func InternalError(message string) Response {
	return Error(ErrCodeInternal, message)
}
