// Package httpdto holds the JSON shapes of the chat HTTP surface. Every
// endpoint answers with the same envelope so the pages consuming history,
// unread counters and participants parse one success/error contract.
package httpdto

// Error codes carried in the envelope. Pages branch on the code, not the
// human-readable message.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeRequestFailed  = "REQUEST_FAILED"
	CodeUnauthorized   = "UNAUTHORIZED"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}
