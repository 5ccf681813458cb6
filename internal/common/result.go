// File: internal/common/result.go
package common

// Result is the uniform shape every service operation hands back to callers.
// Raw errors never cross it; Error holds the translated user-facing text.
// Pending marks a success that is only stored on this device so far.
type Result[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
	Message string    `json:"message,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Code    string    `json:"code,omitempty"`
	Pending bool      `json:"pending,omitempty"`
}

func OK[T any](data T, message string) Result[T] {
	return Result[T]{Success: true, Data: data, Message: message}
}

// Fail builds a failed result from err, classifying it and mapping it to a user message.
func Fail[T any](err error) Result[T] {
	return Result[T]{
		Success: false,
		Error:   UserMessage(err),
		Kind:    KindOf(err),
		Code:    CodeOf(err),
	}
}

// Carry re-types r without its data, for handing a collaborator's outcome up unchanged.
func Carry[T, U any](r Result[U]) Result[T] {
	return Result[T]{
		Success: r.Success,
		Error:   r.Error,
		Message: r.Message,
		Kind:    r.Kind,
		Code:    r.Code,
		Pending: r.Pending,
	}
}
