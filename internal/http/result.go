package httpapi

// Result 统一响应信封
// - code: 2000 成功，其它为错误码
// - type: 'success' | 'error' | 'warning'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultNoOp transfer to the room the equipment is already in (HTTP 409, type warning)
	ResultNoOp = 40900
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

func NoOp(message string) Result[any] {
	return Result[any]{Code: ResultNoOp, Type: "warning", Message: message, Result: nil}
}
