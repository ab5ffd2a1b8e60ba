package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// OK is the code carried by every successful response envelope.
var OK = Register(New(0, http.StatusOK, codes.OK, "Success", "成功"))

// Shared request errors.
var (
	ErrBadRequest = Register(New(MakeCode(ServiceCommon, CategoryRequest, 0),
		http.StatusBadRequest, codes.InvalidArgument,
		"Bad request", "请求错误"))

	// ErrInvalidParam carries the first translated validation message.
	ErrInvalidParam = Register(New(MakeCode(ServiceCommon, CategoryRequest, 1),
		http.StatusBadRequest, codes.InvalidArgument,
		"Invalid parameter", "参数无效"))

	ErrRequestTooLarge = Register(New(MakeCode(ServiceCommon, CategoryRequest, 2),
		http.StatusRequestEntityTooLarge, codes.InvalidArgument,
		"Request body too large", "请求体过大"))

	ErrRouteNotFound = Register(New(MakeCode(ServiceCommon, CategoryResource, 4),
		http.StatusNotFound, codes.NotFound,
		"Route not found", "路由不存在"))
)

// Shared server-side errors.
var (
	// ErrTooManyRequests is returned when the background pool refuses a job.
	ErrTooManyRequests = Register(New(MakeCode(ServiceCommon, CategoryRateLimit, 0),
		http.StatusTooManyRequests, codes.ResourceExhausted,
		"Too many requests", "请求过于频繁"))

	// ErrInternal wraps any error that is not already an Errno.
	ErrInternal = Register(New(MakeCode(ServiceCommon, CategoryInternal, 0),
		http.StatusInternalServerError, codes.Internal,
		"Internal server error", "服务器内部错误"))

	ErrPanic = Register(New(MakeCode(ServiceCommon, CategoryInternal, 1),
		http.StatusInternalServerError, codes.Internal,
		"Internal server error", "服务器内部错误"))
)
