package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// PawCare service errors (AA = 20).
var (
	// ErrInvalidQuery indicates a blank chat message.
	ErrInvalidQuery = Register(New(MakeCode(ServicePawCare, CategoryRequest, 1),
		http.StatusBadRequest, codes.InvalidArgument,
		"Message is required", "消息不能为空"))

	// ErrInvalidImage indicates image bytes that could not be decoded.
	ErrInvalidImage = Register(New(MakeCode(ServicePawCare, CategoryRequest, 2),
		http.StatusBadRequest, codes.InvalidArgument,
		"Invalid image payload", "图片数据无效"))

	// ErrEmptyInput indicates that no usable text was found. Non-fatal.
	ErrEmptyInput = Register(New(MakeCode(ServicePawCare, CategoryRequest, 3),
		http.StatusBadRequest, codes.InvalidArgument,
		"No usable text found", "未找到可用文本"))

	// ErrDirectoryNotFound indicates the ingestion path is missing or not a directory.
	ErrDirectoryNotFound = Register(New(MakeCode(ServicePawCare, CategoryResource, 1),
		http.StatusNotFound, codes.NotFound,
		"Directory not found", "目录不存在"))

	// ErrDimensionMismatch is logged when an embedding is padded or truncated.
	ErrDimensionMismatch = Register(New(MakeCode(ServicePawCare, CategoryInternal, 1),
		http.StatusInternalServerError, codes.Internal,
		"Embedding dimension mismatch", "向量维度不匹配"))

	// ErrClassificationFailed is absorbed into an UNCERTAIN classification.
	ErrClassificationFailed = Register(New(MakeCode(ServicePawCare, CategoryInternal, 2),
		http.StatusInternalServerError, codes.Internal,
		"Urgency classification failed", "紧急程度分类失败"))

	// ErrImageAnalysisFailed is absorbed into an explanatory image summary.
	ErrImageAnalysisFailed = Register(New(MakeCode(ServicePawCare, CategoryInternal, 3),
		http.StatusInternalServerError, codes.Internal,
		"Image analysis failed", "图片分析失败"))

	// ErrAnswerFailed indicates retrieval or generation failed for a chat answer.
	ErrAnswerFailed = Register(New(MakeCode(ServicePawCare, CategoryInternal, 4),
		http.StatusInternalServerError, codes.Internal,
		"Answer generation failed", "回答生成失败"))

	// ErrIndexFailed indicates the ingestion upsert phase failed.
	ErrIndexFailed = Register(New(MakeCode(ServicePawCare, CategoryInternal, 5),
		http.StatusInternalServerError, codes.Internal,
		"Document indexing failed", "文档索引失败"))

	// ErrStoreUnavailable indicates the vector store could not be reached.
	ErrStoreUnavailable = Register(New(MakeCode(ServicePawCare, CategoryNetwork, 1),
		http.StatusServiceUnavailable, codes.Unavailable,
		"Vector store unavailable", "向量存储不可用"))

	// ErrConfiguration indicates missing credentials or endpoint identifiers.
	ErrConfiguration = Register(New(MakeCode(ServicePawCare, CategoryConfig, 1),
		http.StatusInternalServerError, codes.FailedPrecondition,
		"Service is not configured", "服务配置缺失"))
)
