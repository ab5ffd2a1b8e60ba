package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestMakeCode(t *testing.T) {
	tests := []struct {
		service, category, sequence int
		expected                    int
	}{
		{0, 0, 0, 0},
		{0, 1, 1, 1001},
		{20, 4, 1, 2004001},
		{20, 12, 1, 2012001},
		{90, 7, 1, 9007001},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d", tt.service, tt.category, tt.sequence), func(t *testing.T) {
			got := MakeCode(tt.service, tt.category, tt.sequence)
			assert.Equal(t, tt.expected, got)

			s, c, q := ParseCode(got)
			assert.Equal(t, []int{tt.service, tt.category, tt.sequence}, []int{s, c, q})
		})
	}
}

func TestClientServerClassification(t *testing.T) {
	assert.True(t, IsClientError(ErrInvalidQuery.Code))
	assert.True(t, IsClientError(ErrDirectoryNotFound.Code))
	assert.False(t, IsClientError(ErrAnswerFailed.Code))
	assert.True(t, IsServerError(ErrAnswerFailed.Code))
	assert.True(t, IsServerError(ErrConfiguration.Code))
}

func TestErrnoWrapping(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := ErrIndexFailed.WithCause(cause)

	assert.Equal(t, "[2007005] Document indexing failed: connection refused", err.Error())
	assert.ErrorIs(t, err, ErrIndexFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrAnswerFailed)

	wrapped := fmt.Errorf("index: %w", err)
	assert.ErrorIs(t, wrapped, ErrIndexFailed)
	assert.Equal(t, ErrIndexFailed.Code, FromError(wrapped).Code)
}

func TestErrnoWithMessage(t *testing.T) {
	err := ErrDirectoryNotFound.WithMessagef("directory %q does not exist", "/tmp/x")

	assert.Equal(t, `directory "/tmp/x" does not exist`, err.MessageEN)
	assert.Equal(t, ErrDirectoryNotFound.Code, err.Code)
	assert.Equal(t, "Directory not found", ErrDirectoryNotFound.MessageEN)
	assert.Equal(t, "目录不存在", err.Message("zh"))
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, ErrDirectoryNotFound.HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, ErrStoreUnavailable.HTTPStatus())
	assert.Equal(t, codes.FailedPrecondition, ErrConfiguration.GRPCStatus())
	assert.Equal(t, http.StatusInternalServerError, (&Errno{Code: 1}).HTTPStatus())
	assert.Equal(t, codes.Internal, (&Errno{Code: 1}).GRPCStatus())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := stderrors.New("boom")
	converted := FromError(plain)
	assert.Equal(t, ErrInternal.Code, converted.Code)
	assert.ErrorIs(t, converted, plain)

	assert.Equal(t, ErrInvalidQuery, FromError(ErrInvalidQuery))
	assert.Equal(t, -1, CodeOf(plain))
	assert.Equal(t, ErrInvalidQuery.Code, CodeOf(fmt.Errorf("chat: %w", ErrInvalidQuery)))
}

func TestRegisterDuplicatePanics(t *testing.T) {
	e, ok := Lookup(ErrEmptyInput.Code)
	require.True(t, ok)
	assert.Same(t, ErrEmptyInput, e)

	assert.Panics(t, func() {
		Register(New(ErrEmptyInput.Code, http.StatusBadRequest, codes.InvalidArgument, "dup", "重复"))
	})
}

func TestFormat(t *testing.T) {
	err := ErrAnswerFailed.WithCause(stderrors.New("deadline exceeded"))
	out := fmt.Sprintf("%+v", err)
	assert.Contains(t, out, "HTTP 500")
	assert.Contains(t, out, "caused by: deadline exceeded")
	assert.Equal(t, err.Error(), fmt.Sprintf("%s", err))
}
