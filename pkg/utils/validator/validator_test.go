package validator

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Query string `json:"query" validate:"required,notblank"`
	Image string `json:"image_base64" validate:"omitempty,imagebase64"`
	Role  string `json:"role" validate:"omitempty,oneof=user assistant"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	req := chatRequest{
		Query: "my dog ate chocolate",
		Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 0x50}),
	}
	assert.NoError(t, v.Validate(req))
}

func TestValidate_BlankQuery(t *testing.T) {
	v := New()
	err := v.Validate(chatRequest{Query: "   "})
	require.Error(t, err)

	var verr *ValidationErrors
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "query", verr.Errors[0].Field)
	assert.Equal(t, TagNotBlank, verr.Errors[0].Tag)
	assert.Equal(t, "query must not be blank", verr.First())
}

func TestValidate_BadImage(t *testing.T) {
	verr := New().ValidateWithLang(chatRequest{Query: "q", Image: "not base64!!"}, LangZH)
	require.NotNil(t, verr)
	assert.Equal(t, "image_base64", verr.Errors[0].Field)
	assert.Contains(t, verr.First(), "base64")
	assert.Equal(t, 1, verr.ToMap()["count"])
	assert.Contains(t, verr.Fields(), "image_base64")
}

func TestDecodeImageBase64(t *testing.T) {
	raw := []byte("jpeg-bytes")
	enc := base64.StdEncoding.EncodeToString(raw)

	got, err := DecodeImageBase64(enc)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = DecodeImageBase64("data:image/jpeg;base64," + enc)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestGinValidator(t *testing.T) {
	g := GinValidator{V: Global()}
	assert.NoError(t, g.ValidateStruct(nil))
	assert.NoError(t, g.ValidateStruct([]int{1}))
	assert.Error(t, g.ValidateStruct(&chatRequest{}))
	assert.NotNil(t, g.Engine())
}
