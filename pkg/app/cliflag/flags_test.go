package cliflag

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

func TestNamedFlagSets_Order(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("http").String("http.addr", ":8100", "listen address")
	fss.FlagSet("pipeline").Int("pipeline.top-k", 5, "top k")
	fss.FlagSet("http").Duration("http.read-timeout", 0, "read timeout")

	assert.Equal(t, []string{"http", "pipeline"}, fss.Order)

	fs := pflag.NewFlagSet("all", pflag.ContinueOnError)
	fss.AddTo(fs)
	assert.NotNil(t, fs.Lookup("http.addr"))
	assert.NotNil(t, fs.Lookup("pipeline.top-k"))
}

func TestPrintSections(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("milvus").String("milvus.address", "localhost:19530", "Milvus server address")
	fss.FlagSet("empty")

	var buf bytes.Buffer
	PrintSections(&buf, fss, 0)
	assert.Contains(t, buf.String(), "Milvus flags:")
	assert.Contains(t, buf.String(), "--milvus.address")
	assert.NotContains(t, buf.String(), "Empty flags:")
}
