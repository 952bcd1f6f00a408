package flvmeta_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autobrr/go-flvmeta/pkg/flvmeta"
)

func TestProxyAPI(t *testing.T) {
	var _ flvmeta.Result
	var _ flvmeta.Policy = flvmeta.PolicyFix

	_, err := flvmeta.Update(bytes.NewReader([]byte("FLV")), &bytes.Buffer{}, flvmeta.Options{})
	assert.Error(t, err)

	p, err := flvmeta.ParsePolicy("ignore")
	assert.NoError(t, err)
	assert.Equal(t, flvmeta.PolicyIgnore, p)
}
