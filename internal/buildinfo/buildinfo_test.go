package buildinfo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintBuildData(t *testing.T) {
	orig := buildVersion
	t.Cleanup(func() { buildVersion = orig })

	buildVersion = "v1.2.3"
	var buf bytes.Buffer
	PrintBuildData(&buf)

	assert.Contains(t, buf.String(), "Build version: v1.2.3")
	assert.Contains(t, buf.String(), "Build date: N/A")
	assert.Contains(t, buf.String(), "Build commit: N/A")
}
