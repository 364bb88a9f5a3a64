package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelGatesOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer func() {
		SetLevel("info")
		SetOutput(nil)
	}()

	SetLevel("warn")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")

	// Unknown names fall back to info instead of muting the log.
	buf.Reset()
	SetLevel("loud")
	Infof("visible again")
	assert.Contains(t, buf.String(), "visible again")
}

func TestNilOutputFallsBackToStdout(t *testing.T) {
	defer SetOutput(nil)
	SetOutput(nil)
	assert.NotNil(t, current())
	assert.NotPanics(t, func() { Debugf("noop") })
}
