package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func reset() {
	SetDebug(false)
	SetOutput(os.Stderr)
	exit = os.Exit
}

func TestDebugf_WhenDebug(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetDebug(true)

	Debugf("🔄 connecting to %s", "qdrant")

	assert.Equal(t, "🔄 connecting to qdrant\n", buf.String())
	assert.True(t, IsDebug())
}

func TestDebugf_WhenNotDebug(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetDebug(false)

	Debugf("hidden")

	assert.Zero(t, buf.Len())
}

func TestInfof_IgnoresDebug(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Infof("📚 %d documents", 3)

	assert.Equal(t, "📚 3 documents\n", buf.String())
}

func TestFatal(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	code := -1
	exit = func(c int) { code = c }

	Fatal(errors.New("boom"))

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "logging_test.go")
	assert.Contains(t, buf.String(), "boom")
}
