package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutput_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf, Options{})
	o.Line(Bad, "[x] failure")
	o.Linef(Good, "[%s] passed", "✓")
	assert.Equal(t, "[x] failure\n[✓] passed\n", buf.String())
}

func TestOutput_DebugGate(t *testing.T) {
	var quiet, loud bytes.Buffer
	New(&quiet, Options{}).Debug("[*] hidden")
	New(&loud, Options{Verbose: true}).Debug("[*] shown")
	assert.Empty(t, quiet.String())
	assert.Equal(t, "[*] shown\n", loud.String())
}

func TestOutput_ForcedColor(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf, Options{Color: ColorAlways})
	o.Line(Bad, "boom")
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "boom")
}

func TestOutput_Block(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{Color: ColorNever}).Block("a\nb\n\n")
	assert.Equal(t, "a\nb\n", buf.String())
}
