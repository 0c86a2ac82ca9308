package compiler

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileCleanProgram(t *testing.T) {
	src := `
struct Point { int x; int y; };

type struct Point* int manhattanTo:(struct Point*) other {
	int dx = self->x - other->x;
	int dy = self->y - other->y;
	if (dx < 0) { dx = -dx; }
	if (dy < 0) { dy = -dy; }
	return dx + dy;
}

int main() {
	struct Point a;
	struct Point b;
	a.x = 1; a.y = 2;
	b.x = 4; b.y = 6;
	return [&a manhattanTo:&b];
}
`
	var out bytes.Buffer
	mod, diags, err := Compile(src, "points.ds", &out, Options{})
	require.NoError(t, err)
	require.NotNil(t, mod)
	assert.Zero(t, diags.ErrorCount())
	assert.Empty(t, out.String())
	assert.Equal(t, "points", mod.Name)
}

func TestCompileReportsAndGates(t *testing.T) {
	var out bytes.Buffer
	mod, diags, err := Compile("int f() { return missing; }", "bad.ds", &out, Options{})
	require.NoError(t, err, "source errors are diagnostics, not Go errors")
	assert.Nil(t, mod, "no IR for a unit with errors")
	assert.True(t, diags.HasErrors())
	assert.Contains(t, out.String(), `bad.ds:1:18: error: use of undeclared identifier "missing"`)
}

func TestCompileParseErrorSkipsLaterStages(t *testing.T) {
	var out bytes.Buffer
	mod, diags, err := Compile("int f( {", "bad.ds", &out, Options{})
	require.NoError(t, err)
	assert.Nil(t, mod)
	assert.True(t, diags.HasErrors())
	assert.Contains(t, out.String(), "bad.ds:1:")
}

func TestCompileWarningsStillProduceModule(t *testing.T) {
	src := "int f() {\n\treturn 1;\n\tint x = 2;\n}\n"
	var out bytes.Buffer
	mod, diags, err := Compile(src, "warn.ds", &out, Options{})
	require.NoError(t, err)
	require.NotNil(t, mod, "warnings do not gate code generation")
	assert.Zero(t, diags.ErrorCount())
	assert.Equal(t, 1, diags.WarningCount())
	assert.Contains(t, out.String(), "warn.ds:3:2: warning: unreachable code")
}
