package frontend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bxc/src/ast"
	"bxc/src/util"
)

func TestParseMinimalProgram(t *testing.T) {
	src := `
var counter = 0 : int;

def add(a: int, b: int): int {
	return a + b;
}

def main() {
	var x = add(1, 2) : int;
	print(x);
}
`
	rep := util.NewReporter()
	prog, ok := Parse(src, rep)
	require.True(t, ok, "unexpected diagnostics: %v", rep.All())
	require.Len(t, prog.Globals, 1)
	require.Equal(t, "counter", prog.Globals[0].Name.Ident)
	require.Len(t, prog.Procs, 2)
	require.Equal(t, "add", prog.Procs[0].Name.Ident)
	require.Equal(t, "main", prog.Procs[1].Name.Ident)

	ret, ok := prog.Procs[0].Body.Stmts[0].(*ast.Return)
	require.True(t, ok)
	bin, ok := ret.Value.(*ast.BinaryOp)
	require.True(t, ok)
	require.Equal(t, "+", bin.Op)
}

func TestParsePrecedence(t *testing.T) {
	// "||" binds loosest, "*" binds tightest: 1 || 2 && 3 == 4 + 5 * 6 parses as
	// 1 || (2 && (3 == (4 + (5 * 6)))).
	src := `
def main() {
	var x = 1 || 2 && 3 == 4 + 5 * 6 : bool;
}
`
	rep := util.NewReporter()
	prog, ok := Parse(src, rep)
	require.True(t, ok, "unexpected diagnostics: %v", rep.All())

	decl := prog.Procs[0].Body.Stmts[0].(*ast.VarDecl)
	orOr := decl.Init.(*ast.BinaryOp)
	require.Equal(t, "||", orOr.Op)

	andAnd := orOr.Right.(*ast.BinaryOp)
	require.Equal(t, "&&", andAnd.Op)

	eq := andAnd.Right.(*ast.BinaryOp)
	require.Equal(t, "==", eq.Op)

	add := eq.Right.(*ast.BinaryOp)
	require.Equal(t, "+", add.Op)

	mul := add.Right.(*ast.BinaryOp)
	require.Equal(t, "*", mul.Op)
}

func TestParseNestedProc(t *testing.T) {
	src := `
def main() {
	def helper(n: int): int {
		return n;
	}
	print(helper(1));
}
`
	rep := util.NewReporter()
	prog, ok := Parse(src, rep)
	require.True(t, ok, "unexpected diagnostics: %v", rep.All())

	nested, ok := prog.Procs[0].Body.Stmts[0].(*ast.NestedProc)
	require.True(t, ok)
	require.Equal(t, "helper", nested.Decl.Name.Ident)
}

func TestParseReportsSyntaxError(t *testing.T) {
	src := `def main() { var x = ; }`
	rep := util.NewReporter()
	_, ok := Parse(src, rep)
	require.False(t, ok)
	require.Greater(t, rep.Len(), 0)
}

func TestLexerSingleCharAndMultiCharOperators(t *testing.T) {
	l := newLexer("a <= b && c", lexGlobal)
	go l.run()

	want := []itemType{IDENTIFIER, LE, IDENTIFIER, ANDAND, IDENTIFIER, itemEOF}
	for _, w := range want {
		it := l.nextItem()
		require.Equal(t, w, it.typ)
	}
}

func TestParseRejectsOutOfRangeIntLiteral(t *testing.T) {
	src := `
def main() {
	var x = 99999999999999999999 : int;
}
`
	rep := util.NewReporter()
	_, ok := Parse(src, rep)
	require.False(t, ok)
	require.Greater(t, rep.Len(), 0)
}

func TestParseAcceptsMinIntLiteralUnderUnaryMinus(t *testing.T) {
	// 9223372036854775808 is 2^63, one past the ordinary [0, 2^63-1] literal
	// bound; it is only legal directly under a unary minus, where it denotes
	// MinInt64 (spec.md:245's "-2^63 accepted" boundary case).
	src := `
def main() {
	var x = -9223372036854775808 : int;
}
`
	rep := util.NewReporter()
	prog, ok := Parse(src, rep)
	require.True(t, ok, "unexpected diagnostics: %v", rep.All())

	decl := prog.Procs[0].Body.Stmts[0].(*ast.VarDecl)
	neg := decl.Init.(*ast.UnaryOp)
	require.Equal(t, "-", neg.Op)
	lit := neg.Operand.(*ast.IntLit)
	require.Equal(t, uint64(1)<<63, lit.Value)
}

func TestParseRejectsTwoToThe63WithoutUnaryMinus(t *testing.T) {
	// The same digit string with no leading minus has no legal INT value
	// (its magnitude alone exceeds 2^63-1) and must still be rejected.
	src := `
def main() {
	var x = 9223372036854775808 : int;
}
`
	rep := util.NewReporter()
	_, ok := Parse(src, rep)
	require.False(t, ok)
	require.Greater(t, rep.Len(), 0)
}

func TestParseAcceptsMaxIntLiteral(t *testing.T) {
	src := `
def main() {
	var x = 9223372036854775807 : int;
}
`
	rep := util.NewReporter()
	prog, ok := Parse(src, rep)
	require.True(t, ok, "unexpected diagnostics: %v", rep.All())
	decl := prog.Procs[0].Body.Stmts[0].(*ast.VarDecl)
	lit := decl.Init.(*ast.IntLit)
	require.Equal(t, uint64(9223372036854775807), lit.Value)
}

func TestKeywordLookup(t *testing.T) {
	for _, s := range []string{"def", "int", "bool", "main", "print", "var", "true", "false", "if", "else", "while", "break", "continue", "return"} {
		_, ok := keyword(s)
		require.True(t, ok, "expected %q to be a keyword", s)
	}
	_, ok := keyword("notakeyword")
	require.False(t, ok)
}
