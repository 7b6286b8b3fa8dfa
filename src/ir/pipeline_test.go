package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bxc/src/ast"
	"bxc/src/frontend"
	"bxc/src/ir"
	"bxc/src/util"
)

// checkProgram runs Parse -> PreTyper -> TypeChecker, failing the test on any
// diagnostic, and returns the program plus the procedure-declaration map
// ir.NewLowerer expects.
func checkProgram(t *testing.T, src string) (*ast.Program, map[string]*ast.ProcDecl) {
	t.Helper()
	rep := util.NewReporter()
	prog, ok := frontend.Parse(src, rep)
	require.True(t, ok, "parse diagnostics: %v", rep.All())

	pre := ir.NewPreTyper(rep)
	globals := pre.Run(prog)
	require.Equal(t, 0, rep.Len(), "pretyper diagnostics: %v", rep.All())

	checker := ir.NewTypeChecker(rep, pre.Procs, globals)
	checker.Run(prog)
	require.Equal(t, 0, rep.Len(), "typecheck diagnostics: %v", rep.All())

	decls := make(map[string]*ast.ProcDecl, len(pre.Procs))
	for name, sig := range pre.Procs {
		decls[name] = sig.Decl
	}
	return prog, decls
}

func TestTypeCheckRejectsMismatch(t *testing.T) {
	src := `
def main() {
	var x = 1 : bool;
}
`
	rep := util.NewReporter()
	prog, ok := frontend.Parse(src, rep)
	require.True(t, ok)

	pre := ir.NewPreTyper(rep)
	globals := pre.Run(prog)
	require.Equal(t, 0, rep.Len())

	checker := ir.NewTypeChecker(rep, pre.Procs, globals)
	checker.Run(prog)
	require.Greater(t, rep.Len(), 0)
}

func TestBreakOutsideLoopRejected(t *testing.T) {
	src := `
def main() {
	break;
}
`
	rep := util.NewReporter()
	prog, ok := frontend.Parse(src, rep)
	require.True(t, ok)

	pre := ir.NewPreTyper(rep)
	globals := pre.Run(prog)
	require.Equal(t, 0, rep.Len())

	checker := ir.NewTypeChecker(rep, pre.Procs, globals)
	checker.Run(prog)
	require.Greater(t, rep.Len(), 0)
}

func TestLowerAddProgram(t *testing.T) {
	src := `
def add(a: int, b: int): int {
	return a + b;
}

def main() {
	print(add(1, 2));
}
`
	prog, decls := checkProgram(t, src)

	lowerer := ir.NewLowerer(decls)
	tac := lowerer.Lower(prog)
	require.Len(t, tac.Procs, 2)

	var addProc, mainProc *ir.Proc
	for _, p := range tac.Procs {
		switch p.Name {
		case "add":
			addProc = p
		case "main":
			mainProc = p
		}
	}
	require.NotNil(t, addProc)
	require.NotNil(t, mainProc)
	require.Len(t, addProc.Params, 2)

	foundAdd := false
	for _, item := range addProc.Body {
		if instr, ok := item.(*ir.Instr); ok && instr.Opcode == ir.OpAdd {
			foundAdd = true
		}
	}
	require.True(t, foundAdd)

	foundCall := false
	for _, item := range mainProc.Body {
		if instr, ok := item.(*ir.Instr); ok && instr.Opcode == ir.OpCall && instr.Args[0] != "print_int" {
			require.Equal(t, "add", instr.Args[0])
			foundCall = true
		}
	}
	require.True(t, foundCall)
}

func TestLowerNestedProcStaticLink(t *testing.T) {
	src := `
def main() {
	var x = 10 : int;
	def helper(): int {
		return x;
	}
	print(helper());
}
`
	prog, decls := checkProgram(t, src)

	lowerer := ir.NewLowerer(decls)
	tac := lowerer.Lower(prog)

	var mainProc *ir.Proc
	for _, p := range tac.Procs {
		if p.Name == "main" {
			mainProc = p
		}
	}
	require.NotNil(t, mainProc)

	found := false
	for _, item := range mainProc.Body {
		if instr, ok := item.(*ir.Instr); ok && instr.Opcode == ir.OpCall && instr.Args[0] == "helper" {
			require.NotNil(t, instr.LinkDepth)
			require.Equal(t, 0, *instr.LinkDepth)
			found = true
		}
	}
	require.True(t, found)
}

func TestTopLevelProcCollidingWithGlobalRejected(t *testing.T) {
	src := `
var foo = 0 : int;

def foo() {
}

def main() {
}
`
	rep := util.NewReporter()
	prog, ok := frontend.Parse(src, rep)
	require.True(t, ok)

	pre := ir.NewPreTyper(rep)
	pre.Run(prog)
	require.Greater(t, rep.Len(), 0)
}

func TestGlobalNonLiteralInitializerRejected(t *testing.T) {
	src := `
var x = 1 + 1 : int;

def main() {
}
`
	rep := util.NewReporter()
	prog, ok := frontend.Parse(src, rep)
	require.True(t, ok)

	pre := ir.NewPreTyper(rep)
	pre.Run(prog)
	require.Greater(t, rep.Len(), 0)
}

func TestGlobalLiteralTypeMismatchRejected(t *testing.T) {
	src := `
var x = true : int;

def main() {
}
`
	rep := util.NewReporter()
	prog, ok := frontend.Parse(src, rep)
	require.True(t, ok)

	pre := ir.NewPreTyper(rep)
	pre.Run(prog)
	require.Greater(t, rep.Len(), 0)
}

func TestNestedProcInsideIfIsRegisteredAndLowered(t *testing.T) {
	src := `
def main() {
	var x = 1 : int;
	if (x == 1) {
		def helper(): int {
			return x;
		}
		print(helper());
	}
}
`
	prog, decls := checkProgram(t, src)

	lowerer := ir.NewLowerer(decls)
	tac := lowerer.Lower(prog)
	require.Len(t, tac.Procs, 2)

	names := map[string]bool{}
	for _, p := range tac.Procs {
		names[p.Name] = true
	}
	require.True(t, names["main"])
	require.True(t, names["helper"])
}

func TestLowerGlobalsAsData(t *testing.T) {
	src := `
var counter = 5 : int;

def main() {
	print(counter);
}
`
	prog, decls := checkProgram(t, src)
	tac := ir.NewLowerer(decls).Lower(prog)
	require.Len(t, tac.Vars, 1)
	require.Equal(t, "counter", tac.Vars[0].Name)
	require.Equal(t, int64(5), tac.Vars[0].Init)
}
