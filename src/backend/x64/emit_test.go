package x64

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"bxc/src/ir"
)

// addProg builds the TAC for a single procedure add(a, b) { return a+b; },
// hand-assembled the way the lowering pass would produce it, to exercise the
// emitter in isolation from the frontend.
func addProg() *ir.Program {
	body := []ir.BodyItem{
		&ir.Instr{Opcode: ir.OpAdd, Args: []interface{}{"%0", "%1"}, Result: "%2"},
		&ir.Instr{Opcode: ir.OpRet, Args: []interface{}{"%2"}},
	}
	return &ir.Program{
		Procs: []*ir.Proc{
			{Name: "add", Params: []string{"%0", "%1"}, Depth: 0, Body: body},
		},
	}
}

func TestEmitOrdersOperandsSourceFirst(t *testing.T) {
	asm, err := (&Target{}).Emit(addProg())
	require.NoError(t, err)

	// AT&T movq is "src, dst": loading param register %rdi into the first
	// local slot must read "movq %rdi, -8(%rbp)", never the reverse.
	require.Contains(t, asm, "movq\t%rdi, -8(%rbp)")
	require.Contains(t, asm, "movq\t%rsi, -16(%rbp)")
	require.Contains(t, asm, "addq\t")
	require.Contains(t, asm, "retq")
}

func TestEmitDataSection(t *testing.T) {
	prog := &ir.Program{
		Vars: []*ir.Var{{Name: "counter", Init: 42}},
	}
	asm, err := (&Target{}).Emit(prog)
	require.NoError(t, err)
	require.True(t, strings.Contains(asm, ".data"))
	require.Contains(t, asm, "counter:")
	require.Contains(t, asm, ".quad\t42")
}

func TestEmitStaticLinkCall(t *testing.T) {
	depth := 1
	body := []ir.BodyItem{
		&ir.Instr{Opcode: ir.OpParam, Args: []interface{}{1, "%0"}},
		&ir.Instr{Opcode: ir.OpCall, Args: []interface{}{"helper", 1}, Result: "%1", LinkDepth: &depth},
		&ir.Instr{Opcode: ir.OpRet, Args: []interface{}{"%1"}},
	}
	prog := &ir.Program{
		Procs: []*ir.Proc{{Name: "caller", Params: []string{"%0"}, Depth: 1, Body: body}},
	}
	asm, err := (&Target{}).Emit(prog)
	require.NoError(t, err)
	require.Contains(t, asm, "24(%r12)")
	require.Contains(t, asm, "callq\thelper")
}

func TestTargetName(t *testing.T) {
	require.Equal(t, "x64-linux", (&Target{}).Name())
}

// TestEmitMixedDepthOperandsDoNotAliasR12 is a regression test: an earlier
// draft computed both operands' addresses up front before consuming either,
// so a binary op combining captures from two different static-link depths
// would read the first operand through the second operand's %r12 walk.
// Loading op1 into %r11 must happen before op2's chain walk overwrites %r12.
func TestEmitMixedDepthOperandsDoNotAliasR12(t *testing.T) {
	body := []ir.BodyItem{
		&ir.Instr{Opcode: ir.OpAdd, Args: []interface{}{"%0:1", "%1:2"}, Result: "%2"},
		&ir.Instr{Opcode: ir.OpRet, Args: []interface{}{"%2"}},
	}
	prog := &ir.Program{
		Procs: []*ir.Proc{{Name: "nested", Depth: 2, Body: body}},
	}
	asm, err := (&Target{}).Emit(prog)
	require.NoError(t, err)

	// The lhs (depth 1) must be moved into %r11 before the rhs (depth 2) chain
	// walk starts, so the second walk's %r12 mutation can't affect the value
	// already captured for lhs.
	lhsLoad := strings.Index(asm, "movq\t-8(%r12), %r11")
	rhsWalkStart := strings.LastIndex(asm, "movq\t%rbp, %r12")
	require.GreaterOrEqual(t, lhsLoad, 0, "expected lhs to be read from its one-hop chain")
	require.Greater(t, rhsWalkStart, lhsLoad, "rhs's chain walk must start after lhs was already loaded into %%r11")
}
