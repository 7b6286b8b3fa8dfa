package arm64

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"bxc/src/ir"
)

func TestEmitParamStoreAndReturn(t *testing.T) {
	body := []ir.BodyItem{
		&ir.Instr{Opcode: ir.OpAdd, Args: []interface{}{"%0", "%1"}, Result: "%2"},
		&ir.Instr{Opcode: ir.OpRet, Args: []interface{}{"%2"}},
	}
	prog := &ir.Program{
		Procs: []*ir.Proc{{Name: "add", Params: []string{"%0", "%1"}, Depth: 0, Body: body}},
	}
	asm, err := (&Target{}).Emit(prog)
	require.NoError(t, err)
	require.Contains(t, asm, "str\tX0, [FP, #-8]")
	require.Contains(t, asm, "str\tX1, [FP, #-16]")
	require.Contains(t, asm, "ret\n")
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
	require.Contains(t, asm, "[X12, #16]")
	require.Contains(t, asm, "bl\t_helper")
}

func TestEmitTopLevelCallPushesZeroLink(t *testing.T) {
	body := []ir.BodyItem{
		&ir.Instr{Opcode: ir.OpParam, Args: []interface{}{1, "%0"}},
		&ir.Instr{Opcode: ir.OpCall, Args: []interface{}{"print_int", 1}},
		&ir.Instr{Opcode: ir.OpRet},
	}
	prog := &ir.Program{
		Procs: []*ir.Proc{{Name: "main", Body: body}},
	}
	asm, err := (&Target{}).Emit(prog)
	require.NoError(t, err)
	require.Contains(t, asm, "str\tXZR, [SP, #-16]!")
}

func TestEmitDataSectionUsesDarwinUnderscorePrefix(t *testing.T) {
	prog := &ir.Program{Vars: []*ir.Var{{Name: "counter", Init: 7}}}
	asm, err := (&Target{}).Emit(prog)
	require.NoError(t, err)
	require.Contains(t, asm, "_counter:")
	require.Contains(t, asm, ".quad\t7")
}

// TestEmitMixedDepthOperandsDoNotAliasX12 is a regression test: an earlier
// draft computed both operands' addresses up front before consuming either,
// so a binary op combining captures from two different static-link depths
// would read the first operand through the second operand's X12 walk.
// Loading op1 into X9 must happen before op2's chain walk overwrites X12.
func TestEmitMixedDepthOperandsDoNotAliasX12(t *testing.T) {
	body := []ir.BodyItem{
		&ir.Instr{Opcode: ir.OpAdd, Args: []interface{}{"%0:1", "%1:2"}, Result: "%2"},
		&ir.Instr{Opcode: ir.OpRet, Args: []interface{}{"%2"}},
	}
	prog := &ir.Program{
		Procs: []*ir.Proc{{Name: "nested", Depth: 2, Body: body}},
	}
	asm, err := (&Target{}).Emit(prog)
	require.NoError(t, err)

	lhsLoad := strings.Index(asm, "ldr\tX9, [X12, #-8]")
	rhsWalkStart := strings.LastIndex(asm, "mov\tX12, FP")
	require.GreaterOrEqual(t, lhsLoad, 0, "expected lhs to be read from its one-hop chain")
	require.Greater(t, rhsWalkStart, lhsLoad, "rhs's chain walk must start after lhs was already loaded into X9")
}

func TestEmitModHasNoNativeOpcode(t *testing.T) {
	body := []ir.BodyItem{
		&ir.Instr{Opcode: ir.OpMod, Args: []interface{}{"%0", "%1"}, Result: "%2"},
		&ir.Instr{Opcode: ir.OpRet, Args: []interface{}{"%2"}},
	}
	prog := &ir.Program{
		Procs: []*ir.Proc{{Name: "mod", Params: []string{"%0", "%1"}, Body: body}},
	}
	asm, err := (&Target{}).Emit(prog)
	require.NoError(t, err)
	require.Contains(t, asm, "sdiv\tX11, X9, X10")
	require.Contains(t, asm, "mul\tX11, X11, X10")
	require.Contains(t, asm, "sub\tX11, X9, X11")
}
