// Package arm64 implements the ARM64 Darwin assembly backend.
package arm64

import (
	"fmt"

	"bxc/src/backend"
	"bxc/src/ir"
	"bxc/src/util"
)

func init() {
	backend.Register(&Target{})
}

// Target emits Apple-LLVM-syntax AArch64 assembly for Darwin.
//
// Grounded on the original source's bxlib/bxasmgen.py AsmGen_arm64_Darwin:
// the X0..X7 argument registers, the movz/movk immediate-loading chain, the
// cbz/cbnz zero-jumps, the adrp/@PAGE/@PAGEOFF global addressing, and the
// leading-underscore Darwin symbol convention. That draft predates static-link
// support (one of the multiple AST drafts spec.md §9 notes disagree with each
// other); this backend adds a link-word push/walk analogous to the x64
// backend's, since SPEC_FULL.md §3 requires nested-procedure support on both
// targets. The Writer-driven per-procedure emitter shape follows the teacher's
// backend/arm/function.go, generalized from vslc's register-allocated function
// codegen to this spec's fixed-scratch-register TAC walk.
type Target struct{}

// paramRegs is the AAPCS64 integer argument register order.
var paramRegs = [8]string{"X0", "X1", "X2", "X3", "X4", "X5", "X6", "X7"}

// Name implements backend.Target.
func (*Target) Name() string { return "arm64-darwin" }

// Emit implements backend.Target.
func (*Target) Emit(prog *ir.Program) (string, error) {
	w := util.NewWriter()

	if len(prog.Vars) > 0 {
		w.WriteString("\t.data\n")
		for _, v := range prog.Vars {
			sym := "_" + v.Name
			w.Write("\t.globl\t%s\n", sym)
			w.Label(sym)
			w.Write("\t.quad\t%d\n", v.Init)
		}
	}

	w.WriteString("\t.text\n")
	for _, p := range prog.Procs {
		e := &procEmitter{w: w, proc: p}
		if err := e.emit(); err != nil {
			return "", err
		}
	}
	return w.String(), nil
}

// procEmitter mirrors backend/x64's procEmitter: one per procedure, walking
// its flat TAC body against a fixed scratch-register scheme (X9-X12, X15).
type procEmitter struct {
	w       *util.Writer
	proc    *ir.Proc
	nvars   int
	endLbl  string
	pending []string
}

func (e *procEmitter) ldr(dst, src string) { e.w.Write("\tldr\t%s, %s\n", dst, src) }
func (e *procEmitter) str(src, dst string) { e.w.Write("\tstr\t%s, %s\n", src, dst) }
func (e *procEmitter) mov(dst, src string) { e.w.Write("\tmov\t%s, %s\n", dst, src) }

func (e *procEmitter) alu1(op, dst, src string) { e.w.Write("\t%s\t%s, %s\n", op, dst, src) }
func (e *procEmitter) alu2(op, dst, a, b string) {
	e.w.Write("\t%s\t%s, %s, %s\n", op, dst, a, b)
}

func (e *procEmitter) emit() error {
	e.nvars = e.frameSlots()
	e.endLbl = ".E_" + e.proc.Name
	sym := "_" + e.proc.Name

	w := e.w
	w.Write("\t.globl\t%s\n", sym)
	w.Label(sym)

	frame := 8 * e.nvars
	if frame%16 != 0 {
		frame += 8 // SPEC_FULL.md §4.4: local area rounded up to an even slot count.
	}
	w.Write("\tsub\tSP, SP, #%d\n", frame+16)
	w.Write("\tstp\tFP, LR, [SP, #%d]\n", frame)
	w.Write("\tadd\tFP, SP, #%d\n", frame)

	for i, slot := range e.proc.Params {
		dst := e.slotAddr(backend.ParseOperand(slot).Slot, "FP")
		if i < 8 {
			e.str(paramRegs[i], dst)
		} else {
			// Mirrors the x64 backend's derivation: relative to FP, the saved
			// FP/LR pair sits at +0, the link word at +16, and the reserved
			// stack-argument area starts at +32 — i.e. 8*((i-8)+4) = 8*(i-4)
			// for the first stack-passed argument (index 8) onward.
			src := fmt.Sprintf("[FP, #%d]", 8*(i-4))
			e.ldr("X9", src)
			e.str("X9", dst)
		}
	}

	for _, item := range e.proc.Body {
		if err := e.emitItem(item); err != nil {
			return err
		}
	}

	w.Label(e.endLbl)
	w.Write("\tmov\tSP, FP\n")
	w.Write("\tldp\tFP, LR, [SP], #16\n")
	w.Write("\tret\n")
	return nil
}

func (e *procEmitter) frameSlots() int {
	max := -1
	walk := func(s string) { max = backend.MaxSlot(max, s) }
	for _, slot := range e.proc.Params {
		walk(slot)
	}
	for _, item := range e.proc.Body {
		instr, ok := item.(*ir.Instr)
		if !ok {
			continue
		}
		for _, a := range instr.Args {
			if s, ok := a.(string); ok {
				walk(s)
			}
		}
		if instr.Result != "" {
			walk(instr.Result)
		}
	}
	return max + 1
}

// slotAddr renders a local (or static-link-walked) slot's address relative to
// base, materializing the offset through X15 first when it exceeds the ±256
// range ldr/str's signed 9-bit immediate form can encode directly — per
// spec.md's "sub X15, FP, #off; [X15]" fallback.
func (e *procEmitter) slotAddr(slot int, base string) string {
	off := 8 * (slot + 1)
	if off > 256 {
		e.w.Write("\tsub\tX15, %s, #%d\n", base, off)
		return "[X15]"
	}
	return fmt.Sprintf("[%s, #-%d]", base, off)
}

// addr renders a TAC operand as an AArch64 addressing-mode string. A captured
// operand first walks the static-link chain into X12 — one ldr per hop,
// reading the link word each callee's prologue stores at [FP, #16] (see
// emitCall) — mirroring the x64 backend's %r12 chain walk.
func (e *procEmitter) addr(s string) string {
	op := backend.ParseOperand(s)
	switch {
	case op.Global:
		e.w.Write("\tadrp\tX15, %s@PAGE\n", "_"+op.Symbol)
		return fmt.Sprintf("[X15, _%s@PAGEOFF]", op.Symbol)
	case op.Depth == 0:
		return e.slotAddr(op.Slot, "FP")
	default:
		e.mov("X12", "FP")
		for i := 0; i < op.Depth; i++ {
			e.ldr("X12", "[X12, #16]")
		}
		return e.slotAddr(op.Slot, "X12")
	}
}

func (e *procEmitter) argStr(a interface{}) string {
	if s, ok := a.(string); ok {
		return s
	}
	return fmt.Sprint(a)
}

func (e *procEmitter) emitItem(item ir.BodyItem) error {
	switch v := item.(type) {
	case ir.Label:
		e.w.Label(string(v))
		return nil
	case *ir.Instr:
		return e.emitInstr(v)
	default:
		return fmt.Errorf("arm64: unhandled body item %T", item)
	}
}

func (e *procEmitter) emitInstr(instr *ir.Instr) error {
	switch instr.Opcode {
	case ir.OpConst:
		e.emitConst(instr)

	case ir.OpCopy:
		// Each addr() call below is consumed (via ldr/str) before the next one
		// runs: addr's static-link walk clobbers X12 (and its far-offset/global
		// materialization clobbers X15) as a side effect, so computing both
		// addresses upfront and only then reading them back would read dst's X12
		// value while still holding src's address string.
		src := e.addr(e.argStr(instr.Args[0]))
		e.ldr("X9", src)
		dst := e.addr(instr.Result)
		e.str("X9", dst)

	case ir.OpNeg, ir.OpNot:
		src := e.addr(e.argStr(instr.Args[0]))
		e.ldr("X9", src)
		op := "neg"
		if instr.Opcode == ir.OpNot {
			op = "mvn"
		}
		e.alu1(op, "X10", "X9")
		dst := e.addr(instr.Result)
		e.str("X10", dst)

	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpShr:
		e.emitAlu2(instr)

	case ir.OpMul:
		lhs := e.addr(e.argStr(instr.Args[0]))
		e.ldr("X9", lhs)
		rhs := e.addr(e.argStr(instr.Args[1]))
		e.ldr("X10", rhs)
		e.alu2("mul", "X11", "X9", "X10")
		dst := e.addr(instr.Result)
		e.str("X11", dst)

	case ir.OpDiv:
		lhs := e.addr(e.argStr(instr.Args[0]))
		e.ldr("X9", lhs)
		rhs := e.addr(e.argStr(instr.Args[1]))
		e.ldr("X10", rhs)
		e.alu2("sdiv", "X11", "X9", "X10")
		dst := e.addr(instr.Result)
		e.str("X11", dst)

	case ir.OpMod:
		// AArch64 has no native modulus: compute sdiv then recover the
		// remainder as dividend - quotient*divisor.
		lhs := e.addr(e.argStr(instr.Args[0]))
		e.ldr("X9", lhs)
		rhs := e.addr(e.argStr(instr.Args[1]))
		e.ldr("X10", rhs)
		e.alu2("sdiv", "X11", "X9", "X10")
		e.alu2("mul", "X11", "X11", "X10")
		e.alu2("sub", "X11", "X9", "X11")
		dst := e.addr(instr.Result)
		e.str("X11", dst)

	case ir.OpJmp:
		e.w.Write("\tb\t%s\n", e.argStr(instr.Args[0]))

	case ir.OpJz, ir.OpJnz:
		src := e.addr(e.argStr(instr.Args[0]))
		label := e.argStr(instr.Args[1])
		e.ldr("X9", src)
		op := "cbz"
		if instr.Opcode == ir.OpJnz {
			op = "cbnz"
		}
		e.w.Write("\t%s\tX9, %s\n", op, label)

	case ir.OpJlt, ir.OpJle, ir.OpJgt, ir.OpJge:
		src := e.addr(e.argStr(instr.Args[0]))
		label := e.argStr(instr.Args[1])
		e.ldr("X9", src)
		e.w.Write("\tcmp\tX9, #0\n")
		e.w.Write("\tb.%s\t%s\n", condSuffix(instr.Opcode), label)

	case ir.OpParam:
		e.pending = append(e.pending, e.argStr(instr.Args[1]))

	case ir.OpCall:
		e.emitCall(instr)

	case ir.OpRet:
		if len(instr.Args) > 0 {
			src := e.addr(e.argStr(instr.Args[0]))
			e.ldr("X0", src)
		}
		e.w.Write("\tb\t%s\n", e.endLbl)

	default:
		return fmt.Errorf("arm64: unhandled opcode %q", instr.Opcode)
	}
	return nil
}

// emitConst loads an arbitrary 64-bit immediate via a movz/movk chain,
// 16 bits at a time, per bxlib/bxasmgen.py's AsmGen_arm64_Darwin._emit_const.
func (e *procEmitter) emitConst(instr *ir.Instr) {
	dst := e.addr(instr.Result)
	v := toUint64(instr.Args[0])
	e.w.Write("\tmovz\tX9, #%d\n", v&0xffff)
	v >>= 16
	for shift := 16; v != 0; shift += 16 {
		e.w.Write("\tmovk\tX9, #%d, lsl %d\n", v&0xffff, shift)
		v >>= 16
	}
	e.str("X9", dst)
}

func toUint64(a interface{}) uint64 {
	switch v := a.(type) {
	case int64:
		return uint64(v)
	case int:
		return uint64(int64(v))
	case float64:
		return uint64(int64(v))
	default:
		panic(fmt.Sprintf("arm64: unexpected const argument type %T", a))
	}
}

func (e *procEmitter) emitAlu2(instr *ir.Instr) {
	lhs := e.addr(e.argStr(instr.Args[0]))
	e.ldr("X9", lhs)
	rhs := e.addr(e.argStr(instr.Args[1]))
	e.ldr("X10", rhs)
	e.alu2(alu2op(instr.Opcode), "X11", "X9", "X10")
	dst := e.addr(instr.Result)
	e.str("X11", dst)
}

// emitCall pushes a 16-byte-aligned link word (the static-link pointer, or
// the zero register for a top-level callee) immediately below the outgoing
// stack-argument area, then branches. The callee's prologue stp places its
// own FP/LR just below that word, so [FP, #16] recovers it — see addr's
// chain walk. Grounded on AsmGen_arm64_Darwin._emit_call's stack-argument
// reservation, extended with the link-word push SPEC_FULL.md §3 requires.
func (e *procEmitter) emitCall(instr *ir.Instr) {
	args := e.pending
	e.pending = nil
	n := len(args)

	nstack := n - len(paramRegs)
	if nstack < 0 {
		nstack = 0
	} else if nstack > 0 {
		nstack = (nstack-1)/2 + 1
	}

	if nstack > 0 {
		e.w.Write("\tsub\tSP, SP, #%d\n", 16*nstack)
		e.mov("X9", "SP")
		for i, a := range args[len(paramRegs):] {
			e.ldr("X10", e.addr(a))
			e.str("X10", fmt.Sprintf("[X9, #%d]", 8*i))
		}
	}

	for i := 0; i < n && i < len(paramRegs); i++ {
		e.ldr(paramRegs[i], e.addr(args[i]))
	}

	if instr.LinkDepth != nil {
		if *instr.LinkDepth == 0 {
			e.w.Write("\tstr\tFP, [SP, #-16]!\n")
		} else {
			e.mov("X12", "FP")
			for i := 0; i < *instr.LinkDepth; i++ {
				e.ldr("X12", "[X12, #16]")
			}
			e.w.Write("\tstr\tX12, [SP, #-16]!\n")
		}
	} else {
		e.w.Write("\tstr\tXZR, [SP, #-16]!\n")
	}

	label := e.argStr(instr.Args[0])
	e.w.Write("\tbl\t_%s\n", label)

	e.w.Write("\tadd\tSP, SP, #16\n")
	if nstack > 0 {
		e.w.Write("\tadd\tSP, SP, #%d\n", 16*nstack)
	}

	if instr.Result != "" {
		dst := e.addr(instr.Result)
		e.str("X0", dst)
	}
}

func alu2op(op ir.Opcode) string {
	switch op {
	case ir.OpAdd:
		return "add"
	case ir.OpSub:
		return "sub"
	case ir.OpAnd:
		return "and"
	case ir.OpOr:
		return "orr"
	case ir.OpXor:
		return "eor"
	case ir.OpShl:
		return "lsl"
	case ir.OpShr:
		return "asr" // arithmetic shift right, sign-preserving (SPEC_FULL.md §4.2).
	default:
		panic(fmt.Sprintf("arm64: %q is not a two-operand ALU opcode", op))
	}
}

func condSuffix(op ir.Opcode) string {
	switch op {
	case ir.OpJlt:
		return "lt"
	case ir.OpJle:
		return "le"
	case ir.OpJgt:
		return "gt"
	case ir.OpJge:
		return "ge"
	default:
		panic(fmt.Sprintf("arm64: %q is not a relational jump opcode", op))
	}
}
