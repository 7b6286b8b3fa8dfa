package ir

import (
	"fmt"

	"bxc/src/ast"
)

// operand is a lowered TAC place: either a temporary/variable name (as it
// appears in Instr.Args/Result) paired with the lexical depth it must be
// accessed at, relative to the lowering procedure's own depth. depth 0 means
// "local to the current frame"; depth > 0 means "d static-link hops up".
type operand struct {
	name  string
	depth int
}

// arg renders operand o as a TAC instruction argument: a bare name for locals
// and globals, or "name:depth" for a captured variable, matching the original
// source's AsmGen._temp "name:depth" convention that bxasmgen.py parses back
// apart.
func (o operand) arg() interface{} {
	if o.depth == 0 {
		return o.name
	}
	return fmt.Sprintf("%s:%d", o.name, o.depth)
}

// binding is what a scope frame actually stores: a name plus the lexical depth
// of the procedure that declared it. lookup turns this absolute depth into an
// operand whose depth is relative to whatever procedure is being lowered when
// the reference is seen, which varies as lowering descends into nested procs
// sharing the same scope chain.
type binding struct {
	name      string
	declDepth int
}

// loopLabels is one entry on the loop-label stack: the label Continue jumps to
// and the label Break jumps to.
type loopLabels struct {
	cont, brk string
}

// Lowerer implements the Maximal-Munch lowering pass from typed ast.Program to
// ir.Program (TAC). It owns the single fresh-name counter, the loop-label
// stack, and a per-procedure scope mapping source names to operands.
//
// Grounded on the original source's bxlib/bxmm.py (Maximal Munch) and bx/ast.py
// (temp_names()/tac() per node, boolean-mode-vs-value-mode split), with the
// fresh-name counter and loop stack taken from the teacher's util/label.go
// (channel-based NewLabel) and util/stack.go (loop stack) respectively: both
// are reduced here to a plain counter and a plain Go slice since SPEC_FULL.md
// §5 mandates a single-threaded lowerer with no concurrent listeners.
type Lowerer struct {
	counter int
	loops   []loopLabels
	scopes  []map[string]binding
	globals map[string]bool
	proc    *ast.ProcDecl
	procs   map[string]*ast.ProcDecl
	nested  []*Proc // nested procedures lowered at their def site, not yet output.
}

// NewLowerer returns a Lowerer that resolves calls against procs (keyed by
// procedure name), as gathered by PreTyper.
func NewLowerer(procs map[string]*ast.ProcDecl) *Lowerer {
	return &Lowerer{procs: procs, globals: map[string]bool{}}
}

func (l *Lowerer) fresh(prefix string) string {
	n := l.counter
	l.counter++
	return fmt.Sprintf("%s%d", prefix, n)
}

func (l *Lowerer) freshTemp() string  { return l.fresh("%") }
func (l *Lowerer) freshLabel() Label  { return Label(l.fresh(".L")) }

func (l *Lowerer) pushScope() {
	l.scopes = append(l.scopes, map[string]binding{})
}

func (l *Lowerer) popScope() {
	l.scopes = l.scopes[:len(l.scopes)-1]
}

// bind records name as declared by the procedure currently being lowered.
func (l *Lowerer) bind(name, operandName string) {
	depth := 0
	if l.proc != nil {
		depth = l.proc.Depth
	}
	l.scopes[len(l.scopes)-1][name] = binding{name: operandName, declDepth: depth}
}

// lookup finds name in the innermost-to-outermost scope chain and converts its
// declaring depth into a count of static-link hops relative to the procedure
// currently being lowered: globals and locals of the current procedure are 0
// hops away; a name declared by an enclosing procedure D levels further out is
// D hops away.
func (l *Lowerer) lookup(name string) operand {
	if l.globals[name] {
		return operand{name: "@" + name, depth: 0}
	}
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if b, ok := l.scopes[i][name]; ok {
			cur := 0
			if l.proc != nil {
				cur = l.proc.Depth
			}
			return operand{name: b.name, depth: cur - b.declDepth}
		}
	}
	// Unreachable once TypeChecker has accepted the program: every VarRef refers
	// to a name TypeChecker already resolved in ir.Scope.
	panic(fmt.Sprintf("internal error: unbound name %q during lowering", name))
}

// Lower runs the full pass over a typechecked Program and returns its TAC form.
func (l *Lowerer) Lower(prog *ast.Program) *Program {
	out := &Program{}
	l.pushScope()
	defer l.popScope()

	for _, g := range prog.Globals {
		// PreTyper has already rejected any non-literal initializer, so Init is
		// always an IntLit or BoolLit here.
		var val int64
		switch v := g.Init.(type) {
		case *ast.IntLit:
			val = int64(v.Value)
		case *ast.BoolLit:
			if v.Value {
				val = 1
			}
		}
		out.Vars = append(out.Vars, &Var{Name: g.Name.Ident, Init: val})
		l.globals[g.Name.Ident] = true
	}

	l.lowerProcs(prog.Procs, out)
	return out
}

// lowerProcs lowers every procedure in decls, each followed by the procedures
// nested anywhere inside it, flattening the lexical nesting into a single flat
// list of TAC procedures — nesting only matters for static link computation,
// already captured in decl.Depth, not for the output shape.
func (l *Lowerer) lowerProcs(decls []*ast.ProcDecl, out *Program) {
	for _, decl := range decls {
		out.Procs = append(out.Procs, l.lowerProc(decl))
		out.Procs = append(out.Procs, l.nested...)
		l.nested = nil
	}
}

func (l *Lowerer) lowerProc(decl *ast.ProcDecl) *Proc {
	prevProc := l.proc
	l.proc = decl
	defer func() { l.proc = prevProc }()

	l.pushScope()
	defer l.popScope()

	body := make([]BodyItem, 0, 16)
	// Parameters are bound to fresh slots from the same global counter that
	// numbers every other temporary, not to their source identifiers: the
	// backend recovers a frame-relative stack slot index directly by parsing
	// the numeric suffix of an operand name (see backend.ParseOperand), so
	// params must live in that same numbering space to be addressed the same
	// way a captured local is. This mirrors the original source's uniform
	// "index" parameter to AsmGen._format_temp, which never distinguishes a
	// parameter's origin once inside its own frame.
	params := make([]string, len(decl.Params))
	for i, param := range decl.Params {
		slot := l.freshTemp()
		params[i] = slot
		l.bind(param.Name.Ident, slot)
	}

	body = l.lowerBlock(body, decl.Body)

	if decl.Name.Ident == "main" {
		body = append(body, &Instr{Opcode: OpRet, Args: []interface{}{0}})
	}

	return &Proc{Name: decl.Name.Ident, Params: params, Depth: decl.Depth, Body: body}
}

func (l *Lowerer) lowerBlock(body []BodyItem, b *ast.Block) []BodyItem {
	l.pushScope()
	defer l.popScope()
	for _, s := range b.Stmts {
		body = l.lowerStmt(body, s)
	}
	return body
}

// lowerStmt lowers one statement, appending to and returning body.
func (l *Lowerer) lowerStmt(body []BodyItem, s ast.Stmt) []BodyItem {
	switch n := s.(type) {
	case *ast.VarDecl:
		var val operand
		val, body = l.lowerValue(body, n.Init)
		// Materialize into a fresh local slot rather than aliasing val directly:
		// val may itself be a captured variable (non-zero depth), and every scope
		// binding must name a slot that lives in its declaring procedure's own
		// frame for lookup's depth arithmetic to stay correct.
		slot := l.freshTemp()
		body = append(body, &Instr{Opcode: OpCopy, Args: []interface{}{val.arg()}, Result: slot})
		l.bind(n.Name.Ident, slot)

	case *ast.Assign:
		var val operand
		val, body = l.lowerValue(body, n.Value)
		dst := l.lookup(n.Name.Ident)
		body = append(body, &Instr{Opcode: OpCopy, Args: []interface{}{val.arg()}, Result: dst.arg().(string)})

	case *ast.CallStmt:
		_, body = l.lowerCall(body, n.Call, false)

	case *ast.Print:
		var val operand
		val, body = l.lowerValue(body, n.Value)
		body = append(body, &Instr{Opcode: OpParam, Args: []interface{}{1, val.arg()}})
		fn := "print_int"
		if n.Value.ExprType() == ast.Bool {
			fn = "print_bool"
		}
		body = append(body, &Instr{Opcode: OpCall, Args: []interface{}{fn, 1}})

	case *ast.Block:
		body = l.lowerBlock(body, n)

	case *ast.If:
		lt, lf, lo := l.freshLabel(), l.freshLabel(), l.freshLabel()
		body = l.lowerBool(body, n.Cond, lt, lf)
		body = append(body, lt)
		body = l.lowerBlock(body, n.Then)
		body = append(body, &Instr{Opcode: OpJmp, Args: []interface{}{string(lo)}})
		body = append(body, lf)
		if n.Else != nil {
			body = l.lowerBlock(body, n.Else)
		}
		body = append(body, lo)

	case *ast.While:
		lc, lb, lo := l.freshLabel(), l.freshLabel(), l.freshLabel()
		l.loops = append(l.loops, loopLabels{cont: string(lc), brk: string(lo)})
		body = append(body, lc)
		body = l.lowerBool(body, n.Cond, lb, lo)
		body = append(body, lb)
		body = l.lowerBlock(body, n.Body)
		body = append(body, &Instr{Opcode: OpJmp, Args: []interface{}{string(lc)}})
		body = append(body, lo)
		l.loops = l.loops[:len(l.loops)-1]

	case *ast.Break:
		top := l.loops[len(l.loops)-1]
		body = append(body, &Instr{Opcode: OpJmp, Args: []interface{}{top.brk}})

	case *ast.Continue:
		top := l.loops[len(l.loops)-1]
		body = append(body, &Instr{Opcode: OpJmp, Args: []interface{}{top.cont}})

	case *ast.Return:
		if n.Value == nil {
			body = append(body, &Instr{Opcode: OpRet})
			return body
		}
		var val operand
		val, body = l.lowerValue(body, n.Value)
		body = append(body, &Instr{Opcode: OpRet, Args: []interface{}{val.arg()}})

	case *ast.NestedProc:
		// A nested procedure is lowered here, at its def site, so the enclosing
		// procedure's bindings are still on the scope chain for its captured
		// variables; its TAC goes to l.nested, not inline into the enclosing body.
		l.nested = append(l.nested, l.lowerProc(n.Decl))

	default:
		panic("internal error: unhandled statement kind during lowering")
	}
	return body
}

// lowerValue lowers e in value mode, returning an operand holding its value.
func (l *Lowerer) lowerValue(body []BodyItem, e ast.Expr) (operand, []BodyItem) {
	switch n := e.(type) {
	case *ast.IntLit:
		t := l.freshTemp()
		body = append(body, &Instr{Opcode: OpConst, Args: []interface{}{int64(n.Value)}, Result: t})
		return operand{name: t}, body

	case *ast.BoolLit:
		v := 0
		if n.Value {
			v = 1
		}
		t := l.freshTemp()
		body = append(body, &Instr{Opcode: OpConst, Args: []interface{}{v}, Result: t})
		return operand{name: t}, body

	case *ast.VarRef:
		return l.lookup(n.Name.Ident), body

	case *ast.UnaryOp:
		if n.Op == "!" {
			return l.lowerBoolAsValue(body, n)
		}
		var src operand
		src, body = l.lowerValue(body, n.Operand)
		op := OpNeg
		if n.Op == "~" {
			op = OpNot
		}
		t := l.freshTemp()
		body = append(body, &Instr{Opcode: op, Args: []interface{}{src.arg()}, Result: t})
		return operand{name: t}, body

	case *ast.BinaryOp:
		if isBooleanResult(n.Op) {
			return l.lowerBoolAsValue(body, n)
		}
		var lhs, rhs operand
		lhs, body = l.lowerValue(body, n.Left)
		rhs, body = l.lowerValue(body, n.Right)
		t := l.freshTemp()
		body = append(body, &Instr{Opcode: arithOpcode(n.Op), Args: []interface{}{lhs.arg(), rhs.arg()}, Result: t})
		return operand{name: t}, body

	case *ast.Call:
		return l.lowerCall(body, n, true)

	default:
		panic("internal error: unhandled expression kind during lowering")
	}
}

// lowerBoolAsValue implements SPEC_FULL.md §4.3's "unless the caller passes
// force" value-mode construction for boolean-result expressions: materialize
// 0/1 via two continuation labels rather than computing a boolean value
// directly, keeping boolean results in control flow as the design note requires.
func (l *Lowerer) lowerBoolAsValue(body []BodyItem, e ast.Expr) (operand, []BodyItem) {
	t := l.freshTemp()
	lt, lf := l.freshLabel(), l.freshLabel()
	body = append(body, &Instr{Opcode: OpConst, Args: []interface{}{0}, Result: t})
	body = l.lowerBool(body, e, lt, lf)
	body = append(body, lt)
	body = append(body, &Instr{Opcode: OpConst, Args: []interface{}{1}, Result: t})
	body = append(body, lf)
	return operand{name: t}, body
}

// lowerCall lowers a call's arguments and the call itself. wantResult is false
// for a statement-position call whose result (if any) is discarded.
func (l *Lowerer) lowerCall(body []BodyItem, call *ast.Call, wantResult bool) (operand, []BodyItem) {
	for i, a := range call.Args {
		var val operand
		val, body = l.lowerValue(body, a)
		body = append(body, &Instr{Opcode: OpParam, Args: []interface{}{i + 1, val.arg()}})
	}

	sig := l.callDepth(call.Callee.Ident)
	var result string
	var out operand
	if wantResult && call.ExprType() != ast.Void {
		result = l.freshTemp()
		out = operand{name: result}
	}
	body = append(body, &Instr{
		Opcode:    OpCall,
		Args:      []interface{}{call.Callee.Ident, len(call.Args)},
		Result:    result,
		LinkDepth: sig,
	})
	return out, body
}

// callDepth returns the static-link hop count the caller walks, starting from
// its own frame, to reach the activation record that must become the callee's
// static link — the frame of the procedure lexically enclosing the callee.
// nil means the callee is a top-level procedure with no enclosing frame
// (SPEC_FULL.md §4.4: "top-level calls push two zero words").
//
// A callee is only visible at a call site if its declaring scope encloses (or
// is) the caller, so the callee's parent is always an ancestor of the caller
// at depth callee.Depth-1; the caller reaches that ancestor's frame by walking
// its own static-link chain caller.Depth-(callee.Depth-1) hops.
func (l *Lowerer) callDepth(name string) *int {
	callee, ok := l.procs[name]
	if !ok || callee.Depth == 0 {
		return nil
	}
	d := l.proc.Depth - (callee.Depth - 1)
	return &d
}

func arithOpcode(op string) Opcode {
	switch op {
	case "+":
		return OpAdd
	case "-":
		return OpSub
	case "*":
		return OpMul
	case "/":
		return OpDiv
	case "%":
		return OpMod
	case "&":
		return OpAnd
	case "|":
		return OpOr
	case "^":
		return OpXor
	case "<<":
		return OpShl
	case ">>":
		return OpShr
	default:
		panic(fmt.Sprintf("internal error: %q is not an arithmetic opcode", op))
	}
}

// lowerBool lowers e in boolean mode: it emits no value, relying on control
// flow to reach lt when e is true and lf when e is false.
func (l *Lowerer) lowerBool(body []BodyItem, e ast.Expr, lt, lf Label) []BodyItem {
	switch n := e.(type) {
	case *ast.BoolLit:
		if n.Value {
			return append(body, &Instr{Opcode: OpJmp, Args: []interface{}{string(lt)}})
		}
		return append(body, &Instr{Opcode: OpJmp, Args: []interface{}{string(lf)}})

	case *ast.VarRef:
		op := l.lookup(n.Name.Ident)
		body = append(body, &Instr{Opcode: OpJz, Args: []interface{}{op.arg(), string(lf)}})
		return append(body, &Instr{Opcode: OpJmp, Args: []interface{}{string(lt)}})

	case *ast.UnaryOp:
		if n.Op == "!" {
			return l.lowerBool(body, n.Operand, lf, lt)
		}

	case *ast.BinaryOp:
		if comparisonOps[n.Op] {
			var lhs, rhs operand
			lhs, body = l.lowerValue(body, n.Left)
			rhs, body = l.lowerValue(body, n.Right)
			t := l.freshTemp()
			body = append(body, &Instr{Opcode: OpSub, Args: []interface{}{rhs.arg(), lhs.arg()}, Result: t})
			body = append(body, &Instr{Opcode: cmpJump(n.Op), Args: []interface{}{t, string(lt)}})
			return append(body, &Instr{Opcode: OpJmp, Args: []interface{}{string(lf)}})
		}
		if n.Op == "&&" {
			lo := l.freshLabel()
			body = l.lowerBool(body, n.Left, lo, lf)
			body = append(body, lo)
			return l.lowerBool(body, n.Right, lt, lf)
		}
		if n.Op == "||" {
			lo := l.freshLabel()
			body = l.lowerBool(body, n.Left, lt, lo)
			body = append(body, lo)
			return l.lowerBool(body, n.Right, lt, lf)
		}

	case *ast.Call:
		var val operand
		val, body = l.lowerCall(body, n, true)
		body = append(body, &Instr{Opcode: OpJz, Args: []interface{}{val.arg(), string(lf)}})
		return append(body, &Instr{Opcode: OpJmp, Args: []interface{}{string(lt)}})
	}
	panic(fmt.Sprintf("internal error: %T is not a boolean-mode expression", e))
}

// cmpJump maps a comparison operator to the conditional jump used against
// t = e2 - e1, per SPEC_FULL.md §4.3's comparison-to-jump table.
func cmpJump(op string) Opcode {
	switch op {
	case "==":
		return OpJz
	case "!=":
		return OpJnz
	case "<":
		return OpJgt
	case "<=":
		return OpJge
	case ">":
		return OpJlt
	case ">=":
		return OpJle
	default:
		panic(fmt.Sprintf("internal error: %q is not a comparison operator", op))
	}
}
