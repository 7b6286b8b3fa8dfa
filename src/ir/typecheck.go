package ir

import (
	"bxc/src/ast"
	"bxc/src/util"
)

// TypeChecker walks every top-level declaration with a mutable Scope, a
// loop-depth counter, and a reference to the enclosing procedure, applying the
// operator signature table and the return-coverage check.
//
// Grounded on the teacher's ir/validate.go validate/validateExpr/validateRel/
// validateAssign recursive methods, generalized from the generic ir.Node switch
// there to an exhaustive Go type switch per ast.Expr/ast.Stmt variant, per
// SPEC_FULL.md §9's tagged-variants design note.
type TypeChecker struct {
	rep       *util.Reporter
	procs     map[string]*ProcSig
	scope     *Scope
	loopDepth int
	proc      *ast.ProcDecl
}

// NewTypeChecker returns a TypeChecker seeded with the global scope and
// procedure table produced by PreTyper.
func NewTypeChecker(rep *util.Reporter, procs map[string]*ProcSig, globals *Scope) *TypeChecker {
	return &TypeChecker{rep: rep, procs: procs, scope: globals}
}

// Run typechecks every procedure body in the program.
func (c *TypeChecker) Run(prog *ast.Program) {
	for _, decl := range prog.Procs {
		c.checkProc(decl)
	}
}

func (c *TypeChecker) checkProc(decl *ast.ProcDecl) {
	restore := c.rep.Section("typecheck:" + decl.Name.Ident)
	defer restore()

	prevProc, prevLoop := c.proc, c.loopDepth
	c.proc, c.loopDepth = decl, 0
	defer func() { c.proc, c.loopDepth = prevProc, prevLoop }()

	defer c.scope.InSubscope()()

	for _, param := range decl.Params {
		if !c.scope.Declare(param.Name.Ident, param.Typ, decl.Depth) {
			c.rep.Reportf(&param.Name.Pos, "parameter %q redeclared", param.Name.Ident)
		}
	}

	c.checkBlock(decl.Body)

	if decl.RetType != ast.Void && !hasReturn(decl.Body) {
		c.rep.Reportf(&decl.At, "procedure %q must always return a value of type %s", decl.Name.Ident, decl.RetType)
	}
}

func (c *TypeChecker) checkBlock(b *ast.Block) {
	defer c.scope.InSubscope()()
	for _, s := range b.Stmts {
		c.checkStmt(s)
	}
}

func (c *TypeChecker) checkStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.VarDecl:
		if !c.scope.Declare(n.Name.Ident, n.Typ, c.proc.Depth) {
			c.rep.Reportf(&n.Name.Pos, "variable %q redeclared", n.Name.Ident)
		}
		c.checkExpr(n.Init, n.Typ)

	case *ast.Assign:
		typ, _, ok := c.scope.Lookup(n.Name.Ident)
		if !ok {
			c.rep.Reportf(&n.Name.Pos, "assignment to undeclared variable %q", n.Name.Ident)
			c.checkExpr(n.Value, ast.Unresolved)
			return
		}
		c.checkExpr(n.Value, typ)

	case *ast.CallStmt:
		c.checkCall(n.Call, ast.Unresolved)

	case *ast.Print:
		c.checkExpr(n.Value, ast.Unresolved)
		if t := n.Value.ExprType(); t != ast.Int && t != ast.Bool {
			c.rep.Reportf(&n.At, "print argument must be int or bool, got %s", t)
		}

	case *ast.Block:
		c.checkBlock(n)

	case *ast.If:
		c.checkExpr(n.Cond, ast.Bool)
		c.checkBlock(n.Then)
		if n.Else != nil {
			c.checkBlock(n.Else)
		}

	case *ast.While:
		c.checkExpr(n.Cond, ast.Bool)
		c.loopDepth++
		c.checkBlock(n.Body)
		c.loopDepth--

	case *ast.Break:
		if c.loopDepth == 0 {
			c.rep.Report("break outside of a loop", &n.At)
		}

	case *ast.Continue:
		if c.loopDepth == 0 {
			c.rep.Report("continue outside of a loop", &n.At)
		}

	case *ast.Return:
		switch {
		case n.Value == nil && c.proc.RetType != ast.Void:
			c.rep.Reportf(&n.At, "procedure %q must return a value of type %s", c.proc.Name.Ident, c.proc.RetType)
		case n.Value != nil && c.proc.RetType == ast.Void:
			c.rep.Reportf(&n.At, "procedure %q must not return a value", c.proc.Name.Ident)
		case n.Value != nil:
			c.checkExpr(n.Value, c.proc.RetType)
		}

	case *ast.NestedProc:
		c.checkProc(n.Decl)

	default:
		c.rep.Report("internal error: unhandled statement kind", nil)
	}
}

// checkExpr computes e's type per the operator signature table and, if expected
// is not Unresolved and differs from the computed type, reports a mismatch while
// still storing the computed type on e (SPEC_FULL.md §4.2's robustness rule).
func (c *TypeChecker) checkExpr(e ast.Expr, expected ast.Type) {
	computed := c.inferExpr(e)
	e.SetExprType(computed)
	if expected != ast.Unresolved && computed != ast.Unresolved && computed != expected {
		pos := e.Pos()
		c.rep.Reportf(&pos, "type mismatch: expected %s, got %s", expected, computed)
	}
}

func (c *TypeChecker) inferExpr(e ast.Expr) ast.Type {
	switch n := e.(type) {
	case *ast.IntLit:
		return ast.Int

	case *ast.BoolLit:
		return ast.Bool

	case *ast.VarRef:
		typ, _, ok := c.scope.Lookup(n.Name.Ident)
		if !ok {
			c.rep.Reportf(&n.Name.Pos, "use of undeclared variable %q", n.Name.Ident)
			return ast.Unresolved
		}
		return typ

	case *ast.UnaryOp:
		sig, ok := unarySigs[n.Op]
		if !ok {
			c.rep.Reportf(&n.At, "unknown unary operator %q", n.Op)
			c.checkExpr(n.Operand, ast.Unresolved)
			return ast.Unresolved
		}
		c.checkExpr(n.Operand, sig.Operands[0])
		return sig.Result

	case *ast.BinaryOp:
		sig, ok := binarySigs[n.Op]
		if !ok {
			c.rep.Reportf(&n.At, "unknown binary operator %q", n.Op)
			c.checkExpr(n.Left, ast.Unresolved)
			c.checkExpr(n.Right, ast.Unresolved)
			return ast.Unresolved
		}
		c.checkExpr(n.Left, sig.Operands[0])
		c.checkExpr(n.Right, sig.Operands[1])
		return sig.Result

	case *ast.Call:
		return c.checkCall(n, ast.Unresolved)

	default:
		c.rep.Report("internal error: unhandled expression kind", nil)
		return ast.Unresolved
	}
}

func (c *TypeChecker) checkCall(call *ast.Call, _ ast.Type) ast.Type {
	sig, ok := c.procs[call.Callee.Ident]
	if !ok {
		c.rep.Reportf(&call.Callee.Pos, "call to unknown procedure %q", call.Callee.Ident)
		for _, a := range call.Args {
			c.checkExpr(a, ast.Unresolved)
		}
		call.SetExprType(ast.Unresolved)
		return ast.Unresolved
	}

	if len(call.Args) != len(sig.Params) {
		c.rep.Reportf(&call.Callee.Pos, "procedure %q expects %d argument(s), got %d", call.Callee.Ident, len(sig.Params), len(call.Args))
		for _, a := range call.Args {
			c.checkExpr(a, ast.Unresolved)
		}
	} else {
		for i, a := range call.Args {
			c.checkExpr(a, sig.Params[i])
		}
	}

	call.SetExprType(sig.Ret)
	return sig.Ret
}
