package ir

import (
	"bxc/src/ast"
	"bxc/src/util"
)

// ProcSig is a procedure's call signature as registered by PreTyper and consulted
// by TypeChecker for every Call/CallStmt.
type ProcSig struct {
	Params []ast.Type
	Ret    ast.Type
	Decl   *ast.ProcDecl
}

// PreTyper is the single pass over the program that gathers every global and
// procedure name before any body is typechecked, so mutually referencing
// procedures (and a procedure calling one declared later in the file) resolve.
//
// Grounded on the teacher's ir/validate.go GenerateSymTab two-pass structure
// (build a symbol table, then validate against it) and on the original source's
// bxlib/bxtychecker.py pretyper pass.
type PreTyper struct {
	rep   *util.Reporter
	Procs map[string]*ProcSig
}

// NewPreTyper returns a PreTyper reporting through rep.
func NewPreTyper(rep *util.Reporter) *PreTyper {
	return &PreTyper{rep: rep, Procs: map[string]*ProcSig{}}
}

// Run registers every global and procedure declaration, rejecting duplicate
// names, and verifies that main() -> void exists exactly once. It returns the
// root Scope seeded with global variable bindings, for TypeChecker to extend.
func (p *PreTyper) Run(prog *ast.Program) *Scope {
	root := NewScope()

	for _, g := range prog.Globals {
		if !root.Declare(g.Name.Ident, g.Typ, 0) {
			p.rep.Reportf(&g.Name.Pos, "global variable %q redeclared", g.Name.Ident)
		}
		p.checkGlobalInit(g)
	}

	p.registerProcs(prog.Procs, 0, nil, root)

	sig, ok := p.Procs["main"]
	if !ok {
		p.rep.Report("missing required procedure \"main\"", nil)
		return root
	}
	if len(sig.Params) != 0 || sig.Ret != ast.Void {
		p.rep.Reportf(&sig.Decl.At, "main must take no parameters and return nothing")
	}
	return root
}

// checkGlobalInit enforces invariant 7, "global-variable initializers are
// literals only": a GlobVarDecl's Init must be an IntLit for an INT global or
// a BoolLit for a BOOL global, matching the original source's restriction that
// a global's initializer be a constant rather than a general expression.
func (p *PreTyper) checkGlobalInit(g *ast.GlobVarDecl) {
	at := g.Name.Pos
	switch g.Init.(type) {
	case *ast.IntLit:
		if g.Typ != ast.Int {
			p.rep.Reportf(&at, "global %q declared %s but initialized with an int literal", g.Name.Ident, g.Typ)
		}
	case *ast.BoolLit:
		if g.Typ != ast.Bool {
			p.rep.Reportf(&at, "global %q declared %s but initialized with a bool literal", g.Name.Ident, g.Typ)
		}
	default:
		p.rep.Reportf(&at, "global %q: initializer must be a literal, not a general expression", g.Name.Ident)
	}
}

// registerProcs registers procs and recurses into each one's nested
// procedures. root is consulted only at depth 0: invariant 2 ("globals and
// procedures share one namespace at the top level") binds top-level
// procedures against top-level globals, but a nested procedure lives one
// lexical scope deeper than root's single frame and never collides with a
// global by name, so the check below is skipped once depth > 0.
func (p *PreTyper) registerProcs(procs []*ast.ProcDecl, depth int, parent *ast.ProcDecl, root *Scope) {
	for _, decl := range procs {
		decl.Depth = depth
		decl.Parent = parent

		if _, ok := p.Procs[decl.Name.Ident]; ok {
			p.rep.Reportf(&decl.Name.Pos, "procedure %q redeclared", decl.Name.Ident)
		} else if depth == 0 && rootHasGlobal(root, decl.Name.Ident) {
			p.rep.Reportf(&decl.Name.Pos, "procedure %q redeclared: a global variable of the same name is already declared", decl.Name.Ident)
		} else {
			params := make([]ast.Type, len(decl.Params))
			for i, param := range decl.Params {
				params[i] = param.Typ
			}
			p.Procs[decl.Name.Ident] = &ProcSig{Params: params, Ret: decl.RetType, Decl: decl}
		}

		decl.Nested = gatherNestedProcs(decl.Body)
		p.registerProcs(decl.Nested, depth+1, decl, root)
	}
}

// rootHasGlobal reports whether name is declared as a top-level global in root.
func rootHasGlobal(root *Scope, name string) bool {
	_, _, ok := root.Lookup(name)
	return ok
}

// gatherNestedProcs collects every NestedProc reachable inside block's own
// body, including ones written inside an if/while/nested block rather than
// directly in block.Stmts (a nested def's *own* body is not walked here;
// registerProcs descends into it separately one depth deeper).
func gatherNestedProcs(block *ast.Block) []*ast.ProcDecl {
	if block == nil {
		return nil
	}
	var out []*ast.ProcDecl
	for _, s := range block.Stmts {
		out = append(out, gatherNestedProcsStmt(s)...)
	}
	return out
}

func gatherNestedProcsStmt(s ast.Stmt) []*ast.ProcDecl {
	switch n := s.(type) {
	case *ast.NestedProc:
		return []*ast.ProcDecl{n.Decl}
	case *ast.Block:
		return gatherNestedProcs(n)
	case *ast.If:
		out := gatherNestedProcs(n.Then)
		out = append(out, gatherNestedProcs(n.Else)...)
		return out
	case *ast.While:
		return gatherNestedProcs(n.Body)
	default:
		return nil
	}
}
