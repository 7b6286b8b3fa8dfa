package ast

// Param is a single formal parameter of a procedure; it is always type INT or
// BOOL (VOID parameters are not part of the grammar).
type Param struct {
	Name Name
	Typ  Type
}

// ProcDecl declares a procedure (including the required `main` entry point).
// Depth, Parent and Nested are filled in by PreTyper as it walks scopes:
// Parent is non-nil when this declaration is lexically enclosed by another
// procedure, and Lower reads Depth to decide how many static-link hops a
// nested call needs.
type ProcDecl struct {
	At      Position
	Name    Name
	Params  []Param
	RetType Type // Void if the procedure returns nothing.
	Body    *Block

	Depth  int         // lexical nesting depth; 0 for every top-level procedure.
	Parent *ProcDecl   // enclosing procedure, nil at depth 0.
	Nested []*ProcDecl // procedures declared in Body (also inside its if/while/blocks, not inside another nested def), gathered by PreTyper.
}

// GlobVarDecl declares a global variable, initialized once before main runs.
type GlobVarDecl struct {
	At   Position
	Name Name
	Init Expr
	Typ  Type
}

// Program is the root of the tree: a flat sequence of global variable and
// procedure declarations in source order, exactly one of which must be named
// "main" and take no parameters (SPEC_FULL.md §3).
type Program struct {
	Globals []*GlobVarDecl
	Procs   []*ProcDecl
}
