package ast

// Type is the static type of an expression or declaration. SPEC_FULL.md's two-type
// system (plus the implicit VOID of a procedure with no return value) is modelled
// as a small int enum, mirroring the teacher's ir/symtab.go DTyp approach rather
// than a string-keyed type representation.
type Type int

const (
	// Unresolved marks an expression whose type has not yet been computed; it is
	// never a valid final type once typechecking completes successfully.
	Unresolved Type = iota
	Void
	Bool
	Int
)

// String returns the source spelling of t, used in diagnostics.
func (t Type) String() string {
	switch t {
	case Void:
		return "void"
	case Bool:
		return "bool"
	case Int:
		return "int"
	default:
		return "<unresolved>"
	}
}

// Expr is the sealed interface implemented by every expression node. Each variant
// carries its own Position and a Typ field that PreTyper/TypeChecker fill in;
// ExprType returns it so lowering never needs a type switch purely to read a type.
type Expr interface {
	exprNode()
	Pos() Position
	ExprType() Type
	SetExprType(Type)
}

// exprBase factors the Position/Type bookkeeping shared by every variant.
type exprBase struct {
	At  Position
	Typ Type
}

func (e *exprBase) Pos() Position      { return e.At }
func (e *exprBase) ExprType() Type     { return e.Typ }
func (e *exprBase) SetExprType(t Type) { e.Typ = t }

// IntLit is an integer literal. The lexer only ever admits non-negative digit
// sequences; SPEC_FULL.md §9 resolves the signed range of a *literal
// expression* (as opposed to the token) by noting that unary minus is a
// prefix operator applied to an IntLit at parse time, so IntLit.Value itself
// never holds a negative number — UnaryOp{Op: "-"} is what produces the full
// [-2^63, 2^63) range of the INT type. Value's own bound is [0, 2^63-1],
// except for the single digit string "9223372036854775808" (2^63), which
// parseUnary admits only when it immediately follows a '-' token, since that
// is the one magnitude whose negation (MinInt64) is a legal INT value while
// the unnegated magnitude is not.
type IntLit struct {
	exprBase
	Value uint64
}

func (*IntLit) exprNode() {}

// NewIntLit constructs an IntLit at position at. Exported because exprBase is
// not: a literal of the form IntLit{At: at, ...} cannot be written outside
// package ast, since keyed composite literals only admit a struct's own
// (here embedded, unexported) field names.
func NewIntLit(at Position, value uint64) *IntLit {
	return &IntLit{exprBase: exprBase{At: at}, Value: value}
}

// BoolLit is a boolean literal (true/false).
type BoolLit struct {
	exprBase
	Value bool
}

func (*BoolLit) exprNode() {}

func NewBoolLit(at Position, value bool) *BoolLit {
	return &BoolLit{exprBase: exprBase{At: at}, Value: value}
}

// VarRef is a reference to a previously declared variable or parameter.
type VarRef struct {
	exprBase
	Name Name
}

func (*VarRef) exprNode() {}

func NewVarRef(at Position, name Name) *VarRef {
	return &VarRef{exprBase: exprBase{At: at}, Name: name}
}

// UnaryOp applies a prefix operator ("-" or "~"/"!") to a single operand.
type UnaryOp struct {
	exprBase
	Op      string
	Operand Expr
}

func (*UnaryOp) exprNode() {}

func NewUnaryOp(at Position, op string, operand Expr) *UnaryOp {
	return &UnaryOp{exprBase: exprBase{At: at}, Op: op, Operand: operand}
}

// BinaryOp applies an infix operator to two operands. Op is one of the source
// spellings from SPEC_FULL.md §6.2's precedence table (arithmetic, bitwise,
// relational, and the short-circuit logical connectives).
type BinaryOp struct {
	exprBase
	Op          string
	Left, Right Expr
}

func (*BinaryOp) exprNode() {}

func NewBinaryOp(at Position, op string, left, right Expr) *BinaryOp {
	return &BinaryOp{exprBase: exprBase{At: at}, Op: op, Left: left, Right: right}
}

// Call is a procedure invocation used in expression position (a procedure that
// returns INT or BOOL); CallStmt (stmt.go) wraps a Call in statement position,
// discarding any result.
type Call struct {
	exprBase
	Callee Name
	Args   []Expr
}

func (*Call) exprNode() {}

func NewCall(at Position, callee Name, args []Expr) *Call {
	return &Call{exprBase: exprBase{At: at}, Callee: callee, Args: args}
}
