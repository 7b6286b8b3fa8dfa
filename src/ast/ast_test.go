package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExprConstructorsSetPositionAndType(t *testing.T) {
	at := Position{Line: 3, Col: 7}

	lit := NewIntLit(at, 42)
	require.Equal(t, at, lit.Pos())
	require.Equal(t, Unresolved, lit.ExprType())
	lit.SetExprType(Int)
	require.Equal(t, Int, lit.ExprType())

	ref := NewVarRef(at, Name{Ident: "x", Pos: at})
	require.Equal(t, "x", ref.Name.Ident)

	bin := NewBinaryOp(at, "+", lit, ref)
	require.Equal(t, "+", bin.Op)
	require.Same(t, lit, bin.Left.(*IntLit))
}

func TestStmtConstructorsSetPosition(t *testing.T) {
	at := Position{Line: 1, Col: 1}

	blk := NewBlock(at, nil)
	require.Equal(t, at, blk.Pos())
	blk.Stmts = append(blk.Stmts, NewBreak(at))
	require.Len(t, blk.Stmts, 1)

	decl := NewVarDecl(at, Name{Ident: "y"}, NewIntLit(at, 1), Int)
	require.Equal(t, "y", decl.Name.Ident)
	require.Equal(t, Int, decl.Typ)

	nested := NewNestedProc(at, &ProcDecl{Name: Name{Ident: "inner"}})
	require.Equal(t, "inner", nested.Decl.Name.Ident)
}

func TestTypeString(t *testing.T) {
	require.Equal(t, "int", Int.String())
	require.Equal(t, "bool", Bool.String())
	require.Equal(t, "void", Void.String())
	require.Equal(t, "<unresolved>", Unresolved.String())
}
