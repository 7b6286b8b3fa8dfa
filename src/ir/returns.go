package ir

import "bxc/src/ast"

// hasReturn implements SPEC_FULL.md §4.2's conservative return-coverage check:
// a Return always returns; an If always returns only when both branches do
// (missing else means "does not always return"); a Block always returns if any
// statement in it does; every other statement form does not. This is allowed to
// reject programs that in fact always return — that conservatism is intentional.
func hasReturn(s ast.Stmt) bool {
	switch n := s.(type) {
	case *ast.Return:
		return true
	case *ast.If:
		if n.Else == nil {
			return false
		}
		return hasReturn(n.Then) && hasReturn(n.Else)
	case *ast.Block:
		for _, st := range n.Stmts {
			if hasReturn(st) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
