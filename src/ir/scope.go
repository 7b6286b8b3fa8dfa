// Package ir hosts semantic analysis (PreTyper, TypeChecker), the three-address-code
// model, and the Maximal Munch lowering pass that turns a typed ast.Program into an
// ir.Program ready for a backend.
package ir

import "bxc/src/ast"

// symbol records what a name resolves to inside a Scope: either a variable (with
// its type and lexical depth, used to compute static-link hops) or nothing, for
// names the grammar never lets shadow a variable (procedures live in their own
// top-level namespace, checked separately by PreTyper).
type symbol struct {
	typ   ast.Type
	depth int // procedure nesting depth at which this name was declared.
}

// Scope is a stack of lexical blocks, innermost last. Entering a block pushes a
// fresh map; leaving it pops. Lookup walks from the top down, so an inner
// declaration shadows an outer one with the same name.
//
// Grounded on the teacher's util/stack.go (a mutex-guarded linked-list stack of
// interface{}) as used by ir/validate.go's GetEntry scope walk. The mutex is
// dropped along with every other concurrency primitive per SPEC_FULL.md §5, and
// the element type is narrowed from interface{} to a typed map since a scope
// only ever needs to answer "is this name declared, and with what type".
type Scope struct {
	frames []map[string]symbol
}

// NewScope returns a Scope with a single empty frame.
func NewScope() *Scope {
	return &Scope{frames: []map[string]symbol{{}}}
}

// Push enters a new nested block.
func (s *Scope) Push() {
	s.frames = append(s.frames, map[string]symbol{})
}

// Pop leaves the innermost block.
func (s *Scope) Pop() {
	s.frames = s.frames[:len(s.frames)-1]
}

// InSubscope pushes a new block and returns the matching pop as a func, so a
// caller can write `defer s.InSubscope()()` and get a guaranteed release on
// every exit path from the enclosing region, including an early return.
func (s *Scope) InSubscope() func() {
	s.Push()
	return s.Pop
}

// Declare adds name to the innermost frame. It returns false if name is already
// declared in that same frame (a redeclaration error, reported by the caller).
func (s *Scope) Declare(name string, typ ast.Type, depth int) bool {
	top := s.frames[len(s.frames)-1]
	if _, ok := top[name]; ok {
		return false
	}
	top[name] = symbol{typ: typ, depth: depth}
	return true
}

// Lookup searches frames from innermost to outermost and reports the type and
// declaring depth of name, or ok=false if it is not declared anywhere in scope.
func (s *Scope) Lookup(name string) (typ ast.Type, depth int, ok bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if sym, found := s.frames[i][name]; found {
			return sym.typ, sym.depth, true
		}
	}
	return ast.Unresolved, 0, false
}
