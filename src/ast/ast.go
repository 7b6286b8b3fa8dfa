// Package ast defines the typed syntax tree produced by the parser and consumed
// by the semantic analysis and lowering stages.
//
// The teacher (vslc) represents every tree node with one generic struct, ir.Node,
// tagged by a NodeType enum and holding an untyped Data/Entry/Children bag (see
// ir/nodetype.go). SPEC_FULL.md §9's design notes call for tagged-variant sealed
// interfaces instead: one concrete struct per expression/statement form, joined by
// a marker method, so each lowering or typechecking pass is an exhaustive Go type
// switch that the compiler itself checks for missing cases. That is the design
// followed here; nodetype.go's enum is not reused.
package ast

import "bxc/src/util"

// Position is a 1-indexed line/column pair identifying where a token began.
type Position = util.Position

// Name identifies an occurrence of an identifier: the spelling plus source
// position, used for both declaring and referencing occurrences.
type Name struct {
	Ident string
	Pos   Position
}
