package backend

import (
	"strconv"
	"strings"
)

// Operand is a decoded TAC argument or result string: either a global symbol
// reference or a numbered frame slot some number of static-link hops away.
//
// Grounded on the original source's bxlib/bxasmgen.py AsmGen._temp, which
// parses a "name:depth" string and dispatches to global/local/captured
// addressing. Slot numbers come directly from the numeric suffix of a local
// operand name (e.g. "%7" -> slot 7): the lowering stage's single fresh-name
// counter doubles as the per-frame stack slot index, so no separate renumbering
// pass is needed between lowering and codegen.
type Operand struct {
	Global bool
	Symbol string // set when Global.
	Slot   int    // set when !Global: frame-relative stack slot index.
	Depth  int    // static-link hops from the current frame; 0 means local.
}

// ParseOperand decodes a TAC operand string of the form "@name", "%<n>", or
// "%<n>:<depth>".
func ParseOperand(s string) Operand {
	if strings.HasPrefix(s, "@") {
		return Operand{Global: true, Symbol: strings.TrimPrefix(s, "@")}
	}
	body := strings.TrimPrefix(s, "%")
	depth := 0
	if i := strings.IndexByte(body, ':'); i >= 0 {
		depth, _ = strconv.Atoi(body[i+1:])
		body = body[:i]
	}
	slot, _ := strconv.Atoi(body)
	return Operand{Slot: slot, Depth: depth}
}

// MaxSlot scans every operand string reachable from args/result tuples a
// caller feeds it and reports the highest local slot index seen, so the
// prologue can size its frame. Callers pass -1 as the initial accumulator.
func MaxSlot(cur int, s string) int {
	op := ParseOperand(s)
	if op.Global || op.Depth != 0 {
		return cur
	}
	if op.Slot > cur {
		return op.Slot
	}
	return cur
}
