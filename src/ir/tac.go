package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Opcode is one of the fixed TAC instruction mnemonics.
type Opcode string

const (
	OpConst Opcode = "const"
	OpCopy  Opcode = "copy"
	OpNeg   Opcode = "neg"
	OpNot   Opcode = "not"
	OpAdd   Opcode = "add"
	OpSub   Opcode = "sub"
	OpMul   Opcode = "mul"
	OpDiv   Opcode = "div"
	OpMod   Opcode = "mod"
	OpAnd   Opcode = "and"
	OpOr    Opcode = "or"
	OpXor   Opcode = "xor"
	OpShl   Opcode = "shl"
	OpShr   Opcode = "shr"
	OpJmp   Opcode = "jmp"
	OpJz    Opcode = "jz"
	OpJnz   Opcode = "jnz"
	OpJlt   Opcode = "jlt"
	OpJle   Opcode = "jle"
	OpJgt   Opcode = "jgt"
	OpJge   Opcode = "jge"
	OpParam Opcode = "param"
	OpCall  Opcode = "call"
	OpRet   Opcode = "ret"
)

// Instr is a single TAC instruction. Args holds operands in the order
// SPEC_FULL.md §6's JSON shape expects (ints and strings interleaved depending
// on opcode — e.g. const's single arg is the literal value, call's args are
// [procedure-name, argument-count]). LinkDepth is only set on call.
//
// Grounded on the original source's bx/tac.py Tac class (opcode/args/result plus
// a json() method), extended with the link_depth field SPEC_FULL.md's JSON
// format requires and that Tac.json() omits — the more complete bxlib/bxasmgen.py
// reader is what actually consumes link_depth, so this follows that file rather
// than the older draft.
type Instr struct {
	Opcode    Opcode
	Args      []interface{}
	Result    string // "" means no result (marshals to JSON null).
	LinkDepth *int   // nil means absent (marshals to JSON null).
}

// Label is a first-class body entry naming a jump target; it marshals as a bare
// string ".L<n>:" rather than an opcode object, per SPEC_FULL.md §6.
type Label string

// BodyItem is either an *Instr or a Label. A Proc's Body is a slice of BodyItem.
type BodyItem interface {
	isBodyItem()
}

func (*Instr) isBodyItem() {}
func (Label) isBodyItem()  {}

// Proc is one procedure's lowered TAC body. Params and Depth are not part of
// the wire JSON shape (SPEC_FULL.md §6 only names "proc" and "body"). Params
// lists, in argument order, the slot operands the backend stores each
// incoming argument into; they are numeric slots ("%<n>") drawn from the same
// counter as every temp, so a parameter's operand does not carry its source
// name. Depth is the procedure's lexical nesting depth; the backends size each
// static-link walk from the operand's or call's own hop count, not from
// Depth. This mirrors the original source's
// TACProc(depth, name, arguments, tac) shape more closely than the trimmed
// JSON wire format does.
type Proc struct {
	Name   string // without the leading "@"; MarshalJSON adds it.
	Params []string
	Depth  int
	Body   []BodyItem
}

// Var is a lowered global variable with its constant initializer.
type Var struct {
	Name string
	Init int64
}

// Program is the full lowered compilation unit: the sequence of TACVar and
// TACProc entries SPEC_FULL.md §4.3 describes, in source declaration order.
type Program struct {
	Vars  []*Var
	Procs []*Proc
}

// ----------------------------
// ----- JSON marshaling ------
// ----------------------------

type instrJSON struct {
	Opcode    string        `json:"opcode"`
	Args      []interface{} `json:"args"`
	Result    *string       `json:"result"`
	LinkDepth *int          `json:"link_depth"`
}

type procJSON struct {
	Proc string        `json:"proc"`
	Body []interface{} `json:"body"`
}

// MarshalJSON renders p as the array of {"proc", "body"} objects SPEC_FULL.md
// §6 specifies. That shape has no slot for bare global declarations, so Vars
// are realized directly as .data assembly by the backend from Program.Vars;
// the JSON output (an intermediate artifact between lowering and codegen)
// only needs the procedure bodies.
func (p *Program) MarshalJSON() ([]byte, error) {
	out := make([]procJSON, 0, len(p.Procs))
	for _, proc := range p.Procs {
		pj := procJSON{Proc: "@" + proc.Name, Body: make([]interface{}, 0, len(proc.Body))}
		for _, item := range proc.Body {
			switch v := item.(type) {
			case Label:
				pj.Body = append(pj.Body, string(v)+":")
			case *Instr:
				var result *string
				if v.Result != "" {
					r := v.Result
					result = &r
				}
				pj.Body = append(pj.Body, instrJSON{
					Opcode:    string(v.Opcode),
					Args:      v.Args,
					Result:    result,
					LinkDepth: v.LinkDepth,
				})
			}
		}
		out = append(out, pj)
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the wire shape MarshalJSON produces back into a
// Program's procedures, for SPEC_FULL.md §8's "TAC JSON round-trip" property.
// Vars is left empty: the JSON format has no slot for global declarations (see
// MarshalJSON's comment), so a round-tripped Program only carries Procs.
// Every numeric arg decodes as int64 regardless of whether the original Instr
// held a plain int or an int64 — JSON's number type draws no such distinction,
// so a round-trip test must compare args by value, not by Go type.
func (p *Program) UnmarshalJSON(data []byte) error {
	var raw []struct {
		Proc string            `json:"proc"`
		Body []json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Vars = nil
	p.Procs = make([]*Proc, 0, len(raw))
	for _, rp := range raw {
		proc := &Proc{Name: strings.TrimPrefix(rp.Proc, "@")}
		for _, item := range rp.Body {
			bodyItem, err := unmarshalBodyItem(item)
			if err != nil {
				return fmt.Errorf("proc %q: %w", rp.Proc, err)
			}
			proc.Body = append(proc.Body, bodyItem)
		}
		p.Procs = append(p.Procs, proc)
	}
	return nil
}

func unmarshalBodyItem(raw json.RawMessage) (BodyItem, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Label(strings.TrimSuffix(s, ":")), nil
	}

	var ij instrJSON
	if err := json.Unmarshal(raw, &ij); err != nil {
		return nil, err
	}
	instr := &Instr{Opcode: Opcode(ij.Opcode), LinkDepth: ij.LinkDepth}
	if ij.Result != nil {
		instr.Result = *ij.Result
	}
	for _, a := range ij.Args {
		switch v := a.(type) {
		case float64:
			instr.Args = append(instr.Args, int64(v))
		default:
			instr.Args = append(instr.Args, v)
		}
	}
	return instr, nil
}
