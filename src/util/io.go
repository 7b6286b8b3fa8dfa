package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Writer accumulates assembly text in a strings.Builder and flushes it to an
// underlying io.Writer on demand.
//
// Grounded on the teacher's util/io.go Writer, which buffers per-goroutine output
// and ships it to a single listener over a channel so parallel codegen workers don't
// interleave writes. The compiler here runs one backend over one program on one
// goroutine (spec.md §5), so the channel and its listener goroutine are dropped;
// what remains is the buffering and the per-instruction convenience methods. The
// backend emitters use Write, WriteString and Label; they format instructions
// with their own helpers rather than Ins0..Ins3 or LoadStore.
type Writer struct {
	sb strings.Builder
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Write writes a format string to the Writer's buffer.
func (w *Writer) Write(format string, args ...interface{}) {
	w.sb.WriteString(fmt.Sprintf(format, args...))
}

// WriteString writes a plain string to the Writer's buffer.
func (w *Writer) WriteString(s string) {
	w.sb.WriteString(s)
}

// Ins0 writes a zero-operand instruction.
func (w *Writer) Ins0(op string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\n", op))
}

// Ins1 writes a one-line instruction using the operator and single operand.
func (w *Writer) Ins1(op, rs1 string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s\n", op, rs1))
}

// Ins2 writes a one-line instruction using the operator, destination and single source.
func (w *Writer) Ins2(op, rd, rs1 string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s, %s\n", op, rd, rs1))
}

// Ins3 writes a one-line instruction using the operator, destination and two sources.
func (w *Writer) Ins3(op, rd, rs1, rs2 string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s, %s, %s\n", op, rd, rs1, rs2))
}

// LoadStore writes a load or store instruction of register reg with offset to pointer.
func (w *Writer) LoadStore(op, reg string, offset int, pointer string) {
	if offset == 0 {
		w.sb.WriteString(fmt.Sprintf("\t%s\t%s, (%s)\n", op, reg, pointer))
		return
	}
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s, %d(%s)\n", op, reg, offset, pointer))
}

// Label writes a one-line label with the given name.
func (w *Writer) Label(name string) {
	w.sb.WriteString(fmt.Sprintf("%s:\n", name))
}

// String returns the buffered text without consuming it.
func (w *Writer) String() string {
	return w.sb.String()
}

// Flush writes the buffer's contents to out and resets the buffer.
func (w *Writer) Flush(out io.Writer) error {
	_, err := io.WriteString(out, w.sb.String())
	w.sb.Reset()
	return err
}

// ReadSource reads the named source file, or stdin when name is "-".
func ReadSource(name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(bufio.NewReader(os.Stdin))
		return string(b), err
	}
	b, err := os.ReadFile(name)
	return string(b), err
}

// WriteOutput writes s to the named file, or stdout when name is "".
func WriteOutput(name, s string) error {
	if name == "" {
		_, err := io.WriteString(os.Stdout, s)
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	return w.Flush()
}
