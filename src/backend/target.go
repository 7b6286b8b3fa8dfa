// Package backend turns a lowered ir.Program into target-specific assembly
// text. Each concrete target lives in its own subpackage (x64, arm64) and
// registers itself here so the driver selects one by name without either side
// importing the other directly.
package backend

import "bxc/src/ir"

// Target emits assembly text for one (TAC program) -> (asm text) mapping.
type Target interface {
	// Name is the identifier used on the command line and in Select, e.g.
	// "x64-linux" or "arm64-darwin".
	Name() string
	// Emit renders prog as complete assembly text for this target.
	Emit(prog *ir.Program) (string, error)
}

// Grounded on the original source's bxlib/bxasmgen.py AsmGen.BACKENDS/register/
// select_backend classmethods, which let AsmGen_x64_Linux and
// AsmGen_arm64_Darwin register themselves under a (system, machine) key and be
// looked up by GetBackend without a central switch statement. The same shape
// is idiomatic in Go's standard library (database/sql.Register,
// image.RegisterFormat): a package-level registry populated by each target's
// init(), queried by name from main.
var registry = map[string]Target{}

// Register adds t to the registry under t.Name(). Called from each target
// subpackage's init().
func Register(t Target) {
	registry[t.Name()] = t
}

// Select looks up a previously registered Target by name.
func Select(name string) (Target, bool) {
	t, ok := registry[name]
	return t, ok
}

// Names returns every registered target name, for CLI usage/help text.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
