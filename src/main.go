// Command bxc compiles a bx source file to x64 or ARM64 assembly text, or to
// an intermediate TAC JSON representation.
//
// Grounded on the teacher's cmd-line handling (src/util/args.go's flag-based
// Options struct) but restructured around a single "compile" subcommand per
// SPEC_FULL.md §6.1, using github.com/google/subcommands the way other
// multi-verb CLIs in the retrieved pack are structured, instead of the
// teacher's flat flag package usage.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	_ "bxc/src/backend/arm64"
	_ "bxc/src/backend/x64"

	"bxc/src/ast"
	"bxc/src/backend"
	"bxc/src/frontend"
	"bxc/src/ir"
	"bxc/src/util"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&compileCmd{}, "")
	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

// compileCmd implements the single "compile" subcommand SPEC_FULL.md §6.1
// describes: bxc compile [-o out] [-target name] [-emit-asm] [-v] <input>.bx
type compileCmd struct {
	out     string
	target  string
	emitAsm bool
	verbose bool
}

func (*compileCmd) Name() string     { return "compile" }
func (*compileCmd) Synopsis() string { return "compile a bx source file" }
func (*compileCmd) Usage() string {
	return "compile [-o out] [-target x64-linux|arm64-darwin] [-emit-asm] [-v] <input>.bx\n"
}

func (c *compileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "o", "", "output file path (default: <input_basename>.tac.json, or .s under -emit-asm)")
	f.StringVar(&c.target, "target", "x64-linux", "backend target: "+joinNames(backend.Names()))
	f.BoolVar(&c.emitAsm, "emit-asm", false, "lower all the way to target assembly text (default: emit TAC JSON only)")
	f.BoolVar(&c.verbose, "v", false, "verbose stage-by-stage logging")
}

func (c *compileCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := util.NewLogger(c.verbose).Sugar()
	defer log.Sync()

	if f.NArg() != 1 {
		log.Errorf("expected exactly one input file, got %d", f.NArg())
		return subcommands.ExitUsageError
	}

	if err := c.run(f.Arg(0), log); err != nil {
		log.Errorf("%s", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *compileCmd) run(path string, log *zap.SugaredLogger) error {
	if !strings.HasSuffix(path, ".bx") {
		return fmt.Errorf("input %q must have the \".bx\" extension", path)
	}

	src, err := util.ReadSource(path)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	log.Debugf("read %d bytes from %s", len(src), path)

	rep := util.NewReporter()

	prog, ok := frontend.Parse(src, rep)
	if !ok {
		return reportErr(rep, "parse")
	}
	log.Debugf("parsed %d global(s), %d top-level procedure(s)", len(prog.Globals), len(prog.Procs))

	pre := ir.NewPreTyper(rep)
	globals := pre.Run(prog)
	if rep.Len() > 0 {
		return reportErr(rep, "check")
	}

	checker := ir.NewTypeChecker(rep, pre.Procs, globals)
	checker.Run(prog)
	if rep.Len() > 0 {
		return reportErr(rep, "check")
	}
	log.Debugf("typechecked %d procedure signature(s)", len(pre.Procs))

	decls := make(map[string]*ast.ProcDecl, len(pre.Procs))
	for name, sig := range pre.Procs {
		decls[name] = sig.Decl
	}

	lowerer := ir.NewLowerer(decls)
	tac := lowerer.Lower(prog)
	log.Debugf("lowered to %d procedure(s)", len(tac.Procs))

	if !c.emitAsm {
		out := c.out
		if out == "" {
			out = defaultOutputPath(path, ".tac.json")
		}
		b, err := json.MarshalIndent(tac, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling TAC: %w", err)
		}
		return util.WriteOutput(out, string(b)+"\n")
	}

	target, ok := backend.Select(c.target)
	if !ok {
		return fmt.Errorf("unknown target %q (available: %s)", c.target, joinNames(backend.Names()))
	}
	asm, err := target.Emit(tac)
	if err != nil {
		return fmt.Errorf("code generation: %w", err)
	}
	log.Debugf("emitted %d byte(s) of %s assembly", len(asm), target.Name())

	out := c.out
	if out == "" {
		out = defaultOutputPath(path, ".s")
	}
	return util.WriteOutput(out, asm)
}

// defaultOutputPath derives the sibling output path for path (a ".bx" source
// file) by swapping its extension for ext, per spec.md §6's
// "<input_basename>.tac.json" rule, generalized to the ".s" sibling
// SPEC_FULL.md §6.1 adds for -emit-asm.
func defaultOutputPath(path, ext string) string {
	return strings.TrimSuffix(path, ".bx") + ext
}

func reportErr(rep *util.Reporter, stage string) error {
	var msg string
	for _, d := range rep.All() {
		msg += d.Error() + "\n"
	}
	return fmt.Errorf("%s failed:\n%s", stage, msg)
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
