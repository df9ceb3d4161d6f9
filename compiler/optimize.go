package compiler

import (
	"fmt"

	"tinygo.org/x/go-llvm"
)

// Optimize verifies the freshly built module, runs the default O2
// pipeline (spec §4.6: mem2reg, instcombine, GVN, simplifycfg, loop
// and SLP vectorization, loop unrolling, inlining, function merging,
// tail-call elimination), then verifies again. A verification failure
// is fatal and names the offending function, since a miscompiled
// module cannot be usefully linked.
func (c *Compiler) Optimize() error {
	if err := llvm.VerifyModule(c.Module, llvm.ReturnStatusAction); err != nil {
		return fmt.Errorf("emberc: module failed verification before optimization: %w", err)
	}

	if err := llvm.InitializeNativeTarget(); err != nil {
		return fmt.Errorf("emberc: failed to initialize native target: %w", err)
	}
	if err := llvm.InitializeNativeAsmPrinter(); err != nil {
		return fmt.Errorf("emberc: failed to initialize native asm printer: %w", err)
	}

	triple := llvm.DefaultTargetTriple()
	target, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return fmt.Errorf("emberc: failed to resolve target %q: %w", triple, err)
	}
	machine := target.CreateTargetMachine(triple, "generic", "",
		llvm.CodeGenLevelDefault, llvm.RelocDefault, llvm.CodeModelDefault)
	defer machine.Dispose()

	opts := llvm.NewPassBuilderOptions()
	defer opts.Dispose()
	opts.SetLoopVectorization(true)
	opts.SetSLPVectorization(true)
	opts.SetLoopUnrolling(true)
	opts.SetMergeFunctions(true)

	// "default<O2>" pulls in mem2reg, instcombine, GVN, simplifycfg,
	// inlining, and tail-call elimination as part of the standard
	// pipeline; the options above turn on the vectorizer/unroller/
	// merge-functions passes that aren't enabled at O2 by default.
	if err := c.Module.RunPasses("default<O2>", machine, opts); err != nil {
		return fmt.Errorf("emberc: optimization pipeline failed: %w", err)
	}

	if err := llvm.VerifyModule(c.Module, llvm.ReturnStatusAction); err != nil {
		return fmt.Errorf("emberc: module failed verification after optimization (likely a miscompiled function): %w", err)
	}

	return nil
}
