// Package compiler is the core of emberc: it walks the IR tree and
// emits LLVM textual IR for the NaN-boxed value representation, the
// polymorphic binary operator engine, structured control flow, and
// the two-pass function compiler, then runs the optimization and
// verification driver over the finished module.
package compiler

import (
	"fmt"

	"github.com/emberlang/emberc/ir"
	"github.com/emberlang/emberc/token"
	"tinygo.org/x/go-llvm"
)

// Func is the function table entry populated in the declare pass
// (§4.7) and consumed in the define pass: signature, entry symbol,
// parameter names, and default-value expressions.
type Func struct {
	Name   string
	LLVMFn llvm.Value
	Params []*ir.Param
}

// loopFrame is one entry on the loop stack; Break branches to Exit,
// Continue branches to Cond (spec §4.5).
type loopFrame struct {
	Cond llvm.BasicBlock
	Exit llvm.BasicBlock
}

// Compiler owns the single LLVM context/module/builder for one
// compilation unit (spec §5: "a single compilation context owns the
// module; the builder holds a single insertion point").
type Compiler struct {
	Context llvm.Context
	Module  llvm.Module
	builder llvm.Builder

	Funcs map[string]*Func

	// locals maps a variable name to its stack slot within the
	// function currently being compiled. Reset per function; the
	// top-level program shares this discipline inside synthetic main.
	locals map[string]llvm.Value

	loopStack []loopFrame

	// arena is the process-wide list of heap pointers allocated by
	// string/list construction in main's entry block (spec §3.5).
	// Populated only while compiling main; consulted at main's
	// terminal return to emit LIFO frees.
	arena       []llvm.Value
	arenaActive bool
	mainEntry   llvm.BasicBlock

	currentFn string // "" while compiling main

	formatCounter int
	globalCounter int

	Errors []*token.CompileError

	rt *runtimeSurface
}

func NewCompiler(moduleName string) *Compiler {
	ctx := llvm.NewContext()
	mod := ctx.NewModule(moduleName)
	builder := ctx.NewBuilder()

	c := &Compiler{
		Context: ctx,
		Module:  mod,
		builder: builder,
		Funcs:   make(map[string]*Func),
		locals:  make(map[string]llvm.Value),
	}
	c.rt = c.declareRuntimeSurface()
	return c
}

func (c *Compiler) errorf(tok token.Token, format string, args ...interface{}) {
	c.Errors = append(c.Errors, &token.CompileError{Token: tok, Msg: fmt.Sprintf(format, args...)})
}

// boxedType is the uniform i64 representation every value, function
// parameter, and return has (spec §3.1/§6).
func (c *Compiler) boxedType() llvm.Type { return c.Context.Int64Type() }

// CompileProgram runs the full two-pass function compiler over
// prog.Functions, then compiles prog.Main into a synthetic `main`
// returning i32 0 (spec §4.7). Call Optimize afterward to run
// verification and the optimization pipeline.
func (c *Compiler) CompileProgram(prog *ir.Program) {
	c.declareFunctions(prog.Functions)
	for _, fn := range prog.Functions {
		c.defineFunction(fn)
	}
	c.compileMain(prog.Main)
}

// IR returns the module's textual LLVM IR.
func (c *Compiler) IR() string {
	return c.Module.String()
}

// Dispose releases the LLVM context and everything it owns. Call
// after the textual IR has been extracted.
func (c *Compiler) Dispose() {
	c.builder.Dispose()
	c.Context.Dispose()
}

// createEntryBlockAlloca allocates a slot in the current function's
// entry block regardless of the builder's current insertion point,
// so every local's slot dominates every use across loops and branches
// (spec §3.3, §4.5 "Assign").
func (c *Compiler) createEntryBlockAlloca(name string) llvm.Value {
	current := c.builder.GetInsertBlock()
	fn := current.Parent()
	entry := fn.EntryBasicBlock()
	first := entry.FirstInstruction()

	if first.IsNil() {
		c.builder.SetInsertPointAtEnd(entry)
	} else {
		c.builder.SetInsertPointBefore(first)
	}
	alloca := c.builder.CreateAlloca(c.boxedType(), name)
	c.builder.SetInsertPointAtEnd(current)
	return alloca
}

// slotFor returns the stack slot for name, allocating one in the
// entry block on first assignment (spec §4.5 "Assign").
func (c *Compiler) slotFor(name string) llvm.Value {
	if slot, ok := c.locals[name]; ok {
		return slot
	}
	slot := c.createEntryBlockAlloca(name)
	c.locals[name] = slot
	return slot
}

func (c *Compiler) nextGlobalName(prefix string) string {
	c.globalCounter++
	return fmt.Sprintf("%s.%d", prefix, c.globalCounter)
}

// pushLoop/popLoop/currentLoop manage the loop stack break/continue
// targets thread through (spec §4.5).
func (c *Compiler) pushLoop(cond, exit llvm.BasicBlock) {
	c.loopStack = append(c.loopStack, loopFrame{Cond: cond, Exit: exit})
}

func (c *Compiler) popLoop() {
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
}

func (c *Compiler) currentLoop() (loopFrame, bool) {
	if len(c.loopStack) == 0 {
		return loopFrame{}, false
	}
	return c.loopStack[len(c.loopStack)-1], true
}

// blockOpen reports whether the current block still needs a
// terminator (spec §4.8's builder state machine: InBlock vs
// Terminated).
func (c *Compiler) blockOpen() bool {
	blk := c.builder.GetInsertBlock()
	last := blk.LastInstruction()
	return last.IsNil() || !isTerminatorInst(last)
}

// isTerminatorInst reports whether v is a block terminator
// instruction. The vendored llvm binding does not expose
// LLVMIsATerminatorInst, so this checks the instruction opcode
// against the set of terminator opcodes instead.
func isTerminatorInst(v llvm.Value) bool {
	switch v.InstructionOpcode() {
	case llvm.Ret, llvm.Br, llvm.Switch, llvm.IndirectBr, llvm.Invoke,
		llvm.Unreachable, llvm.Resume, llvm.CleanupRet, llvm.CatchRet, llvm.CatchSwitch:
		return true
	default:
		return false
	}
}

// trackArena records ptr on the allocation arena only when the
// current insertion point is main's entry block (spec §4.5
// "Top-level arena discipline"): allocations in conditional or loop
// bodies are deliberately not tracked, since free must post-dominate
// alloc and only the entry block gives that guarantee for every path.
func (c *Compiler) trackArena(ptr llvm.Value) {
	if !c.arenaActive {
		return
	}
	if c.builder.GetInsertBlock() != c.mainEntry {
		return
	}
	c.arena = append(c.arena, ptr)
}

// createGlobalString emits a private, NUL-terminated constant string
// global and returns an i8* to its first byte (spec §4.3 "Format
// strings are singleton globals").
func (c *Compiler) createGlobalString(prefix, value string) llvm.Value {
	name := c.nextGlobalName(prefix)
	strConst := llvm.ConstString(value, true)
	arrTy := llvm.ArrayType(c.Context.Int8Type(), len(value)+1)
	global := llvm.AddGlobal(c.Module, arrTy, name)
	global.SetInitializer(strConst)
	global.SetLinkage(llvm.PrivateLinkage)
	global.SetGlobalConstant(true)

	zero := c.i64(0)
	return c.builder.CreateGEP(arrTy, global, []llvm.Value{zero, zero}, prefix+"_ptr")
}
