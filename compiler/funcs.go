package compiler

import (
	"github.com/emberlang/emberc/ir"
	"tinygo.org/x/go-llvm"
)

// declareFunctions is pass 1 of the two-pass function compiler (spec
// §4.7): register every top-level FunctionDef's entry symbol with the
// uniform "n boxed -> 1 boxed" signature before any body is compiled,
// which is what makes mutual recursion possible regardless of
// declaration order.
func (c *Compiler) declareFunctions(fns []*ir.FunctionDef) {
	for _, fn := range fns {
		if _, exists := c.Funcs[fn.Name]; exists {
			c.errorf(fn.Token, "function %q redefined", fn.Name)
			continue
		}
		params := make([]llvm.Type, len(fn.Params))
		for i := range params {
			params[i] = c.boxedType()
		}
		fnType := llvm.FunctionType(c.boxedType(), params, false)
		llvmFn := llvm.AddFunction(c.Module, fn.Name, fnType)
		c.Funcs[fn.Name] = &Func{Name: fn.Name, LLVMFn: llvmFn, Params: fn.Params}
	}
}

// defineFunction is pass 2 (spec §4.7): create the entry block,
// allocate one slot per parameter, store the incoming argument, then
// compile the body. A path that falls off the end without a Return
// gets a trailing return of a boxed integer zero.
func (c *Compiler) defineFunction(fn *ir.FunctionDef) {
	f, ok := c.Funcs[fn.Name]
	if !ok {
		return // declare already reported the redefinition error
	}

	savedLocals := c.locals
	savedFn := c.currentFn
	savedArenaActive := c.arenaActive
	c.locals = make(map[string]llvm.Value)
	c.currentFn = fn.Name
	c.arenaActive = false // per spec §4.5, only main's entry block tracks heap allocations

	entry := c.Context.AddBasicBlock(f.LLVMFn, "entry")
	c.builder.SetInsertPointAtEnd(entry)

	for i, p := range fn.Params {
		slot := c.createEntryBlockAlloca(p.Name)
		c.locals[p.Name] = slot
		c.builder.CreateStore(f.LLVMFn.Param(i), slot)
	}

	c.genStmts(fn.Body)

	if c.blockOpen() {
		c.builder.CreateRet(c.constBoxedInt(0))
	}

	c.locals = savedLocals
	c.currentFn = savedFn
	c.arenaActive = savedArenaActive
}

// genCall looks up the target in the function table, fills any
// missing trailing arguments with their default expressions evaluated
// in the caller's scope, and emits the call (spec §4.4 "Call").
func (c *Compiler) genCall(call *ir.Call) llvm.Value {
	f, ok := c.Funcs[call.Name]
	if !ok {
		c.errorf(call.Token, "undefined function %q", call.Name)
		return c.constBoxedInt(0)
	}
	if len(call.Args) > len(f.Params) {
		c.errorf(call.Token, "too many arguments to %q: want %d, got %d", call.Name, len(f.Params), len(call.Args))
		return c.constBoxedInt(0)
	}

	args := make([]llvm.Value, len(f.Params))
	for i := range f.Params {
		if i < len(call.Args) {
			args[i] = c.genExpr(call.Args[i])
			continue
		}
		def := f.Params[i].Default
		if def == nil {
			c.errorf(call.Token, "missing required argument %q to %q", f.Params[i].Name, call.Name)
			args[i] = c.constBoxedInt(0)
			continue
		}
		args[i] = c.genExpr(def)
	}

	fnType := llvm.FunctionType(c.boxedType(), paramTypes(len(f.Params), c.boxedType()), false)
	return c.builder.CreateCall(fnType, f.LLVMFn, args, call.Name+"_call")
}

func paramTypes(n int, ty llvm.Type) []llvm.Type {
	out := make([]llvm.Type, n)
	for i := range out {
		out[i] = ty
	}
	return out
}

// compileMain compiles the top-level statements as the synthetic
// `main` function (spec §4.7), whose entry block is the sole arena-
// tracking block (spec §4.5, §3.5).
func (c *Compiler) compileMain(stmts []ir.Stmt) {
	mainType := llvm.FunctionType(c.Context.Int32Type(), []llvm.Type{}, false)
	mainFn := llvm.AddFunction(c.Module, "main", mainType)
	entry := c.Context.AddBasicBlock(mainFn, "entry")
	c.builder.SetInsertPointAtEnd(entry)

	c.locals = make(map[string]llvm.Value)
	c.currentFn = ""
	c.arenaActive = true
	c.mainEntry = entry
	c.arena = nil

	c.genStmts(stmts)

	if c.blockOpen() {
		c.freeArena()
		c.builder.CreateRet(llvm.ConstInt(c.Context.Int32Type(), 0, false))
	}
}

// freeArena emits free() for every tracked heap pointer in LIFO order
// (spec §3.5/§4.5/§5): the discipline that keeps free a post-dominator
// of every matching alloc, since only entry-block allocations are
// tracked at all.
func (c *Compiler) freeArena() {
	for i := len(c.arena) - 1; i >= 0; i-- {
		c.callFree(c.arena[i])
	}
}
