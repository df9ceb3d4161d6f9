package compiler

import (
	"github.com/emberlang/emberc/ir"
	"tinygo.org/x/go-llvm"
)

// genStmts threads the builder through a statement list, honoring the
// state machine of spec §4.8: once a terminator has been emitted
// (Return/Break/Continue), remaining statements in the same lexical
// scope are unreachable and are not compiled, matching "the generator
// must start a fresh unreachable-or-sink block if further code
// appears in the same lexical scope" by simply refusing to emit past
// a terminator rather than generating genuinely dead code.
func (c *Compiler) genStmts(stmts []ir.Stmt) {
	for _, s := range stmts {
		if !c.blockOpen() {
			return
		}
		c.genStmt(s)
	}
}

func (c *Compiler) genStmt(stmt ir.Stmt) {
	switch s := stmt.(type) {
	case *ir.Assign:
		c.genAssign(s)
	case *ir.ExprStmt:
		c.genExpr(s.X)
	case *ir.Print:
		c.genPrint(s)
	case *ir.Return:
		c.genReturn(s)
	case *ir.If:
		c.genIf(s)
	case *ir.While:
		c.genWhile(s)
	case *ir.For:
		c.genFor(s)
	case *ir.Break:
		c.genBreak(s)
	case *ir.Continue:
		c.genContinue(s)
	default:
		c.errorf(stmt.Pos(), "codegen: unsupported statement %T", stmt)
	}
}

// genAssign allocates a slot in the entry block on first write (spec
// §4.5 "Assign"); the old value at that slot is not freed, matching
// the "heap objects constructed in conditional or loop bodies are not
// freed" trade-off — tracking ownership well enough to free on
// reassignment would need the arena-per-scope design spec §9 defers.
func (c *Compiler) genAssign(a *ir.Assign) {
	val := c.genExpr(a.Value)
	slot := c.slotFor(a.Name)
	c.builder.CreateStore(val, slot)
}

// genPrint dispatches each argument to the runtime's tag-switching
// print routine, space-separating arguments and trailing with one
// newline (spec §4.5 "Print", §6 "print (variadic, space-separated,
// trailing newline)").
func (c *Compiler) genPrint(p *ir.Print) {
	for i, arg := range p.Args {
		if i > 0 {
			c.callPrintSpace()
		}
		v := c.genExpr(arg)
		c.callPrintValue(v)
	}
	c.callPrintNewline()
}

// genReturn emits the function's return terminator (spec §4.5
// "Return"). Inside a function this returns the boxed value (zero if
// bare `return`); inside main (currentFn == "") it frees the arena
// first and returns the i32 status.
func (c *Compiler) genReturn(r *ir.Return) {
	if c.currentFn == "" {
		c.freeArena()
		c.builder.CreateRet(llvm.ConstInt(c.Context.Int32Type(), 0, false))
		return
	}
	var val llvm.Value
	if r.Value != nil {
		val = c.genExpr(r.Value)
	} else {
		val = c.constBoxedInt(0)
	}
	c.builder.CreateRet(val)
}

func (c *Compiler) genBreak(b *ir.Break) {
	loop, ok := c.currentLoop()
	if !ok {
		c.errorf(b.Token, "break outside a loop")
		return
	}
	c.builder.CreateBr(loop.Exit)
}

func (c *Compiler) genContinue(cnt *ir.Continue) {
	loop, ok := c.currentLoop()
	if !ok {
		c.errorf(cnt.Token, "continue outside a loop")
		return
	}
	c.builder.CreateBr(loop.Cond)
}

// genIf implements if/elif/else (elif already nested into Else by
// lowering). The merge block is only created if reachable from either
// arm, per spec §4.5 "If/elif/else".
func (c *Compiler) genIf(i *ir.If) {
	cond := c.toTruthInst(c.genExpr(i.Cond))

	fn := c.builder.GetInsertBlock().Parent()
	thenBlk := c.Context.AddBasicBlock(fn, "if_then")
	elseBlk := c.Context.AddBasicBlock(fn, "if_else")
	c.builder.CreateCondBr(cond, thenBlk, elseBlk)

	c.builder.SetInsertPointAtEnd(thenBlk)
	c.genStmts(i.Then)
	thenOpen := c.blockOpen()

	c.builder.SetInsertPointAtEnd(elseBlk)
	c.genStmts(i.Else)
	elseOpen := c.blockOpen()

	if !thenOpen && !elseOpen {
		// Both arms terminated (e.g. every path returns); no merge
		// block is reachable, so none is created.
		return
	}

	mergeBlk := c.Context.AddBasicBlock(fn, "if_merge")
	if thenOpen {
		c.builder.SetInsertPointAtEnd(thenBlk)
		c.builder.CreateBr(mergeBlk)
	}
	if elseOpen {
		c.builder.SetInsertPointAtEnd(elseBlk)
		c.builder.CreateBr(mergeBlk)
	}
	c.builder.SetInsertPointAtEnd(mergeBlk)
}

// genWhile builds cond/body/exit blocks with the back-edge body->cond
// and fall-through cond->exit (spec §4.5 "While").
func (c *Compiler) genWhile(w *ir.While) {
	fn := c.builder.GetInsertBlock().Parent()
	condBlk := c.Context.AddBasicBlock(fn, "while_cond")
	bodyBlk := c.Context.AddBasicBlock(fn, "while_body")
	exitBlk := c.Context.AddBasicBlock(fn, "while_exit")

	c.builder.CreateBr(condBlk)

	c.builder.SetInsertPointAtEnd(condBlk)
	cond := c.toTruthInst(c.genExpr(w.Cond))
	c.builder.CreateCondBr(cond, bodyBlk, exitBlk)

	c.builder.SetInsertPointAtEnd(bodyBlk)
	c.pushLoop(condBlk, exitBlk)
	c.genStmts(w.Body)
	c.popLoop()
	if c.blockOpen() {
		c.builder.CreateBr(condBlk)
	}

	c.builder.SetInsertPointAtEnd(exitBlk)
}

// genFor lowers the IR For (already desugared from `for i in
// range(...)`) into a while-shaped loop. Start/Stop/Step are
// materialized exactly once before the loop (spec §4.5 "For (range)").
// The comparison direction is always chosen at runtime from Step's
// sign, literal or not, so a
// negative step correctly counts down instead of looping forever
// (SPEC_FULL §4's resolution of the §9 open question).
func (c *Compiler) genFor(f *ir.For) {
	startVal := c.genExpr(f.Start)
	stopVal := c.genExpr(f.Stop)
	stepVal := c.genExpr(f.Step)

	startInt := c.payloadIntInst(startVal)
	stopInt := c.payloadIntInst(stopVal)
	stepInt := c.payloadIntInst(stepVal)

	slot := c.slotFor(f.Var)
	c.builder.CreateStore(c.boxRuntimeInt(startInt), slot)

	fn := c.builder.GetInsertBlock().Parent()
	condBlk := c.Context.AddBasicBlock(fn, "for_cond")
	bodyBlk := c.Context.AddBasicBlock(fn, "for_body")
	stepBlk := c.Context.AddBasicBlock(fn, "for_step")
	exitBlk := c.Context.AddBasicBlock(fn, "for_exit")
	c.builder.CreateBr(condBlk)

	c.builder.SetInsertPointAtEnd(condBlk)
	curInt := c.payloadIntInst(c.builder.CreateLoad(c.boxedType(), slot, f.Var))
	ascending := c.builder.CreateICmp(llvm.IntSGT, stepInt, c.i64(0), "step_positive")
	condAsc := c.builder.CreateICmp(llvm.IntSLT, curInt, stopInt, "for_cond_asc")
	condDesc := c.builder.CreateICmp(llvm.IntSGT, curInt, stopInt, "for_cond_desc")
	cond := c.builder.CreateSelect(ascending, condAsc, condDesc, "for_cond")
	c.builder.CreateCondBr(cond, bodyBlk, exitBlk)

	c.builder.SetInsertPointAtEnd(bodyBlk)
	c.pushLoop(stepBlk, exitBlk)
	c.genStmts(f.Body)
	c.popLoop()
	if c.blockOpen() {
		c.builder.CreateBr(stepBlk)
	}

	c.builder.SetInsertPointAtEnd(stepBlk)
	cur := c.payloadIntInst(c.builder.CreateLoad(c.boxedType(), slot, f.Var))
	next := c.builder.CreateAdd(cur, stepInt, "for_next")
	c.builder.CreateStore(c.boxRuntimeInt(next), slot)
	c.builder.CreateBr(condBlk)

	c.builder.SetInsertPointAtEnd(exitBlk)
}
