package compiler

import (
	"github.com/emberlang/emberc/ir"
	"tinygo.org/x/go-llvm"
)

// genExpr compiles any IR expression to a boxed i64 SSA value,
// respecting the §3.1 invariants (spec §4.4).
func (c *Compiler) genExpr(e ir.Expr) llvm.Value {
	switch x := e.(type) {
	case *ir.Const:
		if !boxFitsInt48(x.Value) {
			c.errorf(x.Token, "integer literal %d does not fit in a 48-bit payload", x.Value)
		}
		return c.constBoxedInt(x.Value)
	case *ir.Float:
		return c.boxFloat(llvm.ConstFloat(c.Context.DoubleType(), x.Value))
	case *ir.Bool:
		return c.constBoxedBool(x.Value)
	case *ir.Str:
		return c.genStringLiteral(x)
	case *ir.Var:
		return c.genVar(x)
	case *ir.List:
		return c.genListLiteral(x)
	case *ir.Index:
		return c.genIndex(x)
	case *ir.Len:
		return c.genLen(x)
	case *ir.BinOp:
		l, r := c.genExpr(x.L), c.genExpr(x.R)
		return c.genBinOp(x, l, r)
	case *ir.Cmp:
		l, r := c.genExpr(x.L), c.genExpr(x.R)
		return c.genCmp(x, l, r)
	case *ir.Logical:
		return c.genLogical(x)
	case *ir.Unary:
		v := c.genExpr(x.X)
		return c.genUnary(x, v)
	case *ir.Call:
		return c.genCall(x)
	case *ir.Input:
		return c.boxFloat(c.callInputF64())
	default:
		c.errorf(e.Pos(), "codegen: unsupported expression %T", e)
		return c.constBoxedInt(0)
	}
}

const maxInt48 int64 = (1 << 47) - 1
const minInt48 int64 = -(1 << 47)

func boxFitsInt48(i int64) bool { return i >= minInt48 && i <= maxInt48 }

// genStringLiteral materializes a string constant as a heap buffer
// (not the bare global) so every string value, literal or computed,
// has the same uniform free discipline; it is tracked on the arena
// like any other heap allocation built in main's entry block.
func (c *Compiler) genStringLiteral(s *ir.Str) llvm.Value {
	global := c.createGlobalString("str", s.Value)
	n := c.i64(uint64(len(s.Value) + 1))
	buf := c.callMalloc(n)
	c.callMemcpy(buf, global, n)
	c.trackArena(buf)
	return c.boxStringPtr(buf)
}

func (c *Compiler) genVar(v *ir.Var) llvm.Value {
	slot, ok := c.locals[v.Name]
	if !ok {
		c.errorf(v.Token, "undefined variable %q", v.Name)
		return c.constBoxedInt(0)
	}
	return c.builder.CreateLoad(c.boxedType(), slot, v.Name)
}

// genListLiteral allocates (n+1)*8 bytes, stores the count at offset
// 0 and each element at offset i+1 (spec §3.2/§4.4 "List literal").
func (c *Compiler) genListLiteral(l *ir.List) llvm.Value {
	n := len(l.Elems)
	i64 := c.Context.Int64Type()
	totalBytes := c.i64(uint64((n + 1) * 8))
	raw := c.callMalloc(totalBytes)
	buf := c.builder.CreateBitCast(raw, llvm.PointerType(i64, 0), "list_buf")

	countSlot := c.builder.CreateGEP(i64, buf, []llvm.Value{c.i64(0)}, "list_count_slot")
	c.builder.CreateStore(c.i64(uint64(n)), countSlot)

	for i, elem := range l.Elems {
		v := c.genExpr(elem)
		slot := c.builder.CreateGEP(i64, buf, []llvm.Value{c.i64(uint64(i + 1))}, "list_elem_slot")
		c.builder.CreateStore(v, slot)
	}

	c.trackArena(raw)
	return c.boxListPtr(raw)
}

// genIndex extracts the list pointer, casts idx to integer, and loads
// from offset idx+1; no bounds check is performed (spec §4.4/§9: an
// implementation may trap, emberc does not).
func (c *Compiler) genIndex(ix *ir.Index) llvm.Value {
	listVal := c.genExpr(ix.List)
	idxVal := c.genExpr(ix.Idx)
	i64 := c.Context.Int64Type()

	buf := c.unboxPtr(listVal, i64)
	idxInt := c.builder.CreateSelect(c.isFloatInst(idxVal),
		c.builder.CreateFPToSI(c.unboxFloat(idxVal), i64, "idx_f2i"),
		c.payloadIntInst(idxVal), "idx_int")
	offset := c.builder.CreateAdd(idxInt, c.i64(1), "idx_off")
	slot := c.builder.CreateGEP(i64, buf, []llvm.Value{offset}, "list_elem_ptr")
	return c.builder.CreateLoad(i64, slot, "list_elem")
}

// genLen dispatches on the external tag of x at runtime: STRING calls
// strlen, LIST loads word 0, anything else yields 0 (spec §4.4
// "List literal, index, len").
func (c *Compiler) genLen(l *ir.Len) llvm.Value {
	v := c.genExpr(l.X)
	ext := c.extTagInst(v)

	fn := c.builder.GetInsertBlock().Parent()
	strBlk := c.Context.AddBasicBlock(fn, "len_str")
	listBlk := c.Context.AddBasicBlock(fn, "len_list")
	elseBlk := c.Context.AddBasicBlock(fn, "len_else")
	mergeBlk := c.Context.AddBasicBlock(fn, "len_merge")

	sw := c.builder.CreateSwitch(ext, elseBlk, 2)
	sw.AddCase(c.i64(uint64(extString)), strBlk)
	sw.AddCase(c.i64(uint64(extList)), listBlk)

	c.builder.SetInsertPointAtEnd(strBlk)
	strLen := c.callStrlen(c.unboxPtr(v, c.Context.Int8Type()))
	c.builder.CreateBr(mergeBlk)
	strEnd := c.builder.GetInsertBlock()

	c.builder.SetInsertPointAtEnd(listBlk)
	i64 := c.Context.Int64Type()
	buf := c.unboxPtr(v, i64)
	countSlot := c.builder.CreateGEP(i64, buf, []llvm.Value{c.i64(0)}, "list_count_slot")
	listLen := c.builder.CreateLoad(i64, countSlot, "list_len")
	c.builder.CreateBr(mergeBlk)
	listEnd := c.builder.GetInsertBlock()

	c.builder.SetInsertPointAtEnd(elseBlk)
	zero := c.i64(0)
	c.builder.CreateBr(mergeBlk)
	elseEnd := c.builder.GetInsertBlock()

	c.builder.SetInsertPointAtEnd(mergeBlk)
	phi := c.builder.CreatePHI(i64, "len_result")
	phi.AddIncoming([]llvm.Value{strLen, listLen, zero}, []llvm.BasicBlock{strEnd, listEnd, elseEnd})
	return c.boxRuntimeInt(phi)
}

// genLogical short-circuits `and`/`or`: the right operand is only
// evaluated when the left doesn't already decide the result.
func (c *Compiler) genLogical(l *ir.Logical) llvm.Value {
	left := c.genExpr(l.L)
	leftTruth := c.toTruthInst(left)

	fn := c.builder.GetInsertBlock().Parent()
	rhsBlk := c.Context.AddBasicBlock(fn, "logical_rhs")
	mergeBlk := c.Context.AddBasicBlock(fn, "logical_merge")

	var shortCircuit llvm.Value
	if l.Op == "and" {
		shortCircuit = left
		c.builder.CreateCondBr(leftTruth, rhsBlk, mergeBlk)
	} else {
		shortCircuit = left
		c.builder.CreateCondBr(leftTruth, mergeBlk, rhsBlk)
	}
	leftEnd := c.builder.GetInsertBlock()

	c.builder.SetInsertPointAtEnd(rhsBlk)
	right := c.genExpr(l.R)
	c.builder.CreateBr(mergeBlk)
	rhsEnd := c.builder.GetInsertBlock()

	c.builder.SetInsertPointAtEnd(mergeBlk)
	phi := c.builder.CreatePHI(c.boxedType(), "logical_result")
	phi.AddIncoming([]llvm.Value{shortCircuit, right}, []llvm.BasicBlock{leftEnd, rhsEnd})
	return phi
}
