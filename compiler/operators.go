package compiler

import (
	"github.com/emberlang/emberc/ir"
	"tinygo.org/x/go-llvm"
)

// genBinOp implements the polymorphic binary operator of spec §4.4:
// both operands' payloads are read as int and as double, both result
// lanes are computed speculatively, and the result tag picks which
// lane is boxed. `+` has a runtime-detected string-concatenation
// path: if both operands carry the external STRING tag, the numeric
// lanes are skipped entirely.
func (c *Compiler) genBinOp(b *ir.BinOp, l, r llvm.Value) llvm.Value {
	if b.Op == "+" {
		return c.genAddWithStringCase(b, l, r)
	}
	return c.genNumericBinOp(b.Op, l, r)
}

// genAddWithStringCase builds the diamond: if both operands are
// STRING, concatenate; otherwise fall through to the numeric `+`
// lane. The two arms merge through a phi on the boxed i64 result.
func (c *Compiler) genAddWithStringCase(b *ir.BinOp, l, r llvm.Value) llvm.Value {
	lIsStr := c.builder.CreateICmp(llvm.IntEQ, c.extTagInst(l), c.i64(uint64(extString)), "l_is_str")
	rIsStr := c.builder.CreateICmp(llvm.IntEQ, c.extTagInst(r), c.i64(uint64(extString)), "r_is_str")
	bothStr := c.builder.CreateAnd(lIsStr, rIsStr, "both_str")

	fn := c.builder.GetInsertBlock().Parent()
	strBlk := c.Context.AddBasicBlock(fn, "add_str")
	numBlk := c.Context.AddBasicBlock(fn, "add_num")
	mergeBlk := c.Context.AddBasicBlock(fn, "add_merge")
	c.builder.CreateCondBr(bothStr, strBlk, numBlk)

	c.builder.SetInsertPointAtEnd(strBlk)
	strResult := c.genStringConcat(l, r)
	c.builder.CreateBr(mergeBlk)
	strEndBlk := c.builder.GetInsertBlock()

	c.builder.SetInsertPointAtEnd(numBlk)
	numResult := c.genNumericBinOp("+", l, r)
	c.builder.CreateBr(mergeBlk)
	numEndBlk := c.builder.GetInsertBlock()

	c.builder.SetInsertPointAtEnd(mergeBlk)
	phi := c.builder.CreatePHI(c.boxedType(), "add_result")
	phi.AddIncoming([]llvm.Value{strResult, numResult}, []llvm.BasicBlock{strEndBlk, numEndBlk})
	return phi
}

// genStringConcat allocates len(l)+len(r)+1 bytes, copies both
// buffers and a NUL terminator, boxes the pointer, and records it on
// the arena when it lands in main's entry block (spec §4.4, §4.5).
func (c *Compiler) genStringConcat(l, r llvm.Value) llvm.Value {
	lPtr := c.unboxPtr(l, c.Context.Int8Type())
	rPtr := c.unboxPtr(r, c.Context.Int8Type())
	lLen := c.callStrlen(lPtr)
	rLen := c.callStrlen(rPtr)
	total := c.builder.CreateAdd(c.builder.CreateAdd(lLen, rLen, "len_sum"), c.i64(1), "total_len")

	buf := c.callMalloc(total)
	c.callMemcpy(buf, lPtr, lLen)
	offsetBuf := c.builder.CreateGEP(c.Context.Int8Type(), buf, []llvm.Value{lLen}, "concat_off")
	c.callMemcpy(offsetBuf, rPtr, c.builder.CreateAdd(rLen, c.i64(1), "rlen_plus_nul"))

	boxed := c.boxStringPtr(buf)
	c.trackArena(buf)
	return boxed
}

// genNumericBinOp computes both lanes (int and float), picks the
// result lane by promotion rule, and boxes it. This is the "always
// compute both, select at the end" scheme of spec §4.4 step 2-4.
func (c *Compiler) genNumericBinOp(op string, l, r llvm.Value) llvm.Value {
	lIsFloat := c.isFloatInst(l)
	rIsFloat := c.isFloatInst(r)
	resultIsFloat := c.builder.CreateOr(lIsFloat, rIsFloat, "result_is_float")

	lInt := c.payloadIntInst(l)
	rInt := c.payloadIntInst(r)
	lF := c.builder.CreateSelect(lIsFloat, c.unboxFloat(l), c.intToDouble(lInt), "l_f")
	rF := c.builder.CreateSelect(rIsFloat, c.unboxFloat(r), c.intToDouble(rInt), "r_f")

	switch op {
	case "/":
		// Division always produces FLOAT regardless of operand tags
		// (spec §4.4 "mirrors source semantics").
		return c.boxFloat(c.builder.CreateFDiv(lF, rF, "fdiv"))
	case "%", "&", "|", "^", "<<", ">>", "//":
		// Integer-lane-only ops; truncation-to-integer on float
		// operands is the documented behavior (SPEC_FULL §4).
		i64 := c.Context.Int64Type()
		lI := c.builder.CreateSelect(lIsFloat, c.builder.CreateFPToSI(lF, i64, "l_trunc"), lInt, "l_i")
		rI := c.builder.CreateSelect(rIsFloat, c.builder.CreateFPToSI(rF, i64, "r_trunc"), rInt, "r_i")
		return c.constBoxedIntVal(c.intLaneOp(op, lI, rI))
	}

	intResult := c.intLaneOp(op, lInt, rInt)
	floatResult := c.floatLaneOp(op, lF, rF)

	boxedInt := c.boxRuntimeInt(intResult)
	boxedFloat := c.boxFloat(floatResult)
	return c.builder.CreateSelect(resultIsFloat, boxedFloat, boxedInt, "num_result")
}

func (c *Compiler) intLaneOp(op string, l, r llvm.Value) llvm.Value {
	switch op {
	case "+":
		return c.builder.CreateAdd(l, r, "add")
	case "-":
		return c.builder.CreateSub(l, r, "sub")
	case "*":
		return c.builder.CreateMul(l, r, "mul")
	case "//":
		return c.genFloorDiv(l, r)
	case "%":
		return c.builder.CreateSRem(l, r, "rem")
	case "&":
		return c.builder.CreateAnd(l, r, "band")
	case "|":
		return c.builder.CreateOr(l, r, "bor")
	case "^":
		return c.builder.CreateXor(l, r, "bxor")
	case "<<":
		amt := c.builder.CreateAnd(r, c.i64(63), "shamt")
		return c.builder.CreateShl(l, amt, "shl")
	case ">>":
		amt := c.builder.CreateAnd(r, c.i64(63), "shamt")
		return c.builder.CreateAShr(l, amt, "shr")
	default:
		panic("emberc: unknown integer-lane operator " + op)
	}
}

// genFloorDiv computes Python-style floor division: SDiv truncates
// toward zero, so a nonzero remainder whose sign disagrees with the
// divisor's means the truncated quotient landed one above the floor
// (e.g. -7 // 2: SDiv gives -3, remainder -1 disagrees in sign with
// the divisor 2, so the quotient steps down to -4).
func (c *Compiler) genFloorDiv(l, r llvm.Value) llvm.Value {
	q := c.builder.CreateSDiv(l, r, "idiv")
	rem := c.builder.CreateSRem(l, r, "irem")
	zero := c.i64(0)
	remNonZero := c.builder.CreateICmp(llvm.IntNE, rem, zero, "rem_nonzero")
	signsDiffer := c.builder.CreateICmp(llvm.IntSLT, c.builder.CreateXor(rem, r, "rem_xor_r"), zero, "signs_differ")
	needsFloor := c.builder.CreateAnd(remNonZero, signsDiffer, "needs_floor")
	adjust := c.builder.CreateZExt(needsFloor, c.Context.Int64Type(), "floor_adjust")
	return c.builder.CreateSub(q, adjust, "floordiv")
}

func (c *Compiler) floatLaneOp(op string, l, r llvm.Value) llvm.Value {
	switch op {
	case "+":
		return c.builder.CreateFAdd(l, r, "fadd")
	case "-":
		return c.builder.CreateFSub(l, r, "fsub")
	case "*":
		return c.builder.CreateFMul(l, r, "fmul")
	default:
		panic("emberc: unknown float-lane operator " + op)
	}
}

// boxRuntimeInt masks a freshly computed integer result to the
// payload width and tags it, the runtime equivalent of constBoxedInt.
func (c *Compiler) boxRuntimeInt(i llvm.Value) llvm.Value {
	masked := c.builder.CreateAnd(i, c.i64(payloadMask), "masked")
	return c.builder.CreateOr(masked, c.i64(qnan|(tagInt<<tagShift)), "box_i")
}

func (c *Compiler) constBoxedIntVal(i llvm.Value) llvm.Value { return c.boxRuntimeInt(i) }

// genCmp promotes both operands to doubles and compares per IEEE
// ordering (spec §4.4 "Comparison"); the result is always a Bool.
func (c *Compiler) genCmp(cmp *ir.Cmp, l, r llvm.Value) llvm.Value {
	lF := c.builder.CreateSelect(c.isFloatInst(l), c.unboxFloat(l), c.intToDouble(c.payloadIntInst(l)), "l_f")
	rF := c.builder.CreateSelect(c.isFloatInst(r), c.unboxFloat(r), c.intToDouble(c.payloadIntInst(r)), "r_f")

	var pred llvm.FloatPredicate
	switch cmp.Op {
	case "==":
		pred = llvm.FloatOEQ
	case "!=":
		pred = llvm.FloatONE
	case "<":
		pred = llvm.FloatOLT
	case "<=":
		pred = llvm.FloatOLE
	case ">":
		pred = llvm.FloatOGT
	case ">=":
		pred = llvm.FloatOGE
	default:
		panic("emberc: unknown comparison operator " + cmp.Op)
	}
	bit := c.builder.CreateFCmp(pred, lF, rF, "cmp")
	ext := c.builder.CreateZExt(bit, c.Context.Int64Type(), "cmp_i64")
	return c.boxRuntimeBool(ext)
}

func (c *Compiler) boxRuntimeBool(i1AsI64 llvm.Value) llvm.Value {
	return c.builder.CreateOr(i1AsI64, c.i64(qnan|(tagBool<<tagShift)), "box_bool")
}

// genUnary implements -x/+x (lane of is_float(x)), ~x (integer lane),
// and `not x` (to_truth then negate), spec §4.4 "Unary".
func (c *Compiler) genUnary(u *ir.Unary, x llvm.Value) llvm.Value {
	switch u.Op {
	case "-":
		isFloat := c.isFloatInst(x)
		negF := c.builder.CreateFNeg(c.unboxFloat(x), "fneg")
		negI := c.builder.CreateSub(c.i64(0), c.payloadIntInst(x), "ineg")
		return c.builder.CreateSelect(isFloat, c.boxFloat(negF), c.boxRuntimeInt(negI), "neg")
	case "+":
		return x
	case "~":
		inv := c.builder.CreateNot(c.payloadIntInst(x), "bnot")
		return c.boxRuntimeInt(inv)
	case "not":
		truth := c.toTruthInst(x)
		negated := c.builder.CreateNot(truth, "not")
		asI64 := c.builder.CreateZExt(negated, c.Context.Int64Type(), "not_i64")
		return c.boxRuntimeBool(asI64)
	default:
		panic("emberc: unknown unary operator " + u.Op)
	}
}
