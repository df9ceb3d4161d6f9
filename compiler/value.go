package compiler

import "tinygo.org/x/go-llvm"

// The bit layout mirrors package box exactly; the compiler emits
// these as LLVM constant-folded instructions instead of evaluating
// them in Go, since most operands are not known until runtime.
const (
	qnan        uint64 = 0x7FF8_0000_0000_0000
	expMask     uint64 = 0x7FF8_0000_0000_0000
	tagMask     uint64 = 0x0007_0000_0000_0000
	payloadMask uint64 = 0x0000_FFFF_FFFF_FFFF
	tagShift    uint64 = 48

	tagInt    uint64 = 0
	tagBool   uint64 = 1
	tagString uint64 = 2
	tagList   uint64 = 3
)

// External tag vocabulary (spec §3.1): INT=0, FLOAT=1, BOOL=2,
// STRING=3, LIST=4. Used by the print dispatcher and Len's runtime
// switch.
const (
	extInt    int64 = 0
	extFloat  int64 = 1
	extBool   int64 = 2
	extString int64 = 3
	extList   int64 = 4
)

func (c *Compiler) i64(v uint64) llvm.Value {
	return llvm.ConstInt(c.Context.Int64Type(), v, false)
}

func (c *Compiler) constBoxedInt(v int64) llvm.Value {
	return c.i64(qnan | (tagInt << tagShift) | (uint64(v) & payloadMask))
}

func (c *Compiler) constBoxedBool(v bool) llvm.Value {
	var p uint64
	if v {
		p = 1
	}
	return c.i64(qnan | (tagBool << tagShift) | p)
}

// boxFloat reinterprets a double's bit pattern as i64; a float is
// never tag-boxed (spec §3.1's "Double" case).
func (c *Compiler) boxFloat(d llvm.Value) llvm.Value {
	return c.builder.CreateBitCast(d, c.Context.Int64Type(), "box_f")
}

func (c *Compiler) unboxFloat(w llvm.Value) llvm.Value {
	return c.builder.CreateBitCast(w, c.Context.DoubleType(), "f64")
}

// boxPtr tags a native pointer, truncated-and-masked to the low 48
// bits, with tagString or tagList.
func (c *Compiler) boxPtr(ptr llvm.Value, tag uint64) llvm.Value {
	asInt := c.builder.CreatePtrToInt(ptr, c.Context.Int64Type(), "ptr_int")
	masked := c.builder.CreateAnd(asInt, c.i64(payloadMask), "ptr_payload")
	tagged := c.builder.CreateOr(masked, c.i64(qnan|(tag<<tagShift)), "box_ptr")
	return tagged
}

func (c *Compiler) boxStringPtr(ptr llvm.Value) llvm.Value { return c.boxPtr(ptr, tagString) }
func (c *Compiler) boxListPtr(ptr llvm.Value) llvm.Value   { return c.boxPtr(ptr, tagList) }

func (c *Compiler) charPtrType() llvm.Type {
	return llvm.PointerType(c.Context.Int8Type(), 0)
}

// unboxPtr extracts the low 48 bits of w and casts to elemTy*.
func (c *Compiler) unboxPtr(w llvm.Value, elemTy llvm.Type) llvm.Value {
	payload := c.builder.CreateAnd(w, c.i64(payloadMask), "payload")
	return c.builder.CreateIntToPtr(payload, llvm.PointerType(elemTy, 0), "ptr")
}

// isFloatInst emits the pure bit test of spec §4.1 `is_float`: the
// word is a float unless it matches the boxed exponent pattern.
func (c *Compiler) isFloatInst(w llvm.Value) llvm.Value {
	masked := c.builder.CreateAnd(w, c.i64(expMask), "exp_bits")
	return c.builder.CreateICmp(llvm.IntNE, masked, c.i64(qnan), "is_float")
}

// boxedTagInst extracts the 3-bit tag field (only meaningful when
// isFloatInst is false).
func (c *Compiler) boxedTagInst(w llvm.Value) llvm.Value {
	masked := c.builder.CreateAnd(w, c.i64(tagMask), "tag_bits")
	return c.builder.CreateLShr(masked, c.i64(tagShift), "tag")
}

// payloadIntInst sign-extends the low 48 bits to i64 (spec §4.1
// payload_int).
func (c *Compiler) payloadIntInst(w llvm.Value) llvm.Value {
	shiftAmt := c.i64(64 - 48)
	shiftedLeft := c.builder.CreateShl(w, shiftAmt, "shl48")
	return c.builder.CreateAShr(shiftedLeft, shiftAmt, "sext48")
}

// intToDouble converts a payload's integer reading to double,
// used when promoting an INT operand into the float lane.
func (c *Compiler) intToDouble(i llvm.Value) llvm.Value {
	return c.builder.CreateSIToFP(i, c.Context.DoubleType(), "i2f")
}

// extTagInst computes the total external tag (spec §3.1) at runtime:
// FLOAT if isFloat, else the boxed tag's external counterpart
// (INT=0->0, BOOL=1->2, STRING=2->3, LIST=3->4, i.e. tag+1 for
// non-int, 0 for int).
func (c *Compiler) extTagInst(w llvm.Value) llvm.Value {
	isFloat := c.isFloatInst(w)
	tag := c.boxedTagInst(w)
	// boxed tag 0(int)->ext 0, 1(bool)->2, 2(string)->3, 3(list)->4
	isIntTag := c.builder.CreateICmp(llvm.IntEQ, tag, c.i64(tagInt), "is_int_tag")
	plusOne := c.builder.CreateAdd(tag, c.i64(1), "tag_plus_one")
	boxedExt := c.builder.CreateSelect(isIntTag, tag, plusOne, "boxed_ext")
	return c.builder.CreateSelect(isFloat, c.i64(uint64(extFloat)), boxedExt, "ext_tag")
}

// toTruthInst implements spec §4.1 `to_truth`, used only for branch
// conditions: non-zero int/bool, non-zero (and non -0.0) double, or
// non-null pointer.
func (c *Compiler) toTruthInst(w llvm.Value) llvm.Value {
	isFloat := c.isFloatInst(w)
	d := c.unboxFloat(w)
	floatTruth := c.builder.CreateFCmp(llvm.FloatUNE, d, llvm.ConstFloat(c.Context.DoubleType(), 0), "float_truth")

	// Int, bool, string-pointer, and list-pointer all reduce to the
	// same test: the payload bits are the value (int), the flag
	// (bool), or the address (pointer), so "payload != 0" is correct
	// for every non-float boxed tag at once.
	payload := c.builder.CreateAnd(w, c.i64(payloadMask), "payload")
	nonZeroPayload := c.builder.CreateICmp(llvm.IntNE, payload, c.i64(0), "nonzero_payload")

	return c.builder.CreateSelect(isFloat, floatTruth, nonZeroPayload, "to_truth")
}
