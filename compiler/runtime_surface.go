package compiler

import "tinygo.org/x/go-llvm"

// Runtime symbol names (spec §4.3): the minimal C ABI a generated
// module imports. The ember_* symbols (print value/space/newline and
// numeric input) are emberc's own helpers (runtime/runtime.c); the
// rest are straight libc.
const (
	symPrintValue   = "ember_print_value"
	symPrintSpace   = "ember_print_space"
	symPrintNewline = "ember_print_newline"
	symInputF64     = "ember_input_f64"
	symMalloc       = "malloc"
	symFree         = "free"
	symMemcpy       = "memcpy"
	symStrlen       = "strlen"
)

// runtimeSurface caches the declared external functions so every call
// site reuses the same llvm.Value instead of re-declaring (spec §4.3:
// "declared once at module creation and cached").
type runtimeSurface struct {
	printValue   llvm.Value
	printValTy   llvm.Type
	printSpace   llvm.Value
	printSpaceTy llvm.Type
	printNewline llvm.Value
	printNlTy    llvm.Type
	inputF64     llvm.Value
	inputTy      llvm.Type
	malloc       llvm.Value
	mallocTy     llvm.Type
	free         llvm.Value
	freeTy       llvm.Type
	memcpy       llvm.Value
	memcpyTy     llvm.Type
	strlen       llvm.Value
	strlenTy     llvm.Type
}

func (c *Compiler) declareRuntimeSurface() *runtimeSurface {
	i64 := c.Context.Int64Type()
	f64 := c.Context.DoubleType()
	charPtr := c.charPtrType()
	voidPtr := c.charPtrType()
	void := c.Context.VoidType()

	rt := &runtimeSurface{}

	// void ember_print_value(int64_t boxed)
	rt.printValTy = llvm.FunctionType(void, []llvm.Type{i64}, false)
	rt.printValue = llvm.AddFunction(c.Module, symPrintValue, rt.printValTy)

	// void ember_print_space(void)
	rt.printSpaceTy = llvm.FunctionType(void, []llvm.Type{}, false)
	rt.printSpace = llvm.AddFunction(c.Module, symPrintSpace, rt.printSpaceTy)

	// void ember_print_newline(void)
	rt.printNlTy = llvm.FunctionType(void, []llvm.Type{}, false)
	rt.printNewline = llvm.AddFunction(c.Module, symPrintNewline, rt.printNlTy)

	// double ember_input_f64(void)
	rt.inputTy = llvm.FunctionType(f64, []llvm.Type{}, false)
	rt.inputF64 = llvm.AddFunction(c.Module, symInputF64, rt.inputTy)

	// void *malloc(int64_t)
	rt.mallocTy = llvm.FunctionType(voidPtr, []llvm.Type{i64}, false)
	rt.malloc = llvm.AddFunction(c.Module, symMalloc, rt.mallocTy)

	// void free(void *)
	rt.freeTy = llvm.FunctionType(void, []llvm.Type{voidPtr}, false)
	rt.free = llvm.AddFunction(c.Module, symFree, rt.freeTy)

	// void *memcpy(void *, const void *, int64_t)
	rt.memcpyTy = llvm.FunctionType(voidPtr, []llvm.Type{voidPtr, voidPtr, i64}, false)
	rt.memcpy = llvm.AddFunction(c.Module, symMemcpy, rt.memcpyTy)

	// int64_t strlen(const char *) -- declared as returning i64 directly,
	// with no cast at the call site; libc's strlen returns size_t.
	rt.strlenTy = llvm.FunctionType(i64, []llvm.Type{charPtr}, false)
	rt.strlen = llvm.AddFunction(c.Module, symStrlen, rt.strlenTy)

	return rt
}

func (c *Compiler) callMalloc(size llvm.Value) llvm.Value {
	return c.builder.CreateCall(c.rt.mallocTy, c.rt.malloc, []llvm.Value{size}, "mem")
}

func (c *Compiler) callFree(ptr llvm.Value) {
	c.builder.CreateCall(c.rt.freeTy, c.rt.free, []llvm.Value{ptr}, "")
}

func (c *Compiler) callMemcpy(dst, src, size llvm.Value) {
	c.builder.CreateCall(c.rt.memcpyTy, c.rt.memcpy, []llvm.Value{dst, src, size}, "")
}

func (c *Compiler) callStrlen(ptr llvm.Value) llvm.Value {
	return c.builder.CreateCall(c.rt.strlenTy, c.rt.strlen, []llvm.Value{ptr}, "len")
}

func (c *Compiler) callPrintValue(boxed llvm.Value) {
	c.builder.CreateCall(c.rt.printValTy, c.rt.printValue, []llvm.Value{boxed}, "")
}

func (c *Compiler) callPrintSpace() {
	c.builder.CreateCall(c.rt.printSpaceTy, c.rt.printSpace, []llvm.Value{}, "")
}

func (c *Compiler) callPrintNewline() {
	c.builder.CreateCall(c.rt.printNlTy, c.rt.printNewline, []llvm.Value{}, "")
}

func (c *Compiler) callInputF64() llvm.Value {
	return c.builder.CreateCall(c.rt.inputTy, c.rt.inputF64, []llvm.Value{}, "input")
}
