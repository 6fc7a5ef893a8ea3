package jsonschema

// Default compiler instance shared by package-level helpers that need one
// when the caller hasn't wired up their own (see GetCompiler in schema.go,
// which ref.go's $ref/$dynamicRef resolution falls back to).
var defaultCompiler = NewCompiler()

// SetDefaultCompiler replaces the package default compiler.
func SetDefaultCompiler(c *Compiler) {
	defaultCompiler = c
}

// GetDefaultCompiler returns the current package default compiler.
func GetDefaultCompiler() *Compiler {
	return defaultCompiler
}
