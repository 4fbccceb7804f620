package refscan

var keywords = set(
	"as", "async", "await", "break", "const", "continue", "crate", "dyn", "else", "enum",
	"extern", "false", "fn", "for", "if", "impl", "in", "let", "loop", "match", "mod",
	"move", "mut", "pub", "ref", "return", "self", "Self", "static", "struct", "super",
	"trait", "true", "type", "unsafe", "use", "where", "while", "_",
)

var primitives = set(
	"bool", "char", "str", "u8", "u16", "u32", "u64", "u128", "usize",
	"i8", "i16", "i32", "i64", "i128", "isize", "f32", "f64",
)

// Names in scope in every module without an import.
var prelude = set(
	"String", "Vec", "Option", "Some", "None", "Result", "Ok", "Err", "Box",
	"Clone", "Copy", "Send", "Sync", "Sized", "Unpin", "Drop", "Fn", "FnMut", "FnOnce",
	"Default", "Debug", "PartialEq", "Eq", "PartialOrd", "Ord", "Hash",
	"Iterator", "IntoIterator", "DoubleEndedIterator", "ExactSizeIterator", "Extend",
	"From", "Into", "TryFrom", "TryInto", "AsRef", "AsMut", "ToString", "ToOwned",
	"FromIterator",
	// derive and attribute names
	"derive", "cfg", "test", "allow", "deny", "warn", "inline", "must_use", "doc",
	// common macros
	"println", "print", "eprintln", "eprint", "format", "write", "writeln", "vec",
	"panic", "assert", "assert_eq", "assert_ne", "debug_assert", "debug_assert_eq",
	"unreachable", "unimplemented", "todo", "matches", "dbg",
)

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func IsKeyword(name string) bool {
	return keywords[name]
}

func IsPrimitive(name string) bool {
	return primitives[name]
}

// IsPrelude reports names that never need an import.
func IsPrelude(name string) bool {
	return prelude[name]
}

// IsBuiltin covers keywords, primitives and prelude names.
func IsBuiltin(name string) bool {
	return keywords[name] || primitives[name] || prelude[name]
}
