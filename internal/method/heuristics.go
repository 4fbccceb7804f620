package method

import (
	"strings"
	"unicode"
)

var constructorNames = map[string]bool{
	"new": true, "create": true, "build": true, "builder": true,
	"empty": true, "open": true, "init": true,
}

var constructorPrefixes = []string{"new_", "with_", "from_", "try_new", "try_from_", "create_", "build_"}

func isConstructor(name string) bool {
	if constructorNames[name] {
		return true
	}
	for _, p := range constructorPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// isAccessor matches get/set pairs: get, set, get_x, set_x, a bare x when
// set_x exists, and x_mut when x exists.
func isAccessor(name string, names map[string]bool) bool {
	switch {
	case name == "get" || name == "set":
		return true
	case strings.HasPrefix(name, "get_") || strings.HasPrefix(name, "set_"):
		return true
	case names["set_"+name]:
		return true
	case strings.HasSuffix(name, "_mut") && names[strings.TrimSuffix(name, "_mut")]:
		return true
	}
	return false
}

// traitGroupName turns `fmt::Display` or `From<String>` into `display` or
// `from_string`.
func traitGroupName(trait string) string {
	t := trait
	if i := strings.LastIndex(t, "::"); i >= 0 && !strings.Contains(t[:i], "<") {
		t = t[i+2:]
	}
	var b strings.Builder
	prevUnderscore := true
	for i, r := range t {
		switch {
		case unicode.IsUpper(r):
			if !prevUnderscore && i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevUnderscore = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

func componentName(member string) string {
	name := strings.Trim(member, "_")
	if name == "" {
		name = "misc"
	}
	return name + "_group"
}
