package symtree

import "strings"

// Leading type and storage keywords that are not part of a symbol's path.
var leadingKeywords = map[string]bool{
	"void": true, "auto": true, "int": true, "char": true, "long": true, "short": true,
	"unsigned": true, "float": true, "double": true, "bool": true,
	"const": true, "volatile": true, "restrict": true,
}

// Pointer keywords are only stripped as the very first token. After a qualifier such as
// "const" they belong to the declarator that follows.
var pointerKeywords = map[string]bool{
	"void*": true,
	"char*": true,
}

// Segment splits a canonical qualified name into hierarchy segments, coarsest first.
//
//	"Namespace::Class::method" -> [Namespace Class method]
//	"[vtable for X]"           -> [[vtable for X]]
//	"const char* foo.bar"      -> [char* foo bar]
//	"void* foo::bar"           -> [foo bar]
func Segment(name string) []string {
	text := stripLeadingKeywords(strings.TrimSpace(name))

	var pieces []string
	switch {
	case strings.HasPrefix(text, "["):
		pieces = []string{text}
	case strings.Contains(text, "."):
		pieces = strings.Split(text, ".")
	case strings.Contains(text, "::"):
		pieces = strings.Split(text, "::")
	default:
		pieces = []string{text}
	}

	segments := pieces[:0]
	for _, p := range pieces {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	if len(segments) == 0 {
		return nil
	}
	return segments
}

func stripLeadingKeywords(text string) string {
	for first := true; ; first = false {
		sp := strings.IndexByte(text, ' ')
		if sp < 0 {
			return text
		}
		tok := text[:sp]
		if !leadingKeywords[tok] && !(first && pointerKeywords[tok]) {
			return text
		}
		text = strings.TrimLeft(text[sp+1:], " ")
	}
}
