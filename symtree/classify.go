package symtree

import (
	"regexp"
	"strings"
)

// classifierRule is one rung of the classification ladder.
type classifierRule struct {
	category Category
	name     string
	match    func(name string) bool
}

var (
	bracketForm      = regexp.MustCompile(`^\[[^\]]*\]`)
	dynamicSymSuffix = regexp.MustCompile(`@{1,2}[A-Za-z_][A-Za-z0-9_.]*$`)
	reservedPrefix   = regexp.MustCompile(`^_[A-Z]`)
	rustHash         = regexp.MustCompile(`(?:^|::|[0-9])h[0-9a-f]{16}(?:[^0-9a-f]|$)`)
	rustEscape       = regexp.MustCompile(`\$(?:LT|GT|u20|u27|u5b|u5d|u7b|u7d|C|RF|BP|SP)\$`)
	templateArgs     = regexp.MustCompile(`<[^<>]+>`)
	namespaceWord    = regexp.MustCompile(`\bnamespace\b`)
	capitalizedT     = regexp.MustCompile(`\b[A-Z][A-Za-z0-9]*_t\b`)
)

var runtimeMarkers = []string{
	"frame_dummy",
	"register_tm_clones",
	"_dl_relocate_static_pie",
	"completed.",
	"crtstuff",
	".plt",
	".got",
}

var rustLibFragments = []string{
	"rustc_demangle",
	"hashbrown",
	"miniz_oxide",
	"addr2line",
	"gimli",
	"memchr::",
	"serde",
	"tokio",
	"core::panicking",
	"core::fmt",
	"alloc::raw_vec",
	"std::panicking",
	"std::rt::",
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// classifierRules is evaluated strictly in order; the first match wins.
var classifierRules = []classifierRule{
	{SysV, "bracketed synthetic symbol", bracketForm.MatchString},
	{SysV, "double underscore", func(s string) bool { return strings.Contains(s, "__") }},
	{SysV, "dynamic symbol version", dynamicSymSuffix.MatchString},
	{SysV, "reserved identifier prefix", reservedPrefix.MatchString},
	{SysV, "runtime marker", func(s string) bool { return containsAny(s, runtimeMarkers) }},

	{Rust, "legacy hash", rustHash.MatchString},
	{Rust, "crate module path", func(s string) bool { return strings.Contains(s, "_rs::") }},
	{Rust, "rust_ prefix", func(s string) bool { return strings.HasPrefix(s, "rust_") }},
	{Rust, "mangling escape", rustEscape.MatchString},
	{Rust, "rust library", func(s string) bool { return containsAny(s, rustLibFragments) }},

	{CPP, "scope operator", func(s string) bool { return strings.Contains(s, "::") }},
	{CPP, "template arguments", templateArgs.MatchString},
	{CPP, "namespace keyword", namespaceWord.MatchString},
	{CPP, "_t type name", capitalizedT.MatchString},

	{Zig, "dotted path", func(s string) bool { return strings.Contains(s, ".") }},
}

// Classify guesses the toolchain that emitted a symbol. The empty name is Other.
func Classify(name string) Category {
	c, _ := ClassifyRule(name)
	return c
}

// ClassifyValue classifies an arbitrary decoded value; anything that is not a string is Other.
func ClassifyValue(v any) Category {
	switch x := v.(type) {
	case string:
		return Classify(x)
	case *string:
		if x == nil {
			return Other
		}
		return Classify(*x)
	default:
		return Other
	}
}

// ClassifyRule is like Classify but also names the rule that decided, or "" for the default.
func ClassifyRule(name string) (Category, string) {
	if name == "" {
		return Other, ""
	}
	for _, r := range classifierRules {
		if r.match(name) {
			return r.category, r.name
		}
	}
	return Other, ""
}
