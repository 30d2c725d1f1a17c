package symtree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(records []SymbolRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.QualifiedName
	}
	return out
}

func TestNormalizeRows_TieBreakByName(t *testing.T) {
	got := NormalizeRows([]RawRow{
		{Symbols: "b", VMSize: 100.0, Instantiations: 0.0},
		{Symbols: "a", VMSize: 100.0, Instantiations: 0.0},
		{Symbols: "c", VMSize: 300.0},
	})
	assert.Equal(t, []string{"c", "a", "b"}, names(got))
}

func TestNormalizeRows_Validation(t *testing.T) {
	rows := []RawRow{
		{Symbols: nil, VMSize: 10.0},
		{Symbols: 42.0, VMSize: 10.0},
		{Symbols: "", VMSize: 10.0},
		{Symbols: "malformed", VMSize: "ten"},
		{Symbols: "absent"},
		{Symbols: "empty", VMSize: ""},
		{Symbols: "zero", VMSize: 0},
		{Symbols: "text-number", VMSize: " 64 "},
		{Symbols: "json-number", VMSize: json.Number("128")},
		{Symbols: "int64", VMSize: int64(32), Instantiations: int64(3)},
		{Symbols: "negative", VMSize: -5.0},
		{Symbols: "bad-count", VMSize: 1.0, Instantiations: "many"},
	}
	got := NormalizeRows(rows)

	byName := make(map[string]SymbolRecord, len(got))
	for _, r := range got {
		byName[r.QualifiedName] = r
	}
	assert.NotContains(t, byName, "malformed")
	assert.NotContains(t, byName, "")
	require.Len(t, got, 8)

	assert.Equal(t, int64(0), byName["absent"].SizeBytes)
	assert.Equal(t, int64(0), byName["empty"].SizeBytes)
	assert.Equal(t, int64(64), byName["text-number"].SizeBytes)
	assert.Equal(t, int64(128), byName["json-number"].SizeBytes)
	assert.Equal(t, int64(3), byName["int64"].InstantiationCount)
	assert.Equal(t, int64(0), byName["negative"].SizeBytes)
	assert.Equal(t, int64(0), byName["bad-count"].InstantiationCount)

	assert.Equal(t, "json-number", got[0].QualifiedName)
	assert.Equal(t, "text-number", got[1].QualifiedName)
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"foo__anon_1", "foo"},
		{"foo__struct_12", "foo"},
		{"foo__anon_3__struct_4", "foo"},
		{"foo__struct_1__anon_2", "foo"},
		{"foo__anon_x", "foo__anon_x"},
		{"foo__anon_1.bar", "foo__anon_1.bar"},
		{"__anon_7", ""},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalName(tt.in))
		})
	}
}

func TestCollapseInstantiations(t *testing.T) {
	normalized := NormalizeRows([]RawRow{
		{Symbols: "foo__anon_1", VMSize: 10.0, Instantiations: 0.0},
		{Symbols: "foo__anon_2", VMSize: 20.0, Instantiations: 0.0},
	})
	got := CollapseInstantiations(normalized)
	require.Len(t, got, 1)
	assert.Equal(t, SymbolRecord{QualifiedName: "foo", SizeBytes: 30, InstantiationCount: 2}, got[0])
}

func TestCollapseInstantiations_DropsEmptyAndKeepsOrder(t *testing.T) {
	got := CollapseInstantiations([]SymbolRecord{
		{QualifiedName: "big", SizeBytes: 50},
		{QualifiedName: "__anon_1", SizeBytes: 40},
		{QualifiedName: "small__struct_2", SizeBytes: 5, InstantiationCount: 2},
		{QualifiedName: "big__anon_9", SizeBytes: 1},
	})
	require.Len(t, got, 2)
	assert.Equal(t, SymbolRecord{QualifiedName: "big", SizeBytes: 51, InstantiationCount: 2}, got[0])
	assert.Equal(t, SymbolRecord{QualifiedName: "small", SizeBytes: 5, InstantiationCount: 3}, got[1])
}

func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"scope operator", "Namespace::Class::method", []string{"Namespace", "Class", "method"}},
		{"bracketed", "[vtable for X]", []string{"[vtable for X]"}},
		{"bracketed with dots", "[section .text]", []string{"[section .text]"}},
		{"keywords then dots", "const char* foo.bar", []string{"char* foo", "bar"}},
		{"stacked keywords", "unsigned long counter", []string{"counter"}},
		{"leading void pointer", "void* foo::bar", []string{"foo", "bar"}},
		{"leading char pointer", "char* name", []string{"name"}},
		{"pointer after qualifier", "volatile void* buf.ptr", []string{"void* buf", "ptr"}},
		{"dot beats scope", "std.mem::Allocator.alloc", []string{"std", "mem::Allocator", "alloc"}},
		{"plain", "  main  ", []string{"main"}},
		{"empty pieces dropped", "a..b.", []string{"a", "b"}},
		{"only dots", " . ", nil},
		{"empty", "", nil},
		{"keyword without space", "void", []string{"void"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Segment(tt.in))
		})
	}
}
