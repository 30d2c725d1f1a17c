package symtree

import "regexp"

// Compiler-generated disambiguation suffixes, tried in this order.
var instantiationSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`__anon_\d+__struct_\d+$`), // anonymous struct
	regexp.MustCompile(`__struct_\d+$`),
	regexp.MustCompile(`__anon_\d+$`),
}

// CanonicalName strips trailing instantiation suffixes until none match.
func CanonicalName(name string) string {
	for {
		stripped := false
		for _, re := range instantiationSuffixes {
			if loc := re.FindStringIndex(name); loc != nil {
				name = name[:loc[0]]
				stripped = true
				break
			}
		}
		if !stripped {
			return name
		}
	}
}

// CollapseInstantiations merges records whose names differ only by instantiation suffixes.
//
// Each merged record carries the canonical name, the summed size, and a counter of
// Σ(instantiations+1) over the rows it represents. Output keeps first-seen order, so a
// normalized (size-sorted) input yields records ordered by their largest member.
func CollapseInstantiations(records []SymbolRecord) []SymbolRecord {
	index := make(map[string]int, len(records))
	out := make([]SymbolRecord, 0, len(records))
	for _, rec := range records {
		base := CanonicalName(rec.QualifiedName)
		if base == "" {
			continue
		}
		if i, ok := index[base]; ok {
			out[i].SizeBytes += rec.SizeBytes
			out[i].InstantiationCount += rec.InstantiationCount + 1
			continue
		}
		index[base] = len(out)
		out = append(out, SymbolRecord{
			QualifiedName:      base,
			SizeBytes:          rec.SizeBytes,
			InstantiationCount: rec.InstantiationCount + 1,
		})
	}
	return out
}
