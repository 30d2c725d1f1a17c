package symtree

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// NormalizeRows validates raw rows and orders them by size (descending), then by name.
//
// A row is dropped when its symbol is missing, empty or not a string, or when it carries a
// size that is present but not numeric. Rows with an absent or zero size are kept as empty
// records.
func NormalizeRows(rows []RawRow) []SymbolRecord {
	out := make([]SymbolRecord, 0, len(rows))
	for _, row := range rows {
		name, ok := row.Symbols.(string)
		if !ok || name == "" {
			continue
		}
		size, ok := numericValue(row.VMSize)
		if !ok {
			continue
		}
		count, ok := numericValue(row.Instantiations)
		if !ok {
			count = 0
		}
		out = append(out, SymbolRecord{
			QualifiedName:      name,
			SizeBytes:          size,
			InstantiationCount: count,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SizeBytes != out[j].SizeBytes {
			return out[i].SizeBytes > out[j].SizeBytes
		}
		return out[i].QualifiedName < out[j].QualifiedName
	})
	return out
}

// numericValue coerces a decoded cell to a non-negative integer.
// Absent and empty values read as 0; anything that is not a finite number reports false.
func numericValue(v any) (int64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, true
	case int:
		return clampInt(int64(x)), true
	case int32:
		return clampInt(int64(x)), true
	case int64:
		return clampInt(x), true
	case uint:
		return clampUint(uint64(x)), true
	case uint32:
		return int64(x), true
	case uint64:
		return clampUint(x), true
	case float32:
		f = float64(x)
	case float64:
		f = x
	case bool:
		// false is zero-like; true is not a size
		return 0, !x
	case json.Number:
		parsed, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f <= 0 {
		return 0, true
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64, true
	}
	return int64(f), true
}

func clampInt(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func clampUint(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
