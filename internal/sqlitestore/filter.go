package sqlitestore

import (
	"sort"
	"strings"
)

// filterDocs returns the subset of docs matching query, a lowered filter
// document as built by internal/dsl.BuildQuery / the eq/ne/gt/… natives
// (field -> scalar, field -> {$op: value}, or {$and|$or: [...]}).
func filterDocs(docs []map[string]any, query map[string]any) []map[string]any {
	if len(query) == 0 {
		return docs
	}
	var out []map[string]any
	for _, doc := range docs {
		if matches(doc, query) {
			out = append(out, doc)
		}
	}
	return out
}

func matches(doc map[string]any, query map[string]any) bool {
	for field, cond := range query {
		switch field {
		case "$and":
			for _, sub := range asConds(cond) {
				if !matches(doc, sub) {
					return false
				}
			}
		case "$or":
			ok := false
			for _, sub := range asConds(cond) {
				if matches(doc, sub) {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		default:
			if !matchesField(getPath(doc, field), cond) {
				return false
			}
		}
	}
	return true
}

func asConds(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func matchesField(actual any, cond any) bool {
	spec, ok := cond.(map[string]any)
	if !ok {
		return equalPlain(actual, cond)
	}
	for op, val := range spec {
		_, actualNum := asFloat(actual)
		_, valNum := asFloat(val)
		if op != "$eq" && op != "$ne" && (!actualNum || !valNum) {
			return false
		}
		switch op {
		case "$eq":
			if !equalPlain(actual, val) {
				return false
			}
		case "$ne":
			if equalPlain(actual, val) {
				return false
			}
		case "$gt":
			if compareNumeric(actual, val) <= 0 {
				return false
			}
		case "$gte":
			if compareNumeric(actual, val) < 0 {
				return false
			}
		case "$lt":
			if compareNumeric(actual, val) >= 0 {
				return false
			}
		case "$lte":
			if compareNumeric(actual, val) > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// getPath reads a dotted field path ("a.b.c") out of nested maps, as
// produced by decoding a JSON document.
func getPath(doc map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var cur any = doc
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

func equalPlain(a, b any) bool {
	an, aok := asFloat(a)
	bn, bok := asFloat(b)
	if aok && bok {
		return an == bn
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		return ab == bb
	}
	return a == nil && b == nil
}

// compareNumeric returns -1/0/1 for a<b/a==b/a>b; non-numeric operands
// compare as equal (0). matchesField rejects a non-numeric operand before
// calling it, so a comparator against a non-number field never matches
// $gt/$gte/$lt/$lte.
func compareNumeric(a, b any) int {
	an, aok := asFloat(a)
	bn, bok := asFloat(b)
	if !aok || !bok {
		return 0
	}
	switch {
	case an < bn:
		return -1
	case an > bn:
		return 1
	default:
		return 0
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func sortDocs(docs []map[string]any, spec map[string]any) []map[string]any {
	fields := make([]string, 0, len(spec))
	for f := range spec {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	out := append([]map[string]any(nil), docs...)
	sort.SliceStable(out, func(i, j int) bool {
		for _, f := range fields {
			dir, _ := asFloat(spec[f])
			c := compareAny(getPath(out[i], f), getPath(out[j], f))
			if c == 0 {
				continue
			}
			if dir < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}

func compareAny(a, b any) int {
	if an, aok := asFloat(a); aok {
		if bn, bok := asFloat(b); bok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs)
	}
	return 0
}

func projectDocs(docs []map[string]any, proj map[string]any) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		out[i] = projectDoc(doc, proj)
	}
	return out
}

// projectDoc applies an inclusion or exclusion projection. `_id` is always
// kept unless explicitly excluded with `{_id: 0}`.
func projectDoc(doc map[string]any, proj map[string]any) map[string]any {
	inclusion := false
	for k, v := range proj {
		if k == "_id" {
			continue
		}
		if truthyNum(v) {
			inclusion = true
		}
	}
	result := map[string]any{}
	if inclusion {
		for k, v := range proj {
			if k == "_id" || !truthyNum(v) {
				continue
			}
			if val, ok := doc[k]; ok {
				result[k] = val
			}
		}
		if idv, ok := proj["_id"]; !ok || truthyNum(idv) {
			result["_id"] = doc["_id"]
		}
		return result
	}
	for k, v := range doc {
		result[k] = v
	}
	for k, v := range proj {
		if !truthyNum(v) {
			delete(result, k)
		}
	}
	return result
}

func truthyNum(v any) bool {
	if n, ok := asFloat(v); ok {
		return n != 0
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
