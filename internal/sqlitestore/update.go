package sqlitestore

import "strings"

// applyUpdate mutates doc in place per update, a lowered update document
// (a `set <update>` clause evaluates to a plain object). Keys starting
// with `$` are treated as Mongo-style update operators
// ($set/$unset/$inc); a document with no operator keys is a full field
// merge, the common shorthand for "set these fields".
func applyUpdate(doc map[string]any, update map[string]any) {
	hasOperator := false
	for k := range update {
		if strings.HasPrefix(k, "$") {
			hasOperator = true
			break
		}
	}
	if !hasOperator {
		for k, v := range update {
			doc[k] = v
		}
		return
	}
	for op, payload := range update {
		fields, ok := payload.(map[string]any)
		if !ok {
			continue
		}
		switch op {
		case "$set":
			for k, v := range fields {
				setPath(doc, k, v)
			}
		case "$unset":
			for k := range fields {
				unsetPath(doc, k)
			}
		case "$inc":
			for k, v := range fields {
				delta, ok := asFloat(v)
				if !ok {
					continue
				}
				current, _ := asFloat(getPath(doc, k))
				setPath(doc, k, current+delta)
			}
		}
	}
}

func setPath(doc map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := doc
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = value
			return
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
}

func unsetPath(doc map[string]any, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for i, p := range parts {
		if i == len(parts)-1 {
			delete(cur, p)
			return
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
}
