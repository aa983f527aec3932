package sqlitestore

import "fmt"

// runPipeline executes a lowered aggregation pipeline (a list of
// single-key `{$stage: payload}` documents, as built by internal/dsl's
// Stage/CountStage/LookupStage/UnwindStage helpers) over docs. sibling
// resolves another collection by name, for `$lookup`.
func runPipeline(docs []map[string]any, pipeline []any, sibling func(string) (*Collection, error)) ([]map[string]any, error) {
	for _, stageAny := range pipeline {
		stage, ok := stageAny.(map[string]any)
		if !ok || len(stage) != 1 {
			return nil, fmt.Errorf("invalid pipeline stage: %v", stageAny)
		}
		for name, payload := range stage {
			var err error
			docs, err = runStage(docs, name, payload, sibling)
			if err != nil {
				return nil, err
			}
		}
	}
	return docs, nil
}

func runStage(docs []map[string]any, name string, payload any, sibling func(string) (*Collection, error)) ([]map[string]any, error) {
	switch name {
	case "$match":
		filter, _ := payload.(map[string]any)
		return filterDocs(docs, filter), nil
	case "$project":
		proj, _ := payload.(map[string]any)
		return projectDocs(docs, proj), nil
	case "$sort":
		spec, _ := payload.(map[string]any)
		return sortDocs(docs, spec), nil
	case "$limit":
		n, _ := asInt(payload)
		if n >= 0 && n < len(docs) {
			docs = docs[:n]
		}
		return docs, nil
	case "$skip":
		n, _ := asInt(payload)
		if n > 0 {
			if n >= len(docs) {
				return nil, nil
			}
			docs = docs[n:]
		}
		return docs, nil
	case "$count":
		field, _ := payload.(string)
		return []map[string]any{{field: len(docs)}}, nil
	case "$addFields":
		fields, _ := payload.(map[string]any)
		return addFields(docs, fields), nil
	case "$group":
		spec, _ := payload.(map[string]any)
		return groupDocs(docs, spec)
	case "$unwind":
		path, _ := payload.(string)
		return unwindDocs(docs, path), nil
	case "$lookup":
		spec, _ := payload.(map[string]any)
		return lookupDocs(docs, spec, sibling)
	default:
		return nil, fmt.Errorf("unsupported pipeline stage %q", name)
	}
}

// lookupDocs implements `$lookup`: for each input doc, finds every doc in
// the `from` collection whose `foreignField` equals this doc's
// `localField`, and attaches the matches as an array under `as`.
func lookupDocs(docs []map[string]any, spec map[string]any, sibling func(string) (*Collection, error)) ([]map[string]any, error) {
	from, _ := spec["from"].(string)
	localField, _ := spec["localField"].(string)
	foreignField, _ := spec["foreignField"].(string)
	as, _ := spec["as"].(string)
	if from == "" || sibling == nil {
		return nil, fmt.Errorf("$lookup requires a valid `from` collection")
	}
	foreign, err := sibling(from)
	if err != nil {
		return nil, fmt.Errorf("$lookup: resolving collection %q: %w", from, err)
	}
	foreignDocs, err := foreign.scanAll()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		clone := map[string]any{}
		for k, v := range doc {
			clone[k] = v
		}
		localVal := getPath(doc, localField)
		var matches []any
		for _, fdoc := range foreignDocs {
			if equalPlain(getPath(fdoc, foreignField), localVal) {
				matches = append(matches, fdoc)
			}
		}
		if matches == nil {
			matches = []any{}
		}
		clone[as] = matches
		out[i] = clone
	}
	return out, nil
}

func addFields(docs []map[string]any, fields map[string]any) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		clone := map[string]any{}
		for k, v := range doc {
			clone[k] = v
		}
		for k, v := range fields {
			clone[k] = v
		}
		out[i] = clone
	}
	return out
}

func unwindDocs(docs []map[string]any, path string) []map[string]any {
	field := path
	if len(field) > 0 && field[0] == '$' {
		field = field[1:]
	}
	var out []map[string]any
	for _, doc := range docs {
		arr, ok := getPath(doc, field).([]any)
		if !ok {
			continue
		}
		for _, el := range arr {
			clone := map[string]any{}
			for k, v := range doc {
				clone[k] = v
			}
			clone[field] = el
			out = append(out, clone)
		}
	}
	return out
}

// groupDocs implements `$group` with an `_id` grouping key expression
// (a field reference "$field" or a literal) and accumulator fields of the
// shape `{ $sum: 1 }`, `{ $sum: "$field" }`, `{ $avg: "$field" }`,
// `{ $min: "$field" }`, `{ $max: "$field" }`, `{ $push: "$field" }` — the
// common accumulator set, covering the `group(payload)` stage helper
// without requiring a full aggregation expression language.
func groupDocs(docs []map[string]any, spec map[string]any) ([]map[string]any, error) {
	idExpr, hasID := spec["_id"]
	if !hasID {
		return nil, fmt.Errorf("$group requires an _id expression")
	}
	type bucket struct {
		key map[string]any
		acc map[string]any
	}
	order := []string{}
	buckets := map[string]*bucket{}
	for _, doc := range docs {
		key := resolveGroupExpr(doc, idExpr)
		keyStr := fmt.Sprintf("%v", key)
		b, ok := buckets[keyStr]
		if !ok {
			b = &bucket{key: map[string]any{"_id": key}, acc: map[string]any{}}
			buckets[keyStr] = b
			order = append(order, keyStr)
		}
		for field, accSpec := range spec {
			if field == "_id" {
				continue
			}
			accDoc, ok := accSpec.(map[string]any)
			if !ok {
				continue
			}
			applyAccumulator(b.acc, field, accDoc, doc)
		}
	}
	out := make([]map[string]any, 0, len(order))
	for _, k := range order {
		b := buckets[k]
		row := map[string]any{"_id": b.key["_id"]}
		for f, v := range b.acc {
			row[f] = finalizeAccumulator(v)
		}
		out = append(out, row)
	}
	return out, nil
}

func resolveGroupExpr(doc map[string]any, expr any) any {
	if s, ok := expr.(string); ok && len(s) > 0 && s[0] == '$' {
		return getPath(doc, s[1:])
	}
	return expr
}

type accState struct {
	kind  string
	sum   float64
	count int
	min   any
	max   any
	items []any
}

func applyAccumulator(acc map[string]any, field string, accSpec map[string]any, doc map[string]any) {
	for op, exprAny := range accSpec {
		raw, ok := acc[field].(*accState)
		if !ok {
			raw = &accState{kind: op}
			acc[field] = raw
		}
		var val any
		if s, ok := exprAny.(string); ok && len(s) > 0 && s[0] == '$' {
			val = getPath(doc, s[1:])
		} else {
			val = exprAny
		}
		switch op {
		case "$sum":
			n, _ := asFloat(val)
			raw.sum += n
		case "$avg":
			n, _ := asFloat(val)
			raw.sum += n
			raw.count++
		case "$min":
			if raw.min == nil || compareAny(val, raw.min) < 0 {
				raw.min = val
			}
		case "$max":
			if raw.max == nil || compareAny(val, raw.max) > 0 {
				raw.max = val
			}
		case "$push":
			raw.items = append(raw.items, val)
		}
	}
}

func finalizeAccumulator(v any) any {
	state, ok := v.(*accState)
	if !ok {
		return v
	}
	switch state.kind {
	case "$sum":
		return state.sum
	case "$avg":
		if state.count == 0 {
			return 0.0
		}
		return state.sum / float64(state.count)
	case "$min":
		return state.min
	case "$max":
		return state.max
	case "$push":
		return state.items
	default:
		return nil
	}
}
