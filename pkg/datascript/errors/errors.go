// Package errors provides structured error types for the Datascript language.
//
// It defines ScriptError, a unified error type used for both parse-time and
// evaluation-time failures, with enough metadata (class, code, position,
// hints) to render a useful diagnostic or to serialize the failure for a
// caller embedding the interpreter.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassParse     ErrorClass = "parse"     // lexer/parser failures
	ClassScope     ErrorClass = "scope"     // redeclare, const reassignment, unknown name
	ClassType      ErrorClass = "type"      // operator/native/schema type mismatches
	ClassArity     ErrorClass = "arity"     // wrong argument count
	ClassUndefined ErrorClass = "undefined" // unknown identifier, export, or method
	ClassIndex     ErrorClass = "index"     // array index out of bounds
	ClassOperator  ErrorClass = "operator"  // unknown operator, divide by zero
	ClassControl   ErrorClass = "control"   // return/break/continue misuse
	ClassImport    ErrorClass = "import"    // module resolution/cycle
	ClassSchema    ErrorClass = "schema"    // class/instance construction
	ClassDSL       ErrorClass = "dsl"       // query/update/pipeline misuse
	ClassThrown    ErrorClass = "thrown"    // a user `throw` value, not a host fault
)

// ScriptError represents any error surfaced while lexing, parsing, or
// evaluating a Datascript program.
type ScriptError struct {
	Class   ErrorClass     `json:"class"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Line    int            `json:"line"`
	Column  int            `json:"column"`
	File    string         `json:"file,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

func (e *ScriptError) Error() string { return e.String() }

// String returns a single-line diagnostic suitable for the error channel.
func (e *ScriptError) String() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}
	sb.WriteString(e.Message)
	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}
	return sb.String()
}

// ToJSON serializes the error, for callers that want structured diagnostics.
func (e *ScriptError) ToJSON() ([]byte, error) { return json.Marshal(e) }

// WithFile returns a copy of the error with the file path set.
func (e *ScriptError) WithFile(file string) *ScriptError {
	cp := *e
	if cp.File == "" {
		cp.File = file
	}
	return &cp
}

// WithPosition returns a copy of the error with a source position set.
func (e *ScriptError) WithPosition(line, column int) *ScriptError {
	cp := *e
	cp.Line = line
	cp.Column = column
	return &cp
}

func (e *ScriptError) IsParseError() bool { return e.Class == ClassParse }

// ErrorDef defines a catalog entry: a class plus message/hint templates.
type ErrorDef struct {
	Class    ErrorClass
	Template string
	Hints    []string
}

// Catalog maps stable error codes to their rendering rules. Callers that
// need to localize or filter diagnostics can key off Code rather than
// parsing Message.
var Catalog = map[string]ErrorDef{
	"PARSE-0001": {Class: ClassParse, Template: "expected {{.Expected}}, got '{{.Got}}'"},
	"PARSE-0002": {Class: ClassParse, Template: "unexpected token '{{.Token}}'"},
	"PARSE-0003": {Class: ClassParse, Template: "unterminated string"},
	"PARSE-0004": {Class: ClassParse, Template: "invalid number literal: {{.Literal}}"},
	"PARSE-0005": {Class: ClassParse, Template: "catch is mandatory after try"},
	"PARSE-0006": {Class: ClassParse, Template: "'?'/'??' are only meaningful in a document-store operator position"},
	"PARSE-0007": {Class: ClassParse, Template: "const declaration requires an initializer"},

	"SCOPE-0001": {Class: ClassScope, Template: "'{{.Name}}' is already declared in this scope"},
	"SCOPE-0002": {Class: ClassScope, Template: "identifier not found: {{.Name}}"},
	"SCOPE-0003": {Class: ClassScope, Template: "cannot assign to const '{{.Name}}'"},
	"SCOPE-0004": {Class: ClassScope, Template: "'{{.Name}}' is already bound in this scope"},

	"TYPE-0001": {Class: ClassType, Template: "{{.Function}} expected {{.Expected}}, got {{.Got}}"},
	"TYPE-0002": {Class: ClassType, Template: "unknown operator: {{.LeftType}} {{.Operator}} {{.RightType}}"},
	"TYPE-0003": {Class: ClassType, Template: "cannot negate {{.Type}}"},
	"TYPE-0004": {Class: ClassType, Template: "cannot call {{.Type}} as a function"},
	"TYPE-0005": {
		Class:    ClassType,
		Template: "{{.Where}}: expected {{.Expected}}, got {{.Got}}",
	},

	"ARITY-0001": {Class: ClassArity, Template: "{{.Function}} expects {{.Want}} argument(s), got {{.Got}}"},
	"ARITY-0002": {Class: ClassArity, Template: "missing argument for required parameter '{{.Param}}'"},
	"ARITY-0003": {Class: ClassArity, Template: "too many arguments to {{.Function}}"},

	"UNDEF-0001": {Class: ClassUndefined, Template: "identifier not found: {{.Name}}"},
	"UNDEF-0002": {Class: ClassUndefined, Template: "module does not export '{{.Name}}'"},
	"UNDEF-0003": {Class: ClassUndefined, Template: "unknown field '{{.Name}}' for schema {{.Schema}}"},

	"INDEX-0001": {Class: ClassIndex, Template: "index {{.Index}} out of range (length {{.Length}})"},

	"OP-0001": {Class: ClassOperator, Template: "division by zero"},
	"OP-0002": {Class: ClassOperator, Template: "unknown operator {{.Operator}}"},

	"CTRL-0001": {Class: ClassControl, Template: "return used outside of a function"},
	"CTRL-0002": {Class: ClassControl, Template: "{{.Keyword}} used outside of a loop"},

	"IMPORT-0001": {Class: ClassImport, Template: "module not found: {{.Path}}"},
	"IMPORT-0002": {Class: ClassImport, Template: "circular import: {{.Path}}"},
	"IMPORT-0003": {Class: ClassImport, Template: "failed to load module {{.Path}}: {{.GoError}}"},
	"IMPORT-0004": {Class: ClassImport, Template: "'{{.Name}}' is already bound at the import site"},

	"SCHEMA-0001": {Class: ClassSchema, Template: "cannot extend unknown class '{{.Base}}'"},
	"SCHEMA-0002": {Class: ClassSchema, Template: "field '{{.Field}}' is required on {{.Schema}}"},
	"SCHEMA-0003": {Class: ClassSchema, Template: "too many constructor arguments for {{.Schema}}"},

	"DSL-0001": {Class: ClassDSL, Template: "no active database binding"},
	"DSL-0002": {Class: ClassDSL, Template: "filter must be an object or null, got {{.Got}}"},
	"DSL-0003": {Class: ClassDSL, Template: "pipeline must be an array, got {{.Got}}"},
	"DSL-0004": {Class: ClassDSL, Template: "unknown collection binding '{{.Name}}'"},
	"DSL-0005": {Class: ClassDSL, Template: "'{{.Value}}' cannot be converted to a document"},
	"DSL-0006": {Class: ClassDSL, Template: "'{{.Value}}' is not a recognizable date"},
}

// New builds a ScriptError from the catalog, rendering {{.Field}} placeholders
// in data against both the message and any hint templates.
func New(code string, data map[string]any) *ScriptError {
	def, ok := Catalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &ScriptError{Class: ClassType, Code: code, Message: msg, Data: data}
	}
	msg := renderTemplate(def.Template, data)
	var hints []string
	for _, h := range def.Hints {
		if r := renderTemplate(h, data); r != "" {
			hints = append(hints, r)
		}
	}
	return &ScriptError{Class: def.Class, Code: code, Message: msg, Hints: hints, Data: data}
}

// NewWithPosition is New plus a source position.
func NewWithPosition(code string, line, column int, data map[string]any) *ScriptError {
	e := New(code, data)
	e.Line, e.Column = line, column
	return e
}

// NewSimple builds an error outside the catalog, for one-off messages.
func NewSimple(class ErrorClass, message string) *ScriptError {
	return &ScriptError{Class: class, Message: message}
}

func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}
	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}
	return buf.String()
}

// levenshteinDistance computes the edit distance between two strings, used
// to power "did you mean" hints on undefined-identifier errors.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(matrix[i-1][j]+1, matrix[i][j-1]+1, matrix[i-1][j-1]+cost)
		}
	}
	return matrix[len(a)][len(b)]
}

// FindClosestMatch returns the closest candidate to input within a
// length-scaled edit-distance threshold, or "" if nothing is close enough.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}
	inputLower := strings.ToLower(input)
	var best string
	bestDist := -1
	for _, c := range candidates {
		d := levenshteinDistance(inputLower, strings.ToLower(c))
		if bestDist == -1 || d < bestDist {
			bestDist, best = d, c
		}
	}
	threshold := 1
	if len(input) >= 4 && len(input) <= 6 {
		threshold = 2
	} else if len(input) >= 7 {
		threshold = 3
	}
	if bestDist <= 0 || bestDist > threshold {
		return ""
	}
	return best
}

// NewUndefinedIdentifier builds UNDEF-0001, attaching a "did you mean"
// hint when a nearby identifier is in scope.
func NewUndefinedIdentifier(name string, known []string) *ScriptError {
	err := New("UNDEF-0001", map[string]any{"Name": name})
	if suggestion := FindClosestMatch(name, known); suggestion != "" {
		err.Hints = append(err.Hints, fmt.Sprintf("did you mean `%s`?", suggestion))
	}
	return err
}
