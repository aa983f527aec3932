// Package ast defines the Datascript abstract syntax tree: a discriminated
// union of statement and expression node structs, one struct per variant,
// each satisfying Node (and Statement or Expression).
package ast

import (
	"strings"

	"github.com/datascript-lang/datascript/pkg/datascript/token"
)

// Node is the root interface every AST node satisfies.
type Node interface {
	TokenLexeme() string
	String() string
}

// Statement is a top-level or block-level node with no value.
type Statement interface {
	Node
	statementNode()
}

// Expression is a node that evaluates to a Value.
type Expression interface {
	Node
	expressionNode()
}

// TypeAnnotation is `identifier ('[' ']')*` — a base type name plus an
// array-nesting depth.
type TypeAnnotation struct {
	Base       string
	ArrayDepth int
}

func (t *TypeAnnotation) String() string {
	return t.Base + strings.Repeat("[]", t.ArrayDepth)
}

// Program is the root of every parsed file: a flat list of top-level
// statements.
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLexeme() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLexeme()
	}
	return ""
}
func (p *Program) String() string {
	var sb strings.Builder
	for _, s := range p.Statements {
		sb.WriteString(s.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// ---- Statements ----------------------------------------------------------

// VarDeclaration is `declare [const] name [: Type] [= expr] ;`.
type VarDeclaration struct {
	Token      token.Token
	Name       string
	Const      bool
	Annotation *TypeAnnotation
	Value      Expression // nil if no initializer
}

func (*VarDeclaration) statementNode()        {}
func (v *VarDeclaration) TokenLexeme() string { return v.Token.Lexeme }
func (v *VarDeclaration) String() string {
	kw := "declare"
	if v.Const {
		kw += " const"
	}
	out := kw + " " + v.Name
	if v.Value != nil {
		out += " = " + v.Value.String()
	}
	return out + ";"
}

// Parameter is one function/method parameter: name, optional type
// annotation, optional default-value expression.
type Parameter struct {
	Name       string
	Annotation *TypeAnnotation
	Default    Expression // nil if no default
}

// FunctionDeclaration is `func name(params) { body }`.
type FunctionDeclaration struct {
	Token  token.Token
	Name   string
	Params []Parameter
	Body   []Statement
}

func (*FunctionDeclaration) statementNode()        {}
func (f *FunctionDeclaration) TokenLexeme() string { return f.Token.Lexeme }
func (f *FunctionDeclaration) String() string      { return "func " + f.Name + "(...) { ... }" }

// Field is a class/schema field member.
type Field struct {
	Name        string
	Annotation  *TypeAnnotation
	Required    bool
	HasRequired bool // true when `required`/`optional` appeared explicitly
	Initializer Expression
}

// Method is a class/schema method member.
type Method struct {
	Name   string
	Params []Parameter
	Body   []Statement
}

// ClassDeclaration is `class|schema Name [extends Base] [create(params)] { members }`.
type ClassDeclaration struct {
	Token             token.Token
	Name              string
	Base              string // "" if no `extends`
	ConstructorParams []Parameter
	HasConstructor    bool
	Fields            []Field
	Methods           []Method
}

func (*ClassDeclaration) statementNode()        {}
func (c *ClassDeclaration) TokenLexeme() string { return c.Token.Lexeme }
func (c *ClassDeclaration) String() string      { return "class " + c.Name + " { ... }" }

// IfStatement is `if (cond) { then } [else { else }]`. Else may itself be a
// single-statement block holding another IfStatement (else if chains).
type IfStatement struct {
	Token     token.Token
	Condition Expression
	Then      []Statement
	Else      []Statement // nil if no else clause
}

func (*IfStatement) statementNode()        {}
func (i *IfStatement) TokenLexeme() string { return i.Token.Lexeme }
func (i *IfStatement) String() string      { return "if (" + i.Condition.String() + ") { ... }" }

// WhileStatement is `while (cond) { body }`.
type WhileStatement struct {
	Token     token.Token
	Condition Expression
	Body      []Statement
}

func (*WhileStatement) statementNode()        {}
func (w *WhileStatement) TokenLexeme() string { return w.Token.Lexeme }
func (w *WhileStatement) String() string      { return "while (" + w.Condition.String() + ") { ... }" }

// ReturnStatement is `return [expr] ;`.
type ReturnStatement struct {
	Token token.Token
	Value Expression // nil for a bare `return;`
}

func (*ReturnStatement) statementNode()        {}
func (r *ReturnStatement) TokenLexeme() string { return r.Token.Lexeme }
func (r *ReturnStatement) String() string      { return "return;" }

// BreakStatement is `break;`.
type BreakStatement struct{ Token token.Token }

func (*BreakStatement) statementNode()        {}
func (b *BreakStatement) TokenLexeme() string { return b.Token.Lexeme }
func (b *BreakStatement) String() string      { return "break;" }

// ContinueStatement is `continue;`.
type ContinueStatement struct{ Token token.Token }

func (*ContinueStatement) statementNode()        {}
func (c *ContinueStatement) TokenLexeme() string { return c.Token.Lexeme }
func (c *ContinueStatement) String() string      { return "continue;" }

// TryCatchStatement is `try { Try } catch [(Param)] { Catch }`.
type TryCatchStatement struct {
	Token      token.Token
	Try        []Statement
	CatchParam string // "" if catch takes no parameter
	Catch      []Statement
}

func (*TryCatchStatement) statementNode()        {}
func (t *TryCatchStatement) TokenLexeme() string { return t.Token.Lexeme }
func (t *TryCatchStatement) String() string      { return "try { ... } catch { ... }" }

// ThrowStatement is `throw expr ;`.
type ThrowStatement struct {
	Token token.Token
	Value Expression
}

func (*ThrowStatement) statementNode()        {}
func (t *ThrowStatement) TokenLexeme() string { return t.Token.Lexeme }
func (t *ThrowStatement) String() string      { return "throw " + t.Value.String() + ";" }

// ImportStatement is `import "specifier" [as name] [exposing {a,b}] [default name];`.
type ImportStatement struct {
	Token      token.Token
	Specifier  string
	As         string   // "" if no `as` clause
	Exposing   []string // nil if no `exposing` clause
	DefaultAs  string   // "" if no `default` clause
}

func (*ImportStatement) statementNode()        {}
func (i *ImportStatement) TokenLexeme() string { return i.Token.Lexeme }
func (i *ImportStatement) String() string      { return "import \"" + i.Specifier + "\";" }

// ExportDeclaration wraps a declaration (or a default expression) that is
// also exported from the current module.
type ExportDeclaration struct {
	Token       token.Token
	Default     bool
	DefaultExpr Expression // set when `export default <expr>;` (not a declaration)
	Decl        Statement  // set when exporting a declaration, or re-exporting one
	Names       []string   // set for `export { a, b };`
}

func (*ExportDeclaration) statementNode()        {}
func (e *ExportDeclaration) TokenLexeme() string { return e.Token.Lexeme }
func (e *ExportDeclaration) String() string      { return "export ...;" }

// DatabaseStatement is `database ident = expr;`.
type DatabaseStatement struct {
	Token token.Token
	Name  string
	Value Expression
}

func (*DatabaseStatement) statementNode()        {}
func (d *DatabaseStatement) TokenLexeme() string { return d.Token.Lexeme }
func (d *DatabaseStatement) String() string      { return "database " + d.Name + " = ...;" }

// CollectionStatement is `collection ident [= expr];`.
type CollectionStatement struct {
	Token token.Token
	Name  string
	Value Expression // nil if no initializer
}

func (*CollectionStatement) statementNode()        {}
func (c *CollectionStatement) TokenLexeme() string { return c.Token.Lexeme }
func (c *CollectionStatement) String() string      { return "collection " + c.Name + ";" }

// UseCollectionStatement is `use collection ident [with expr];`.
type UseCollectionStatement struct {
	Token   token.Token
	Name    string
	Options Expression // nil if no `with` clause
}

func (*UseCollectionStatement) statementNode()        {}
func (u *UseCollectionStatement) TokenLexeme() string { return u.Token.Lexeme }
func (u *UseCollectionStatement) String() string      { return "use collection " + u.Name + ";" }

// UsingStatement is `using mongo from uri [database db] [as alias] [with opts] { body }`.
type UsingStatement struct {
	Token    token.Token
	URI      Expression
	Database Expression // nil if no `database` clause
	Alias    string     // defaults to "db" if not given
	Options  Expression // nil if no `with` clause
	Body     []Statement
}

func (*UsingStatement) statementNode()        {}
func (u *UsingStatement) TokenLexeme() string { return u.Token.Lexeme }
func (u *UsingStatement) String() string      { return "using mongo { ... }" }

// ExpressionStatement wraps an expression used in statement position.
type ExpressionStatement struct {
	Token token.Token
	Expr  Expression
}

func (*ExpressionStatement) statementNode()        {}
func (e *ExpressionStatement) TokenLexeme() string { return e.Token.Lexeme }
func (e *ExpressionStatement) String() string {
	if e.Expr == nil {
		return ""
	}
	return e.Expr.String()
}

// ---- Expressions ----------------------------------------------------------

type NumericLiteral struct {
	Token token.Token
	Value float64
}

func (*NumericLiteral) expressionNode()        {}
func (n *NumericLiteral) TokenLexeme() string  { return n.Token.Lexeme }
func (n *NumericLiteral) String() string       { return n.Token.Lexeme }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (*StringLiteral) expressionNode()        {}
func (s *StringLiteral) TokenLexeme() string  { return s.Token.Lexeme }
func (s *StringLiteral) String() string       { return "\"" + s.Value + "\"" }

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (*BooleanLiteral) expressionNode()        {}
func (b *BooleanLiteral) TokenLexeme() string  { return b.Token.Lexeme }
func (b *BooleanLiteral) String() string       { return b.Token.Lexeme }

type NullLiteral struct{ Token token.Token }

func (*NullLiteral) expressionNode()        {}
func (n *NullLiteral) TokenLexeme() string  { return n.Token.Lexeme }
func (n *NullLiteral) String() string       { return "null" }

type Identifier struct {
	Token token.Token
	Name  string
}

func (*Identifier) expressionNode()        {}
func (i *Identifier) TokenLexeme() string  { return i.Token.Lexeme }
func (i *Identifier) String() string       { return i.Name }

// ObjectProperty is one `key: expr` pair of an ObjectLiteral. Shorthand
// `{x}` stores Value == nil and is resolved against the current scope at
// evaluation time.
type ObjectProperty struct {
	Key   string
	Value Expression // nil for shorthand
}

type ObjectLiteral struct {
	Token      token.Token
	Properties []ObjectProperty
}

func (*ObjectLiteral) expressionNode()        {}
func (o *ObjectLiteral) TokenLexeme() string  { return o.Token.Lexeme }
func (o *ObjectLiteral) String() string       { return "{ ... }" }

type ArrayLiteral struct {
	Token    token.Token
	Elements []Expression
}

func (*ArrayLiteral) expressionNode()        {}
func (a *ArrayLiteral) TokenLexeme() string  { return a.Token.Lexeme }
func (a *ArrayLiteral) String() string       { return "[ ... ]" }

// AssignmentExpr is `target = value`. Target must be an *Identifier.
type AssignmentExpr struct {
	Token  token.Token
	Target *Identifier
	Value  Expression
}

func (*AssignmentExpr) expressionNode()        {}
func (a *AssignmentExpr) TokenLexeme() string  { return a.Token.Lexeme }
func (a *AssignmentExpr) String() string       { return a.Target.String() + " = " + a.Value.String() }

type BinaryExpr struct {
	Token    token.Token
	Operator string
	Left     Expression
	Right    Expression
}

func (*BinaryExpr) expressionNode()        {}
func (b *BinaryExpr) TokenLexeme() string  { return b.Token.Lexeme }
func (b *BinaryExpr) String() string {
	return "(" + b.Left.String() + " " + b.Operator + " " + b.Right.String() + ")"
}

type UnaryExpr struct {
	Token    token.Token
	Operator string
	Operand  Expression
}

func (*UnaryExpr) expressionNode()        {}
func (u *UnaryExpr) TokenLexeme() string  { return u.Token.Lexeme }
func (u *UnaryExpr) String() string       { return "(" + u.Operator + u.Operand.String() + ")" }

// AwaitExpr is `await expr`.
type AwaitExpr struct {
	Token token.Token
	Value Expression
}

func (*AwaitExpr) expressionNode()        {}
func (a *AwaitExpr) TokenLexeme() string  { return a.Token.Lexeme }
func (a *AwaitExpr) String() string       { return "await " + a.Value.String() }

type CallExpr struct {
	Token    token.Token
	Callee   Expression
	Args     []Expression
}

func (*CallExpr) expressionNode()        {}
func (c *CallExpr) TokenLexeme() string  { return c.Token.Lexeme }
func (c *CallExpr) String() string       { return c.Callee.String() + "(...)" }

// MemberExpr is `object.property` (dot) or `object[index]` (computed).
type MemberExpr struct {
	Token    token.Token
	Object   Expression
	Property Expression // *Identifier for dot access, arbitrary expr for computed
	Computed bool
}

func (*MemberExpr) expressionNode()        {}
func (m *MemberExpr) TokenLexeme() string  { return m.Token.Lexeme }
func (m *MemberExpr) String() string {
	if m.Computed {
		return m.Object.String() + "[" + m.Property.String() + "]"
	}
	return m.Object.String() + "." + m.Property.String()
}

// MongoOperationExpr is `collection <op> operand` for op in
// {<-, !, !!, ?, ??, |>}.
type MongoOperationExpr struct {
	Token      token.Token
	Operator   string
	Collection Expression
	Operand    Expression
}

func (*MongoOperationExpr) expressionNode()        {}
func (m *MongoOperationExpr) TokenLexeme() string  { return m.Token.Lexeme }
func (m *MongoOperationExpr) String() string {
	return m.Collection.String() + " " + m.Operator + " " + m.Operand.String()
}

// QueryCondition is one `field op value` clause of a `query { ... }` block.
type QueryCondition struct {
	Field    string
	Operator string // one of == != < <= > >=
	Value    Expression
}

// MongoQueryExpr is `query { field op value, ... }`.
type MongoQueryExpr struct {
	Token      token.Token
	Conditions []QueryCondition
}

func (*MongoQueryExpr) expressionNode()        {}
func (m *MongoQueryExpr) TokenLexeme() string  { return m.Token.Lexeme }
func (m *MongoQueryExpr) String() string       { return "query { ... }" }

// MongoUpdateExpr is `target update [many] where filter set update [with options]`.
type MongoUpdateExpr struct {
	Token   token.Token
	Target  Expression
	Many    bool
	Filter  Expression
	Update  Expression
	Options Expression // nil if no `with` clause
}

func (*MongoUpdateExpr) expressionNode()        {}
func (m *MongoUpdateExpr) TokenLexeme() string  { return m.Token.Lexeme }
func (m *MongoUpdateExpr) String() string       { return m.Target.String() + " update where ... set ...;" }
