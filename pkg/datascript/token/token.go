// Package token defines the lexical token kinds produced by the lexer and
// consumed by the parser.
package token

// Kind identifies the category of a token.
type Kind int

const (
	ILLEGAL Kind = iota
	EOF

	// Literals and identifiers
	IDENT
	NUMBER
	STRING

	// Keywords
	LET
	CONST
	DECLARE
	FUNC
	CLASS
	SCHEMA
	CREATE
	REQUIRED
	OPTIONAL
	EXTENDS
	IF
	ELSE
	WHILE
	TRUE
	FALSE
	NULL
	RETURN
	BREAK
	CONTINUE
	TRY
	CATCH
	THROW
	IMPORT
	EXPOSING
	DEFAULT
	EXPORT
	AS
	UPDATE
	USE
	USING
	FROM
	WITH
	WHERE
	SET
	MONGO
	MANY
	QUERY
	DATABASE
	COLLECTION
	AWAIT

	// Punctuation
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	COMMA
	SEMICOLON
	COLON
	DOT

	// Operators
	ASSIGN
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	BANG
	BANGBANG
	QUESTION
	QUESTIONQUESTION
	LT
	GT
	LTE
	GTE
	EQ
	NEQ
	AND
	OR
	ARROW_INSERT // <-
	PIPE         // |>
)

// Token is the lexer's output unit: a kind tag plus the literal source text.
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
	Column int
}

// keywords maps reserved identifiers to their keyword kind. An identifier
// not found here lexes as IDENT.
var keywords = map[string]Kind{
	"let":        LET,
	"const":      CONST,
	"declare":    DECLARE,
	"func":       FUNC,
	"class":      CLASS,
	"schema":     SCHEMA,
	"create":     CREATE,
	"required":   REQUIRED,
	"optional":   OPTIONAL,
	"extends":    EXTENDS,
	"if":         IF,
	"else":       ELSE,
	"while":      WHILE,
	"true":       TRUE,
	"false":      FALSE,
	"null":       NULL,
	"return":     RETURN,
	"break":      BREAK,
	"continue":   CONTINUE,
	"try":        TRY,
	"catch":      CATCH,
	"throw":      THROW,
	"import":     IMPORT,
	"exposing":   EXPOSING,
	"default":    DEFAULT,
	"export":     EXPORT,
	"as":         AS,
	"update":     UPDATE,
	"use":        USE,
	"using":      USING,
	"from":       FROM,
	"with":       WITH,
	"where":      WHERE,
	"set":        SET,
	"mongo":      MONGO,
	"many":       MANY,
	"query":      QUERY,
	"database":   DATABASE,
	"collection": COLLECTION,
	"await":      AWAIT,
}

// LookupIdent returns the keyword kind for word, or IDENT if word is not a
// reserved word.
func LookupIdent(word string) Kind {
	if kind, ok := keywords[word]; ok {
		return kind
	}
	return IDENT
}

var names = map[Kind]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF", IDENT: "IDENT", NUMBER: "NUMBER", STRING: "STRING",
	LET: "let", CONST: "const", DECLARE: "declare", FUNC: "func", CLASS: "class",
	SCHEMA: "schema", CREATE: "create", REQUIRED: "required", OPTIONAL: "optional",
	EXTENDS: "extends", IF: "if", ELSE: "else", WHILE: "while", TRUE: "true",
	FALSE: "false", NULL: "null", RETURN: "return", BREAK: "break", CONTINUE: "continue",
	TRY: "try", CATCH: "catch", THROW: "throw", IMPORT: "import", EXPOSING: "exposing",
	DEFAULT: "default", EXPORT: "export", AS: "as", UPDATE: "update", USE: "use",
	USING: "using", FROM: "from", WITH: "with", WHERE: "where", SET: "set",
	MONGO: "mongo", MANY: "many", QUERY: "query", DATABASE: "database",
	COLLECTION: "collection", AWAIT: "await",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", LBRACKET: "[", RBRACKET: "]",
	COMMA: ",", SEMICOLON: ";", COLON: ":", DOT: ".",
	ASSIGN: "=", PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	BANG: "!", BANGBANG: "!!", QUESTION: "?", QUESTIONQUESTION: "??",
	LT: "<", GT: ">", LTE: "<=", GTE: ">=", EQ: "==", NEQ: "!=",
	AND: "&&", OR: "||", ARROW_INSERT: "<-", PIPE: "|>",
}

// String renders a Kind for diagnostics.
func (k Kind) String() string {
	if name, ok := names[k]; ok {
		return name
	}
	return "UNKNOWN"
}
