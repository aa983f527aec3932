// Package parser implements a recursive-descent parser that turns a
// Datascript token stream into an *ast.Program.
package parser

import (
	"strconv"

	"github.com/datascript-lang/datascript/pkg/datascript/ast"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
	"github.com/datascript-lang/datascript/pkg/datascript/lexer"
	"github.com/datascript-lang/datascript/pkg/datascript/token"
)

// Parser consumes a token slice with one-token lookahead.
type Parser struct {
	filename string
	tokens   []token.Token
	pos      int
	cur      token.Token
	peek     token.Token
}

// New builds a Parser over an already-lexed token slice.
func New(tokens []token.Token) *Parser {
	return NewNamed(tokens, "<input>")
}

// NewNamed is New with a filename attached to diagnostics.
func NewNamed(tokens []token.Token, filename string) *Parser {
	p := &Parser{filename: filename, tokens: tokens}
	if len(p.tokens) == 0 {
		p.tokens = []token.Token{{Kind: token.EOF}}
	}
	p.cur = p.tokens[0]
	if len(p.tokens) > 1 {
		p.peek = p.tokens[1]
	} else {
		p.peek = p.tokens[0]
	}
	return p
}

// ParseString lexes and parses src in one step.
func ParseString(src string) (*ast.Program, *errors.ScriptError) {
	return ParseNamed(src, "<input>")
}

// ParseNamed is ParseString with a filename attached to diagnostics.
func ParseNamed(src, filename string) (*ast.Program, *errors.ScriptError) {
	toks, lerr := lexer.TokenizeNamed(src, filename)
	if lerr != nil {
		return nil, lerr
	}
	return NewNamed(toks, filename).ParseProgram()
}

func (p *Parser) next() {
	p.pos++
	if p.pos < len(p.tokens) {
		p.cur = p.tokens[p.pos]
	} else {
		p.cur = token.Token{Kind: token.EOF}
	}
	if p.pos+1 < len(p.tokens) {
		p.peek = p.tokens[p.pos+1]
	} else {
		p.peek = token.Token{Kind: token.EOF}
	}
}

// eat consumes and returns the current token unconditionally.
func (p *Parser) eat() token.Token {
	t := p.cur
	p.next()
	return t
}

// expect consumes the current token if it matches kind, else returns a
// fatal PARSE-0001.
func (p *Parser) expect(kind token.Kind, expected string) (token.Token, *errors.ScriptError) {
	if p.cur.Kind != kind {
		return token.Token{}, p.errorf("PARSE-0001", map[string]any{"Expected": expected, "Got": p.cur.Lexeme})
	}
	return p.eat(), nil
}

func (p *Parser) errorf(code string, data map[string]any) *errors.ScriptError {
	return errors.NewWithPosition(code, p.cur.Line, p.cur.Column, data).WithFile(p.filename)
}

// ParseProgram parses statements until EOF.
func (p *Parser) ParseProgram() (*ast.Program, *errors.ScriptError) {
	prog := &ast.Program{}
	for p.cur.Kind != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

// ---- Statement dispatch ---------------------------------------------------

func (p *Parser) parseStatement() (ast.Statement, *errors.ScriptError) {
	switch p.cur.Kind {
	case token.DECLARE, token.LET:
		return p.parseVarDeclaration()
	case token.FUNC:
		return p.parseFunctionDeclaration()
	case token.CLASS, token.SCHEMA:
		return p.parseClassDeclaration()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.BREAK:
		tok := p.eat()
		p.optionalSemicolon()
		return &ast.BreakStatement{Token: tok}, nil
	case token.CONTINUE:
		tok := p.eat()
		p.optionalSemicolon()
		return &ast.ContinueStatement{Token: tok}, nil
	case token.TRY:
		return p.parseTryCatchStatement()
	case token.THROW:
		return p.parseThrowStatement()
	case token.IMPORT:
		return p.parseImportStatement()
	case token.EXPORT:
		return p.parseExportDeclaration()
	case token.DATABASE:
		return p.parseDatabaseStatement()
	case token.COLLECTION:
		return p.parseCollectionStatement()
	case token.USE:
		return p.parseUseCollectionStatement()
	case token.USING:
		return p.parseUsingStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseBlock() ([]ast.Statement, *errors.ScriptError) {
	if _, err := p.expect(token.LBRACE, "'{'"); err != nil {
		return nil, err
	}
	var stmts []ast.Statement
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.expect(token.RBRACE, "'}'"); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) optionalSemicolon() {
	if p.cur.Kind == token.SEMICOLON {
		p.eat()
	}
}

func (p *Parser) parseVarDeclaration() (*ast.VarDeclaration, *errors.ScriptError) {
	tok := p.eat() // declare|let
	isConst := false
	if p.cur.Kind == token.CONST {
		isConst = true
		p.eat()
	}
	name, err := p.expect(token.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	decl := &ast.VarDeclaration{Token: tok, Name: name.Lexeme, Const: isConst}
	if p.cur.Kind == token.COLON {
		p.eat()
		ann, aerr := p.parseTypeAnnotation()
		if aerr != nil {
			return nil, aerr
		}
		decl.Annotation = ann
	}
	if p.cur.Kind == token.ASSIGN {
		p.eat()
		val, verr := p.parseExpression()
		if verr != nil {
			return nil, verr
		}
		decl.Value = val
	} else if isConst {
		return nil, p.errorf("PARSE-0007", nil)
	}
	p.optionalSemicolon()
	return decl, nil
}

func (p *Parser) parseTypeAnnotation() (*ast.TypeAnnotation, *errors.ScriptError) {
	base, err := p.expect(token.IDENT, "type name")
	if err != nil {
		return nil, err
	}
	depth := 0
	for p.cur.Kind == token.LBRACKET {
		p.eat()
		if _, err := p.expect(token.RBRACKET, "']'"); err != nil {
			return nil, err
		}
		depth++
	}
	return &ast.TypeAnnotation{Base: base.Lexeme, ArrayDepth: depth}, nil
}

func (p *Parser) parseParamList() ([]ast.Parameter, *errors.ScriptError) {
	if _, err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	var params []ast.Parameter
	for p.cur.Kind != token.RPAREN {
		name, err := p.expect(token.IDENT, "parameter name")
		if err != nil {
			return nil, err
		}
		param := ast.Parameter{Name: name.Lexeme}
		if p.cur.Kind == token.COLON {
			p.eat()
			ann, aerr := p.parseTypeAnnotation()
			if aerr != nil {
				return nil, aerr
			}
			param.Annotation = ann
		}
		if p.cur.Kind == token.ASSIGN {
			p.eat()
			def, derr := p.parseExpression()
			if derr != nil {
				return nil, derr
			}
			param.Default = def
		}
		params = append(params, param)
		if p.cur.Kind == token.COMMA {
			p.eat()
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseFunctionDeclaration() (*ast.FunctionDeclaration, *errors.ScriptError) {
	tok := p.eat() // func
	name, err := p.expect(token.IDENT, "function name")
	if err != nil {
		return nil, err
	}
	params, perr := p.parseParamList()
	if perr != nil {
		return nil, perr
	}
	body, berr := p.parseBlock()
	if berr != nil {
		return nil, berr
	}
	return &ast.FunctionDeclaration{Token: tok, Name: name.Lexeme, Params: params, Body: body}, nil
}

func (p *Parser) parseClassDeclaration() (*ast.ClassDeclaration, *errors.ScriptError) {
	tok := p.eat() // class|schema
	name, err := p.expect(token.IDENT, "class name")
	if err != nil {
		return nil, err
	}
	decl := &ast.ClassDeclaration{Token: tok, Name: name.Lexeme}
	if p.cur.Kind == token.EXTENDS {
		p.eat()
		base, berr := p.expect(token.IDENT, "base class name")
		if berr != nil {
			return nil, berr
		}
		decl.Base = base.Lexeme
	}
	if p.cur.Kind == token.CREATE {
		p.eat()
		params, cerr := p.parseParamList()
		if cerr != nil {
			return nil, cerr
		}
		decl.ConstructorParams = params
		decl.HasConstructor = true
	}
	if _, err := p.expect(token.LBRACE, "'{'"); err != nil {
		return nil, err
	}
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		hasRequired, requiredFlag := false, false
		if p.cur.Kind == token.REQUIRED {
			hasRequired, requiredFlag = true, true
			p.eat()
		} else if p.cur.Kind == token.OPTIONAL {
			hasRequired, requiredFlag = true, false
			p.eat()
		}
		memberName, merr := p.expect(token.IDENT, "member name")
		if merr != nil {
			return nil, merr
		}
		if p.cur.Kind == token.LPAREN {
			params, perr := p.parseParamList()
			if perr != nil {
				return nil, perr
			}
			body, berr := p.parseBlock()
			if berr != nil {
				return nil, berr
			}
			decl.Methods = append(decl.Methods, ast.Method{Name: memberName.Lexeme, Params: params, Body: body})
			continue
		}
		field := ast.Field{Name: memberName.Lexeme, HasRequired: hasRequired, Required: requiredFlag}
		if p.cur.Kind == token.COLON {
			p.eat()
			ann, aerr := p.parseTypeAnnotation()
			if aerr != nil {
				return nil, aerr
			}
			field.Annotation = ann
		}
		if p.cur.Kind == token.ASSIGN {
			p.eat()
			init, ierr := p.parseExpression()
			if ierr != nil {
				return nil, ierr
			}
			field.Initializer = init
		}
		if !hasRequired {
			field.Required = field.Initializer == nil
		}
		p.optionalSemicolon()
		decl.Fields = append(decl.Fields, field)
	}
	if _, err := p.expect(token.RBRACE, "'}'"); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseIfStatement() (*ast.IfStatement, *errors.ScriptError) {
	tok := p.eat() // if
	if _, err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	cond, cerr := p.parseExpression()
	if cerr != nil {
		return nil, cerr
	}
	if _, err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	then, terr := p.parseBlock()
	if terr != nil {
		return nil, terr
	}
	stmt := &ast.IfStatement{Token: tok, Condition: cond, Then: then}
	if p.cur.Kind == token.ELSE {
		p.eat()
		if p.cur.Kind == token.IF {
			nested, nerr := p.parseIfStatement()
			if nerr != nil {
				return nil, nerr
			}
			stmt.Else = []ast.Statement{nested}
		} else {
			elseBlock, eerr := p.parseBlock()
			if eerr != nil {
				return nil, eerr
			}
			stmt.Else = elseBlock
		}
	}
	return stmt, nil
}

func (p *Parser) parseWhileStatement() (*ast.WhileStatement, *errors.ScriptError) {
	tok := p.eat()
	if _, err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	cond, cerr := p.parseExpression()
	if cerr != nil {
		return nil, cerr
	}
	if _, err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	body, berr := p.parseBlock()
	if berr != nil {
		return nil, berr
	}
	return &ast.WhileStatement{Token: tok, Condition: cond, Body: body}, nil
}

func (p *Parser) parseReturnStatement() (*ast.ReturnStatement, *errors.ScriptError) {
	tok := p.eat()
	stmt := &ast.ReturnStatement{Token: tok}
	if p.cur.Kind != token.SEMICOLON && p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Value = val
	}
	p.optionalSemicolon()
	return stmt, nil
}

func (p *Parser) parseTryCatchStatement() (*ast.TryCatchStatement, *errors.ScriptError) {
	tok := p.eat() // try
	tryBlock, terr := p.parseBlock()
	if terr != nil {
		return nil, terr
	}
	if p.cur.Kind != token.CATCH {
		return nil, p.errorf("PARSE-0005", nil)
	}
	p.eat()
	stmt := &ast.TryCatchStatement{Token: tok, Try: tryBlock}
	if p.cur.Kind == token.LPAREN {
		p.eat()
		name, nerr := p.expect(token.IDENT, "catch parameter name")
		if nerr != nil {
			return nil, nerr
		}
		stmt.CatchParam = name.Lexeme
		if _, err := p.expect(token.RPAREN, "')'"); err != nil {
			return nil, err
		}
	}
	catchBlock, cerr := p.parseBlock()
	if cerr != nil {
		return nil, cerr
	}
	stmt.Catch = catchBlock
	return stmt, nil
}

func (p *Parser) parseThrowStatement() (*ast.ThrowStatement, *errors.ScriptError) {
	tok := p.eat()
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.optionalSemicolon()
	return &ast.ThrowStatement{Token: tok, Value: val}, nil
}

func (p *Parser) parseImportStatement() (*ast.ImportStatement, *errors.ScriptError) {
	tok := p.eat() // import
	spec, serr := p.expect(token.STRING, "import specifier string")
	if serr != nil {
		return nil, serr
	}
	stmt := &ast.ImportStatement{Token: tok, Specifier: spec.Lexeme}
	for {
		switch p.cur.Kind {
		case token.AS:
			p.eat()
			name, err := p.expect(token.IDENT, "identifier")
			if err != nil {
				return nil, err
			}
			stmt.As = name.Lexeme
		case token.EXPOSING:
			p.eat()
			if _, err := p.expect(token.LBRACE, "'{'"); err != nil {
				return nil, err
			}
			for p.cur.Kind != token.RBRACE {
				name, err := p.expect(token.IDENT, "identifier")
				if err != nil {
					return nil, err
				}
				stmt.Exposing = append(stmt.Exposing, name.Lexeme)
				if p.cur.Kind == token.COMMA {
					p.eat()
					continue
				}
				break
			}
			if _, err := p.expect(token.RBRACE, "'}'"); err != nil {
				return nil, err
			}
		case token.DEFAULT:
			p.eat()
			name, err := p.expect(token.IDENT, "identifier")
			if err != nil {
				return nil, err
			}
			stmt.DefaultAs = name.Lexeme
		default:
			p.optionalSemicolon()
			return stmt, nil
		}
	}
}

func (p *Parser) parseExportDeclaration() (*ast.ExportDeclaration, *errors.ScriptError) {
	tok := p.eat() // export
	decl := &ast.ExportDeclaration{Token: tok}
	if p.cur.Kind == token.DEFAULT {
		p.eat()
		decl.Default = true
		switch p.cur.Kind {
		case token.FUNC:
			fn, err := p.parseFunctionDeclaration()
			if err != nil {
				return nil, err
			}
			decl.Decl = fn
		case token.CLASS, token.SCHEMA:
			cl, err := p.parseClassDeclaration()
			if err != nil {
				return nil, err
			}
			decl.Decl = cl
		default:
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			decl.DefaultExpr = expr
			p.optionalSemicolon()
		}
		return decl, nil
	}
	if p.cur.Kind == token.LBRACE {
		p.eat()
		for p.cur.Kind != token.RBRACE {
			name, err := p.expect(token.IDENT, "identifier")
			if err != nil {
				return nil, err
			}
			decl.Names = append(decl.Names, name.Lexeme)
			if p.cur.Kind == token.COMMA {
				p.eat()
				continue
			}
			break
		}
		if _, err := p.expect(token.RBRACE, "'}'"); err != nil {
			return nil, err
		}
		p.optionalSemicolon()
		return decl, nil
	}
	switch p.cur.Kind {
	case token.DECLARE, token.LET:
		v, err := p.parseVarDeclaration()
		if err != nil {
			return nil, err
		}
		decl.Decl = v
	case token.FUNC:
		fn, err := p.parseFunctionDeclaration()
		if err != nil {
			return nil, err
		}
		decl.Decl = fn
	case token.CLASS, token.SCHEMA:
		cl, err := p.parseClassDeclaration()
		if err != nil {
			return nil, err
		}
		decl.Decl = cl
	default:
		return nil, p.errorf("PARSE-0002", map[string]any{"Token": p.cur.Lexeme})
	}
	return decl, nil
}

func (p *Parser) parseDatabaseStatement() (*ast.DatabaseStatement, *errors.ScriptError) {
	tok := p.eat()
	name, err := p.expect(token.IDENT, "database binding name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN, "'='"); err != nil {
		return nil, err
	}
	val, verr := p.parseExpression()
	if verr != nil {
		return nil, verr
	}
	p.optionalSemicolon()
	return &ast.DatabaseStatement{Token: tok, Name: name.Lexeme, Value: val}, nil
}

func (p *Parser) parseCollectionStatement() (*ast.CollectionStatement, *errors.ScriptError) {
	tok := p.eat()
	name, err := p.expect(token.IDENT, "collection binding name")
	if err != nil {
		return nil, err
	}
	stmt := &ast.CollectionStatement{Token: tok, Name: name.Lexeme}
	if p.cur.Kind == token.ASSIGN {
		p.eat()
		val, verr := p.parseExpression()
		if verr != nil {
			return nil, verr
		}
		stmt.Value = val
	}
	p.optionalSemicolon()
	return stmt, nil
}

func (p *Parser) parseUseCollectionStatement() (*ast.UseCollectionStatement, *errors.ScriptError) {
	tok := p.eat() // use
	if _, err := p.expect(token.COLLECTION, "'collection'"); err != nil {
		return nil, err
	}
	name, nerr := p.expect(token.IDENT, "collection binding name")
	if nerr != nil {
		return nil, nerr
	}
	stmt := &ast.UseCollectionStatement{Token: tok, Name: name.Lexeme}
	if p.cur.Kind == token.WITH {
		p.eat()
		opts, oerr := p.parseExpression()
		if oerr != nil {
			return nil, oerr
		}
		stmt.Options = opts
	}
	p.optionalSemicolon()
	return stmt, nil
}

func (p *Parser) parseUsingStatement() (*ast.UsingStatement, *errors.ScriptError) {
	tok := p.eat() // using
	if _, err := p.expect(token.MONGO, "'mongo'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.FROM, "'from'"); err != nil {
		return nil, err
	}
	uri, uerr := p.parseLogicalOr()
	if uerr != nil {
		return nil, uerr
	}
	stmt := &ast.UsingStatement{Token: tok, URI: uri, Alias: "db"}
	for {
		switch p.cur.Kind {
		case token.DATABASE:
			p.eat()
			db, err := p.parseLogicalOr()
			if err != nil {
				return nil, err
			}
			stmt.Database = db
		case token.AS:
			p.eat()
			alias, err := p.expect(token.IDENT, "identifier")
			if err != nil {
				return nil, err
			}
			stmt.Alias = alias.Lexeme
		case token.WITH:
			p.eat()
			opts, err := p.parseLogicalOr()
			if err != nil {
				return nil, err
			}
			stmt.Options = opts
		default:
			body, berr := p.parseBlock()
			if berr != nil {
				return nil, berr
			}
			stmt.Body = body
			return stmt, nil
		}
	}
}

func (p *Parser) parseExpressionStatement() (*ast.ExpressionStatement, *errors.ScriptError) {
	tok := p.cur
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.optionalSemicolon()
	return &ast.ExpressionStatement{Token: tok, Expr: expr}, nil
}

// ---- Expression precedence climb ------------------------------------------

func (p *Parser) parseExpression() (ast.Expression, *errors.ScriptError) {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (ast.Expression, *errors.ScriptError) {
	left, err := p.parseDSLLayer()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind == token.ASSIGN {
		ident, ok := left.(*ast.Identifier)
		if !ok {
			return nil, p.errorf("PARSE-0002", map[string]any{"Token": p.cur.Lexeme})
		}
		tok := p.eat()
		val, verr := p.parseAssignment()
		if verr != nil {
			return nil, verr
		}
		return &ast.AssignmentExpr{Token: tok, Target: ident, Value: val}, nil
	}
	return left, nil
}

var dslInfixOps = map[token.Kind]string{
	token.ARROW_INSERT:     "<-",
	token.BANG:             "!",
	token.BANGBANG:         "!!",
	token.QUESTION:         "?",
	token.QUESTIONQUESTION: "??",
	token.PIPE:             "|>",
}

func (p *Parser) parseDSLLayer() (ast.Expression, *errors.ScriptError) {
	left, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	for {
		if op, ok := dslInfixOps[p.cur.Kind]; ok {
			tok := p.eat()
			operand, operr := p.parseLogicalOr()
			if operr != nil {
				return nil, operr
			}
			left = &ast.MongoOperationExpr{Token: tok, Operator: op, Collection: left, Operand: operand}
			continue
		}
		if p.cur.Kind == token.UPDATE {
			upd, uerr := p.parseMongoUpdate(left)
			if uerr != nil {
				return nil, uerr
			}
			left = upd
			continue
		}
		return left, nil
	}
}

func (p *Parser) parseMongoUpdate(target ast.Expression) (*ast.MongoUpdateExpr, *errors.ScriptError) {
	tok := p.eat() // update
	upd := &ast.MongoUpdateExpr{Token: tok, Target: target}
	if p.cur.Kind == token.MANY {
		p.eat()
		upd.Many = true
	}
	if _, err := p.expect(token.WHERE, "'where'"); err != nil {
		return nil, err
	}
	filter, ferr := p.parseLogicalOr()
	if ferr != nil {
		return nil, ferr
	}
	upd.Filter = filter
	if _, err := p.expect(token.SET, "'set'"); err != nil {
		return nil, err
	}
	setExpr, serr := p.parseLogicalOr()
	if serr != nil {
		return nil, serr
	}
	upd.Update = setExpr
	if p.cur.Kind == token.WITH {
		p.eat()
		opts, oerr := p.parseLogicalOr()
		if oerr != nil {
			return nil, oerr
		}
		upd.Options = opts
	}
	return upd, nil
}

func (p *Parser) parseLogicalOr() (ast.Expression, *errors.ScriptError) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.OR {
		tok := p.eat()
		right, rerr := p.parseLogicalAnd()
		if rerr != nil {
			return nil, rerr
		}
		left = &ast.BinaryExpr{Token: tok, Operator: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseLogicalAnd() (ast.Expression, *errors.ScriptError) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.AND {
		tok := p.eat()
		right, rerr := p.parseEquality()
		if rerr != nil {
			return nil, rerr
		}
		left = &ast.BinaryExpr{Token: tok, Operator: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expression, *errors.ScriptError) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.EQ || p.cur.Kind == token.NEQ {
		tok := p.eat()
		right, rerr := p.parseRelational()
		if rerr != nil {
			return nil, rerr
		}
		left = &ast.BinaryExpr{Token: tok, Operator: tok.Lexeme, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseRelational() (ast.Expression, *errors.ScriptError) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.LT || p.cur.Kind == token.LTE || p.cur.Kind == token.GT || p.cur.Kind == token.GTE {
		tok := p.eat()
		right, rerr := p.parseAdditive()
		if rerr != nil {
			return nil, rerr
		}
		left = &ast.BinaryExpr{Token: tok, Operator: tok.Lexeme, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expression, *errors.ScriptError) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.PLUS || p.cur.Kind == token.MINUS {
		tok := p.eat()
		right, rerr := p.parseMultiplicative()
		if rerr != nil {
			return nil, rerr
		}
		left = &ast.BinaryExpr{Token: tok, Operator: tok.Lexeme, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expression, *errors.ScriptError) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.STAR || p.cur.Kind == token.SLASH || p.cur.Kind == token.PERCENT {
		tok := p.eat()
		right, rerr := p.parseUnary()
		if rerr != nil {
			return nil, rerr
		}
		left = &ast.BinaryExpr{Token: tok, Operator: tok.Lexeme, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expression, *errors.ScriptError) {
	switch p.cur.Kind {
	case token.BANG, token.MINUS:
		tok := p.eat()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Token: tok, Operator: tok.Lexeme, Operand: operand}, nil
	case token.AWAIT:
		tok := p.eat()
		val, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpr{Token: tok, Value: val}, nil
	default:
		return p.parseCallMember()
	}
}

func (p *Parser) parseCallMember() (ast.Expression, *errors.ScriptError) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Kind {
		case token.LPAREN:
			tok := p.eat()
			var args []ast.Expression
			for p.cur.Kind != token.RPAREN {
				arg, aerr := p.parseExpression()
				if aerr != nil {
					return nil, aerr
				}
				args = append(args, arg)
				if p.cur.Kind == token.COMMA {
					p.eat()
					continue
				}
				break
			}
			if _, rerr := p.expect(token.RPAREN, "')'"); rerr != nil {
				return nil, rerr
			}
			left = &ast.CallExpr{Token: tok, Callee: left, Args: args}
		case token.DOT:
			tok := p.eat()
			name, nerr := p.expect(token.IDENT, "property name")
			if nerr != nil {
				return nil, nerr
			}
			left = &ast.MemberExpr{Token: tok, Object: left, Property: &ast.Identifier{Token: name, Name: name.Lexeme}, Computed: false}
		case token.LBRACKET:
			tok := p.eat()
			idx, ierr := p.parseExpression()
			if ierr != nil {
				return nil, ierr
			}
			if _, rerr := p.expect(token.RBRACKET, "']'"); rerr != nil {
				return nil, rerr
			}
			left = &ast.MemberExpr{Token: tok, Object: left, Property: idx, Computed: true}
		default:
			return left, nil
		}
	}
}

var queryCompareOps = map[token.Kind]string{
	token.EQ:  "==",
	token.NEQ: "!=",
	token.LT:  "<",
	token.LTE: "<=",
	token.GT:  ">",
	token.GTE: ">=",
}

func (p *Parser) parsePrimary() (ast.Expression, *errors.ScriptError) {
	switch p.cur.Kind {
	case token.NUMBER:
		tok := p.eat()
		f, ferr := strconv.ParseFloat(tok.Lexeme, 64)
		if ferr != nil {
			return nil, errors.NewWithPosition("PARSE-0004", tok.Line, tok.Column, map[string]any{"Literal": tok.Lexeme}).WithFile(p.filename)
		}
		return &ast.NumericLiteral{Token: tok, Value: f}, nil
	case token.STRING:
		tok := p.eat()
		return &ast.StringLiteral{Token: tok, Value: tok.Lexeme}, nil
	case token.TRUE:
		tok := p.eat()
		return &ast.BooleanLiteral{Token: tok, Value: true}, nil
	case token.FALSE:
		tok := p.eat()
		return &ast.BooleanLiteral{Token: tok, Value: false}, nil
	case token.NULL:
		tok := p.eat()
		return &ast.NullLiteral{Token: tok}, nil
	case token.IDENT:
		tok := p.eat()
		return &ast.Identifier{Token: tok, Name: tok.Lexeme}, nil
	case token.LPAREN:
		p.eat()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, rerr := p.expect(token.RPAREN, "')'"); rerr != nil {
			return nil, rerr
		}
		return expr, nil
	case token.LBRACE:
		return p.parseObjectLiteral()
	case token.LBRACKET:
		return p.parseArrayLiteral()
	case token.QUERY:
		return p.parseQueryExpr()
	case token.QUESTION, token.QUESTIONQUESTION, token.ARROW_INSERT, token.BANGBANG, token.PIPE:
		return nil, p.errorf("PARSE-0006", nil)
	default:
		return nil, p.errorf("PARSE-0002", map[string]any{"Token": p.cur.Lexeme})
	}
}

func (p *Parser) parseObjectLiteral() (*ast.ObjectLiteral, *errors.ScriptError) {
	tok := p.eat() // {
	obj := &ast.ObjectLiteral{Token: tok}
	for p.cur.Kind != token.RBRACE {
		var key string
		switch p.cur.Kind {
		case token.IDENT:
			key = p.eat().Lexeme
		case token.STRING:
			key = p.eat().Lexeme
		default:
			return nil, p.errorf("PARSE-0002", map[string]any{"Token": p.cur.Lexeme})
		}
		prop := ast.ObjectProperty{Key: key}
		if p.cur.Kind == token.COLON {
			p.eat()
			val, verr := p.parseExpression()
			if verr != nil {
				return nil, verr
			}
			prop.Value = val
		}
		obj.Properties = append(obj.Properties, prop)
		if p.cur.Kind == token.COMMA {
			p.eat()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBRACE, "'}'"); err != nil {
		return nil, err
	}
	return obj, nil
}

func (p *Parser) parseArrayLiteral() (*ast.ArrayLiteral, *errors.ScriptError) {
	tok := p.eat() // [
	arr := &ast.ArrayLiteral{Token: tok}
	for p.cur.Kind != token.RBRACKET {
		el, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		arr.Elements = append(arr.Elements, el)
		if p.cur.Kind == token.COMMA {
			p.eat()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBRACKET, "']'"); err != nil {
		return nil, err
	}
	return arr, nil
}

func (p *Parser) parseQueryExpr() (*ast.MongoQueryExpr, *errors.ScriptError) {
	tok := p.eat() // query
	if _, err := p.expect(token.LBRACE, "'{'"); err != nil {
		return nil, err
	}
	q := &ast.MongoQueryExpr{Token: tok}
	for p.cur.Kind != token.RBRACE {
		field, ferr := p.expect(token.IDENT, "field name")
		if ferr != nil {
			return nil, ferr
		}
		op, ok := queryCompareOps[p.cur.Kind]
		if !ok {
			return nil, p.errorf("PARSE-0002", map[string]any{"Token": p.cur.Lexeme})
		}
		p.eat()
		val, verr := p.parseAdditive()
		if verr != nil {
			return nil, verr
		}
		q.Conditions = append(q.Conditions, ast.QueryCondition{Field: field.Lexeme, Operator: op, Value: val})
		if p.cur.Kind == token.COMMA {
			p.eat()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBRACE, "'}'"); err != nil {
		return nil, err
	}
	return q, nil
}
