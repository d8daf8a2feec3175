package parser

import (
	"os"

	"github.com/pkg/errors"

	"github.com/martin041313/c-minus/pkg/ast"
	"github.com/martin041313/c-minus/pkg/scanner"
	"github.com/martin041313/c-minus/pkg/token"
)

// Parser is a recursive descent parser for C-minus. It consumes the token
// slice produced by the scanner and builds the TreeNode AST the back end
// expects.
type Parser struct {
	toks []token.Token
	pos  int
}

// ParseFile scans and parses a C-minus source file.
func ParseFile(filename string) (*ast.TreeNode, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(src)
}

// Parse scans and parses C-minus source text into a declaration list.
func Parse(src []byte) (*ast.TreeNode, error) {
	toks, err := scanner.ScanAll(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	tree, err := p.declarationList()
	if err != nil {
		return nil, err
	}
	if p.cur().Type != token.EOF {
		return nil, p.errorf("expected declaration, found %q", p.cur().Lexeme)
	}
	return tree, nil
}

func (p *Parser) cur() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) next() token.Token {
	tok := p.toks[p.pos]
	if tok.Type != token.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) accept(t token.Type) bool {
	if p.cur().Type == t {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(t token.Type) (token.Token, error) {
	if p.cur().Type != t {
		return token.Token{}, p.errorf("expected %q, found %q", t.String(), p.cur().Lexeme)
	}
	return p.next(), nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return errors.Errorf("line %d: syntax error: "+format,
		append([]interface{}{p.cur().Line}, args...)...)
}

func (p *Parser) typeSpecifier() (ast.DataType, error) {
	switch p.cur().Type {
	case token.INT:
		p.next()
		return ast.Int, nil
	case token.VOID:
		p.next()
		return ast.Void, nil
	}
	return ast.Void, p.errorf("expected type specifier, found %q", p.cur().Lexeme)
}

// declarationList parses the whole program: a sibling-linked list of
// top-level declarations.
func (p *Parser) declarationList() (*ast.TreeNode, error) {
	var head, tail *ast.TreeNode
	for p.cur().Type != token.EOF {
		dec, err := p.declaration()
		if err != nil {
			return nil, err
		}
		if head == nil {
			head = dec
		} else {
			tail.Sibling = dec
		}
		tail = dec
	}
	if head == nil {
		return nil, p.errorf("empty program")
	}
	return head, nil
}

// declaration parses a variable or function declaration; both start with a
// type specifier and a name, so the decision is made on the token after the
// name.
func (p *Parser) declaration() (*ast.TreeNode, error) {
	typ, err := p.typeSpecifier()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(token.ID)
	if err != nil {
		return nil, err
	}

	if p.cur().Type == token.LPAREN {
		return p.funDeclaration(typ, name)
	}
	return p.varDeclaration(typ, name)
}

func (p *Parser) varDeclaration(typ ast.DataType, name token.Token) (*ast.TreeNode, error) {
	if typ == ast.Void {
		return nil, errors.Errorf("line %d: variable %q declared void", name.Line, name.Lexeme)
	}

	if p.accept(token.LBRACKET) {
		length, err := p.expect(token.NUM)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		dec := ast.NewDecNode(ast.ArrayDecK, name.Line)
		dec.Name = name.Lexeme
		dec.Val = length.Val
		dec.VariableDataType = typ
		return dec, nil
	}

	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	dec := ast.NewDecNode(ast.ScalarDecK, name.Line)
	dec.Name = name.Lexeme
	dec.VariableDataType = typ
	return dec, nil
}

func (p *Parser) funDeclaration(typ ast.DataType, name token.Token) (*ast.TreeNode, error) {
	dec := ast.NewDecNode(ast.FuncDecK, name.Line)
	dec.Name = name.Lexeme
	dec.FunctionReturnType = typ

	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	params, err := p.params()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.compoundStmt()
	if err != nil {
		return nil, err
	}

	dec.Child[0] = params
	dec.Child[1] = body
	return dec, nil
}

// params parses the parameter list; a bare "void" means no parameters.
func (p *Parser) params() (*ast.TreeNode, error) {
	if p.cur().Type == token.VOID {
		p.next()
		return nil, nil
	}

	var head, tail *ast.TreeNode
	for {
		param, err := p.param()
		if err != nil {
			return nil, err
		}
		if head == nil {
			head = param
		} else {
			tail.Sibling = param
		}
		tail = param
		if !p.accept(token.COMMA) {
			return head, nil
		}
	}
}

func (p *Parser) param() (*ast.TreeNode, error) {
	typ, err := p.typeSpecifier()
	if err != nil {
		return nil, err
	}
	if typ == ast.Void {
		return nil, p.errorf("parameter declared void")
	}
	name, err := p.expect(token.ID)
	if err != nil {
		return nil, err
	}

	var dec *ast.TreeNode
	if p.accept(token.LBRACKET) {
		if _, err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
		// array parameters carry no length: Val stays 0
		dec = ast.NewDecNode(ast.ArrayDecK, name.Line)
	} else {
		dec = ast.NewDecNode(ast.ScalarDecK, name.Line)
	}
	dec.Name = name.Lexeme
	dec.VariableDataType = typ
	dec.IsParameter = true
	return dec, nil
}

func (p *Parser) compoundStmt() (*ast.TreeNode, error) {
	brace, err := p.expect(token.LBRACE)
	if err != nil {
		return nil, err
	}
	node := ast.NewStmtNode(ast.CompoundK, brace.Line)

	// local declarations come first
	var decHead, decTail *ast.TreeNode
	for p.cur().Type == token.INT || p.cur().Type == token.VOID {
		typ, err := p.typeSpecifier()
		if err != nil {
			return nil, err
		}
		name, err := p.expect(token.ID)
		if err != nil {
			return nil, err
		}
		dec, err := p.varDeclaration(typ, name)
		if err != nil {
			return nil, err
		}
		if decHead == nil {
			decHead = dec
		} else {
			decTail.Sibling = dec
		}
		decTail = dec
	}

	var stmtHead, stmtTail *ast.TreeNode
	for p.cur().Type != token.RBRACE {
		if p.cur().Type == token.EOF {
			return nil, p.errorf("unexpected end of file in compound statement")
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		if stmt == nil {
			continue // empty statement
		}
		if stmtHead == nil {
			stmtHead = stmt
		} else {
			stmtTail.Sibling = stmt
		}
		stmtTail = stmt
	}
	p.next() // consume }

	node.Child[0] = decHead
	node.Child[1] = stmtHead
	return node, nil
}

func (p *Parser) statement() (*ast.TreeNode, error) {
	switch p.cur().Type {
	case token.LBRACE:
		return p.compoundStmt()
	case token.IF:
		return p.selectionStmt()
	case token.WHILE:
		return p.iterationStmt()
	case token.RETURN:
		return p.returnStmt()
	case token.SEMI:
		p.next()
		return nil, nil
	default:
		exp, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return exp, nil
	}
}

func (p *Parser) selectionStmt() (*ast.TreeNode, error) {
	kw := p.next()
	node := ast.NewStmtNode(ast.IfK, kw.Line)

	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	then, err := p.statement()
	if err != nil {
		return nil, err
	}

	node.Child[0] = cond
	node.Child[1] = then
	if p.accept(token.ELSE) {
		els, err := p.statement()
		if err != nil {
			return nil, err
		}
		node.Child[2] = els
	}
	return node, nil
}

func (p *Parser) iterationStmt() (*ast.TreeNode, error) {
	kw := p.next()
	node := ast.NewStmtNode(ast.WhileK, kw.Line)

	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}

	node.Child[0] = cond
	node.Child[1] = body
	return node, nil
}

func (p *Parser) returnStmt() (*ast.TreeNode, error) {
	kw := p.next()
	node := ast.NewStmtNode(ast.ReturnK, kw.Line)

	if !p.accept(token.SEMI) {
		exp, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		node.Child[0] = exp
	}
	return node, nil
}

// expression parses "var = expression | simple-expression". The grammar is
// not LL(1) here, so the parser first parses a simple expression and turns
// it into an assignment when "=" follows a legal lvalue.
func (p *Parser) expression() (*ast.TreeNode, error) {
	left, err := p.simpleExpression()
	if err != nil {
		return nil, err
	}
	if p.cur().Type != token.ASSIGN {
		return left, nil
	}
	if left.Kind != ast.ExpK || left.Exp != ast.IdK {
		return nil, p.errorf("assignment target is not a variable")
	}

	assignTok := p.next()
	right, err := p.expression()
	if err != nil {
		return nil, err
	}
	node := ast.NewExpNode(ast.AssignK, assignTok.Line)
	node.Child[0] = left
	node.Child[1] = right
	return node, nil
}

// simpleExpression parses "additive (relop additive)?". At most one
// relational operator is allowed, so comparisons do not chain.
func (p *Parser) simpleExpression() (*ast.TreeNode, error) {
	left, err := p.additiveExpression()
	if err != nil {
		return nil, err
	}
	if !token.IsRelop(p.cur().Type) {
		return left, nil
	}

	op := p.next()
	right, err := p.additiveExpression()
	if err != nil {
		return nil, err
	}
	node := ast.NewExpNode(ast.OpK, op.Line)
	node.Op = op.Type
	node.Child[0] = left
	node.Child[1] = right
	return node, nil
}

func (p *Parser) additiveExpression() (*ast.TreeNode, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == token.PLUS || p.cur().Type == token.MINUS {
		op := p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		node := ast.NewExpNode(ast.OpK, op.Line)
		node.Op = op.Type
		node.Child[0] = left
		node.Child[1] = right
		left = node
	}
	return left, nil
}

func (p *Parser) term() (*ast.TreeNode, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == token.TIMES || p.cur().Type == token.OVER {
		op := p.next()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		node := ast.NewExpNode(ast.OpK, op.Line)
		node.Op = op.Type
		node.Child[0] = left
		node.Child[1] = right
		left = node
	}
	return left, nil
}

func (p *Parser) factor() (*ast.TreeNode, error) {
	switch p.cur().Type {
	case token.LPAREN:
		p.next()
		exp, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return exp, nil

	case token.NUM:
		tok := p.next()
		node := ast.NewExpNode(ast.ConstK, tok.Line)
		node.Val = tok.Val
		return node, nil

	case token.ID:
		name := p.next()
		if p.cur().Type == token.LPAREN {
			return p.call(name)
		}
		node := ast.NewExpNode(ast.IdK, name.Line)
		node.Name = name.Lexeme
		if p.accept(token.LBRACKET) {
			index, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			node.Child[0] = index
		}
		return node, nil
	}
	return nil, p.errorf("expected expression, found %q", p.cur().Lexeme)
}

// call parses "ID ( args )". Call nodes are statement-kind nodes even in
// expression position; the code generator handles both placements.
func (p *Parser) call(name token.Token) (*ast.TreeNode, error) {
	node := ast.NewStmtNode(ast.CallK, name.Line)
	node.Name = name.Lexeme

	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	if p.accept(token.RPAREN) {
		return node, nil
	}

	var head, tail *ast.TreeNode
	for {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		if head == nil {
			head = arg
		} else {
			tail.Sibling = arg
		}
		tail = arg
		if !p.accept(token.COMMA) {
			break
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	node.Child[0] = head
	return node, nil
}
