package dslref

import (
	"fmt"

	"github.com/ksd-co/rule-engine-postgres/dsl"
)

// Grammar (informal):
//
//	program   := rule*
//	rule      := "rule" string ("salience" number)? "when" expr "then" action*
//	action    := "assign" path "=" expr ";"
//	           | "log" expr ";"
//	           | "retract" string ";"
//	           | "call" ident "(" (expr ("," expr)*)? ")" ";"
//	expr      := or
//	or        := and (("||"|"or") and)*
//	and       := equality (("&&"|"and") equality)*
//	equality  := comparison (("=="|"!=") comparison)*
//	comparison:= additive (("<"|"<="|">"|">=") additive)*
//	additive  := multiplicative (("+"|"-") multiplicative)*
//	multiplicative := unary (("*"|"/"|"%") unary)*
//	unary     := ("!"|"not"|"-")? primary
//	primary   := number | string | "true" | "false" | "null" | path
//	           | ident "(" (expr ("," expr)*)? ")" | "(" expr ")"
type parser struct {
	lex  *lexer
	cur  token
	peek token
}

// Reference is the dsl.Parser implementation backed by this package, with
// internal errors normalized to the boundary CodeParseFailure shape.
var Reference dsl.Parser = dsl.ParseFunc(func(source string) (dsl.RuleProgram, error) {
	prog, err := Parse(source)
	if err != nil {
		return dsl.RuleProgram{}, dsl.WrapParseError(err)
	}
	return prog, nil
})

// Parse implements dsl.Parser: text → dsl.RuleProgram or parse error.
func Parse(source string) (dsl.RuleProgram, error) {
	p := &parser{lex: newLexer(source)}
	if err := p.advance(); err != nil {
		return dsl.RuleProgram{}, err
	}
	if err := p.advance(); err != nil {
		return dsl.RuleProgram{}, err
	}

	var rules []dsl.Rule
	for p.cur.kind != tokEOF {
		r, err := p.parseRule()
		if err != nil {
			return dsl.RuleProgram{}, err
		}
		rules = append(rules, r)
	}
	return dsl.RuleProgram{Rules: rules}, nil
}

func (p *parser) advance() error {
	p.cur = p.peek
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", p.cur.line, fmt.Sprintf(format, args...))
}

func (p *parser) expectKeyword(kw string) error {
	if p.cur.kind != tokKeyword || p.cur.text != kw {
		return p.errorf("expected keyword %q, got %q", kw, p.cur.text)
	}
	return p.advance()
}

func (p *parser) expectPunct(s string) error {
	if p.cur.kind != tokPunct || p.cur.text != s {
		return p.errorf("expected %q, got %q", s, p.cur.text)
	}
	return p.advance()
}

func (p *parser) isPunct(s string) bool {
	return p.cur.kind == tokPunct && p.cur.text == s
}

func (p *parser) isKeyword(kw string) bool {
	return p.cur.kind == tokKeyword && p.cur.text == kw
}

func (p *parser) parseRule() (dsl.Rule, error) {
	if err := p.expectKeyword("rule"); err != nil {
		return dsl.Rule{}, err
	}
	if p.cur.kind != tokString {
		return dsl.Rule{}, p.errorf("expected rule name string")
	}
	name := p.cur.text
	if err := p.advance(); err != nil {
		return dsl.Rule{}, err
	}

	salience := 0
	if p.isKeyword("salience") {
		if err := p.advance(); err != nil {
			return dsl.Rule{}, err
		}
		if p.cur.kind != tokNumber {
			return dsl.Rule{}, p.errorf("expected integer after salience")
		}
		isInt, i, _, err := parseNumberLiteral(p.cur.text)
		if err != nil || !isInt {
			return dsl.Rule{}, p.errorf("salience must be an integer")
		}
		salience = int(i)
		if err := p.advance(); err != nil {
			return dsl.Rule{}, err
		}
	}

	if err := p.expectKeyword("when"); err != nil {
		return dsl.Rule{}, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return dsl.Rule{}, err
	}

	if err := p.expectKeyword("then"); err != nil {
		return dsl.Rule{}, err
	}
	var actions []dsl.Action
	for !p.isKeyword("rule") && p.cur.kind != tokEOF {
		a, err := p.parseAction()
		if err != nil {
			return dsl.Rule{}, err
		}
		actions = append(actions, a)
	}

	return dsl.Rule{Name: name, Salience: salience, Condition: cond, Actions: actions}, nil
}

func (p *parser) parseAction() (dsl.Action, error) {
	switch {
	case p.isKeyword("assign"):
		if err := p.advance(); err != nil {
			return dsl.Action{}, err
		}
		if p.cur.kind != tokIdent {
			return dsl.Action{}, p.errorf("expected path after assign")
		}
		path := p.cur.text
		if err := p.advance(); err != nil {
			return dsl.Action{}, err
		}
		if err := p.expectPunct("="); err != nil {
			return dsl.Action{}, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return dsl.Action{}, err
		}
		if err := p.expectPunct(";"); err != nil {
			return dsl.Action{}, err
		}
		return dsl.Action{Kind: dsl.ActionAssign, Path: path, Value: val}, nil

	case p.isKeyword("log"):
		if err := p.advance(); err != nil {
			return dsl.Action{}, err
		}
		msg, err := p.parseExpr()
		if err != nil {
			return dsl.Action{}, err
		}
		if err := p.expectPunct(";"); err != nil {
			return dsl.Action{}, err
		}
		return dsl.Action{Kind: dsl.ActionLog, Message: msg}, nil

	case p.isKeyword("retract"):
		if err := p.advance(); err != nil {
			return dsl.Action{}, err
		}
		if p.cur.kind != tokString {
			return dsl.Action{}, p.errorf("expected rule name string after retract")
		}
		name := p.cur.text
		if err := p.advance(); err != nil {
			return dsl.Action{}, err
		}
		if err := p.expectPunct(";"); err != nil {
			return dsl.Action{}, err
		}
		return dsl.Action{Kind: dsl.ActionRetract, RuleName: name}, nil

	case p.isKeyword("call"):
		if err := p.advance(); err != nil {
			return dsl.Action{}, err
		}
		if p.cur.kind != tokIdent {
			return dsl.Action{}, p.errorf("expected function name after call")
		}
		fn := p.cur.text
		if err := p.advance(); err != nil {
			return dsl.Action{}, err
		}
		args, err := p.parseArgList()
		if err != nil {
			return dsl.Action{}, err
		}
		if err := p.expectPunct(";"); err != nil {
			return dsl.Action{}, err
		}
		return dsl.Action{Kind: dsl.ActionCall, Func: fn, Args: args}, nil

	default:
		return dsl.Action{}, p.errorf("expected assign/log/retract/call, got %q", p.cur.text)
	}
}

func (p *parser) parseArgList() ([]dsl.Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []dsl.Expr
	for !p.isPunct(")") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) parseExpr() (dsl.Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (dsl.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return dsl.Expr{}, err
	}
	for p.isPunct("||") || p.isKeyword("or") {
		if err := p.advance(); err != nil {
			return dsl.Expr{}, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return dsl.Expr{}, err
		}
		l, r := left, right
		left = dsl.Expr{Kind: dsl.ExprLogical, Op: "||", Left: &l, Right: &r}
	}
	return left, nil
}

func (p *parser) parseAnd() (dsl.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return dsl.Expr{}, err
	}
	for p.isPunct("&&") || p.isKeyword("and") {
		if err := p.advance(); err != nil {
			return dsl.Expr{}, err
		}
		right, err := p.parseEquality()
		if err != nil {
			return dsl.Expr{}, err
		}
		l, r := left, right
		left = dsl.Expr{Kind: dsl.ExprLogical, Op: "&&", Left: &l, Right: &r}
	}
	return left, nil
}

func (p *parser) parseEquality() (dsl.Expr, error) {
	return p.parseBinaryLevel(p.parseComparison, "==", "!=")
}

func (p *parser) parseComparison() (dsl.Expr, error) {
	return p.parseBinaryLevel(p.parseAdditive, "<", "<=", ">", ">=")
}

func (p *parser) parseAdditive() (dsl.Expr, error) {
	return p.parseBinaryLevel(p.parseMultiplicative, "+", "-")
}

func (p *parser) parseMultiplicative() (dsl.Expr, error) {
	return p.parseBinaryLevel(p.parseUnary, "*", "/", "%")
}

func (p *parser) parseBinaryLevel(sub func() (dsl.Expr, error), ops ...string) (dsl.Expr, error) {
	left, err := sub()
	if err != nil {
		return dsl.Expr{}, err
	}
	for {
		matched := ""
		if p.cur.kind == tokPunct {
			for _, op := range ops {
				if p.cur.text == op {
					matched = op
					break
				}
			}
		}
		if matched == "" {
			return left, nil
		}
		if err := p.advance(); err != nil {
			return dsl.Expr{}, err
		}
		right, err := sub()
		if err != nil {
			return dsl.Expr{}, err
		}
		l, r := left, right
		left = dsl.Expr{Kind: dsl.ExprBinary, Op: matched, Left: &l, Right: &r}
	}
}

func (p *parser) parseUnary() (dsl.Expr, error) {
	if p.isPunct("!") || p.isKeyword("not") {
		if err := p.advance(); err != nil {
			return dsl.Expr{}, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return dsl.Expr{}, err
		}
		return dsl.Expr{Kind: dsl.ExprUnary, Op: "!", Operand: &operand}, nil
	}
	if p.isPunct("-") {
		if err := p.advance(); err != nil {
			return dsl.Expr{}, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return dsl.Expr{}, err
		}
		return dsl.Expr{Kind: dsl.ExprUnary, Op: "-", Operand: &operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (dsl.Expr, error) {
	switch {
	case p.cur.kind == tokNumber:
		text := p.cur.text
		if err := p.advance(); err != nil {
			return dsl.Expr{}, err
		}
		isInt, i, f, err := parseNumberLiteral(text)
		if err != nil {
			return dsl.Expr{}, p.errorf("invalid number literal %q", text)
		}
		if isInt {
			return dsl.Expr{Kind: dsl.ExprLiteral, LitKind: dsl.LitInt64, Int64: i}, nil
		}
		return dsl.Expr{Kind: dsl.ExprLiteral, LitKind: dsl.LitFloat, Float64: f}, nil

	case p.cur.kind == tokString:
		s := p.cur.text
		if err := p.advance(); err != nil {
			return dsl.Expr{}, err
		}
		return dsl.Expr{Kind: dsl.ExprLiteral, LitKind: dsl.LitString, Str: s}, nil

	case p.isKeyword("true"):
		if err := p.advance(); err != nil {
			return dsl.Expr{}, err
		}
		return dsl.Expr{Kind: dsl.ExprLiteral, LitKind: dsl.LitBool, Bool: true}, nil

	case p.isKeyword("false"):
		if err := p.advance(); err != nil {
			return dsl.Expr{}, err
		}
		return dsl.Expr{Kind: dsl.ExprLiteral, LitKind: dsl.LitBool, Bool: false}, nil

	case p.isKeyword("null"):
		if err := p.advance(); err != nil {
			return dsl.Expr{}, err
		}
		return dsl.Expr{Kind: dsl.ExprLiteral, LitKind: dsl.LitNull}, nil

	case p.isPunct("("):
		if err := p.advance(); err != nil {
			return dsl.Expr{}, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return dsl.Expr{}, err
		}
		if err := p.expectPunct(")"); err != nil {
			return dsl.Expr{}, err
		}
		return e, nil

	case p.cur.kind == tokIdent:
		name := p.cur.text
		if err := p.advance(); err != nil {
			return dsl.Expr{}, err
		}
		if p.isPunct("(") {
			args, err := p.parseArgList()
			if err != nil {
				return dsl.Expr{}, err
			}
			return dsl.Expr{Kind: dsl.ExprCall, Func: name, Args: args}, nil
		}
		return dsl.Expr{Kind: dsl.ExprPath, Path: name}, nil

	default:
		return dsl.Expr{}, p.errorf("unexpected token %q", p.cur.text)
	}
}
