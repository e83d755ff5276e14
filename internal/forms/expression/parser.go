package expression

import "fmt"

// AST node kinds. The tree is a tiny tagged union rather than a type
// hierarchy.
type nodeKind int

const (
	nodeNumber nodeKind = iota
	nodeString
	nodeBool
	nodeNull
	nodeIdent
	nodeUnary
	nodeBinary
	nodeTernary
	nodeCall
)

type node struct {
	kind nodeKind
	num  float64
	str  string // literal, identifier, or operator
	b    bool
	args []*node
}

// Operator precedence, lowest first. The ternary conditional sits below the
// logical operators; unary operators are handled in parsePrefix.
const (
	precLowest = iota
	precTernary
	precOr
	precAnd
	precEquality
	precCompare
	precAdd
	precMul
	precUnary
)

func precedenceOf(t tokenType) int {
	switch t {
	case tokQuestion:
		return precTernary
	case tokOr:
		return precOr
	case tokAnd:
		return precAnd
	case tokEq, tokNeq:
		return precEquality
	case tokLt, tokLte, tokGt, tokGte:
		return precCompare
	case tokPlus, tokMinus:
		return precAdd
	case tokStar, tokSlash, tokPercent:
		return precMul
	default:
		return precLowest
	}
}

type parser struct {
	toks []token
	pos  int
}

// parse builds the AST for a substituted expression body.
func parse(src string) (*node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if p.peek().typ != tokEOF {
		return nil, fmt.Errorf("unexpected %q at %d", p.peek().lit, p.peek().pos)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.typ != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(t tokenType, what string) error {
	if p.peek().typ != t {
		return fmt.Errorf("expected %s at %d, got %q", what, p.peek().pos, p.peek().lit)
	}
	p.next()
	return nil
}

func (p *parser) parseExpr(minPrec int) (*node, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		prec := precedenceOf(op.typ)
		if prec <= minPrec {
			return left, nil
		}
		p.next()
		if op.typ == tokQuestion {
			left, err = p.parseTernary(left)
			if err != nil {
				return nil, err
			}
			continue
		}
		right, err := p.parseExpr(prec)
		if err != nil {
			return nil, err
		}
		left = &node{kind: nodeBinary, str: op.lit, args: []*node{left, right}}
	}
}

func (p *parser) parseTernary(cond *node) (*node, error) {
	// Right-associative: a ? b : c ? d : e groups as a ? b : (c ? d : e).
	then, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	alt, err := p.parseExpr(precTernary - 1)
	if err != nil {
		return nil, err
	}
	return &node{kind: nodeTernary, args: []*node{cond, then, alt}}, nil
}

func (p *parser) parsePrefix() (*node, error) {
	t := p.next()
	switch t.typ {
	case tokNumber:
		return &node{kind: nodeNumber, num: t.num}, nil
	case tokString:
		return &node{kind: nodeString, str: t.lit}, nil
	case tokTrue:
		return &node{kind: nodeBool, b: true}, nil
	case tokFalse:
		return &node{kind: nodeBool}, nil
	case tokNull:
		return &node{kind: nodeNull}, nil
	case tokMinus, tokBang:
		operand, err := p.parseExpr(precUnary - 1)
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeUnary, str: t.lit, args: []*node{operand}}, nil
	case tokLParen:
		inner, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		if p.peek().typ == tokLParen {
			return p.parseCall(t.lit)
		}
		return &node{kind: nodeIdent, str: t.lit}, nil
	default:
		return nil, fmt.Errorf("unexpected %q at %d", t.lit, t.pos)
	}
}

func (p *parser) parseCall(name string) (*node, error) {
	p.next() // '('
	call := &node{kind: nodeCall, str: name}
	if p.peek().typ == tokRParen {
		p.next()
		return call, nil
	}
	for {
		arg, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		switch p.peek().typ {
		case tokComma:
			p.next()
		case tokRParen:
			p.next()
			return call, nil
		default:
			return nil, fmt.Errorf("expected ',' or ')' at %d", p.peek().pos)
		}
	}
}
