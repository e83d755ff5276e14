package expression

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokNumber
	tokString
	tokIdent
	tokTrue
	tokFalse
	tokNull

	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent

	tokEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte

	tokAnd
	tokOr
	tokBang

	tokQuestion
	tokColon
	tokComma
	tokLParen
	tokRParen
)

type token struct {
	typ tokenType
	lit string
	num float64
	pos int
}

// lex tokenizes an expression body. The language is deliberately small: no
// assignment, no member access, no statements.
func lex(src string) ([]token, error) {
	var out []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9' || c == '.' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9':
			start := i
			for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.') {
				i++
			}
			n, err := strconv.ParseFloat(src[start:i], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q at %d", src[start:i], start)
			}
			out = append(out, token{typ: tokNumber, lit: src[start:i], num: n, pos: start})
		case c == '\'' || c == '"':
			lit, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			out = append(out, token{typ: tokString, lit: lit, pos: i})
			i = next
		case isIdentStart(rune(c)):
			start := i
			for i < len(src) && isIdentPart(rune(src[i])) {
				i++
			}
			word := src[start:i]
			typ := tokIdent
			switch word {
			case "true":
				typ = tokTrue
			case "false":
				typ = tokFalse
			case "null":
				typ = tokNull
			}
			out = append(out, token{typ: typ, lit: word, pos: start})
		default:
			typ, width, err := lexOperator(src, i)
			if err != nil {
				return nil, err
			}
			out = append(out, token{typ: typ, lit: src[i : i+width], pos: i})
			i += width
		}
	}
	out = append(out, token{typ: tokEOF, pos: len(src)})
	return out, nil
}

func lexString(src string, start int) (string, int, error) {
	quote := src[start]
	var b strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		if c == quote {
			return b.String(), i + 1, nil
		}
		if c == '\\' && i+1 < len(src) {
			i++
			switch src[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(src[i])
			}
			i++
			continue
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, fmt.Errorf("unterminated string at %d", start)
}

func lexOperator(src string, i int) (tokenType, int, error) {
	two := ""
	if i+1 < len(src) {
		two = src[i : i+2]
	}
	switch two {
	case "==":
		return tokEq, 2, nil
	case "!=":
		return tokNeq, 2, nil
	case "<=":
		return tokLte, 2, nil
	case ">=":
		return tokGte, 2, nil
	case "&&":
		return tokAnd, 2, nil
	case "||":
		return tokOr, 2, nil
	}
	switch src[i] {
	case '+':
		return tokPlus, 1, nil
	case '-':
		return tokMinus, 1, nil
	case '*':
		return tokStar, 1, nil
	case '/':
		return tokSlash, 1, nil
	case '%':
		return tokPercent, 1, nil
	case '<':
		return tokLt, 1, nil
	case '>':
		return tokGt, 1, nil
	case '!':
		return tokBang, 1, nil
	case '?':
		return tokQuestion, 1, nil
	case ':':
		return tokColon, 1, nil
	case ',':
		return tokComma, 1, nil
	case '(':
		return tokLParen, 1, nil
	case ')':
		return tokRParen, 1, nil
	}
	return tokEOF, 0, fmt.Errorf("unexpected character %q at %d", src[i], i)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
