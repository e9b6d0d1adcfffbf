package dice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrEmptyExpression indicates a roll expression was blank.
var ErrEmptyExpression = errors.New("roll expression is empty")

// ErrInvalidExpression indicates a roll expression could not be parsed.
var ErrInvalidExpression = errors.New("roll expression is invalid")

// ErrUnknownStat indicates a roll expression references a stat the
// character sheet does not define.
var ErrUnknownStat = errors.New("unknown stat in roll expression")

type termKind int

const (
	termDice termKind = iota
	termConstant
	termStat
)

type term struct {
	kind  termKind
	sign  int
	count int
	sides int
	value int
	stat  string
}

// Expression is a parsed roll expression such as "2d6+STR-1".
//
// An expression is a sequence of terms joined by + or -. A term is a dice
// group ("2d6", "d20"), an integer constant, or a stat name resolved from
// the character's stat block at roll time. Stat names match
// case-insensitively.
type Expression struct {
	raw   string
	terms []term
}

// String returns the expression as it was parsed.
func (e Expression) String() string { return e.raw }

// ParseExpression parses a roll expression.
func ParseExpression(raw string) (Expression, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Expression{}, ErrEmptyExpression
	}

	p := parser{input: trimmed}
	terms, err := p.parse()
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %q: %v", ErrInvalidExpression, trimmed, err)
	}
	return Expression{raw: trimmed, terms: terms}, nil
}

// ExpressionResult captures one evaluation of a roll expression.
type ExpressionResult struct {
	Expression string
	Rolls      []DieRoll

	// Breakdown is a human-readable account of every term, for example
	// "2d6[3 5] + STR(3) - 1".
	Breakdown string
	Total     int
}

// Roll evaluates the expression against a character's stats.
//
// Evaluation is deterministic with respect to seed: the same expression,
// stats, and seed always produce the same result. Dice terms are gathered in
// expression order and rolled through a single RollDice request. Stats match
// case-insensitively; referencing a stat the map does not define fails with
// ErrUnknownStat.
func (e Expression) Roll(stats map[string]int, seed int64) (ExpressionResult, error) {
	if len(e.terms) == 0 {
		return ExpressionResult{}, ErrEmptyExpression
	}

	lowered := make(map[string]int, len(stats))
	for name, value := range stats {
		lowered[strings.ToLower(name)] = value
	}

	var specs []DiceSpec
	for _, t := range e.terms {
		if t.kind == termDice {
			specs = append(specs, DiceSpec{Sides: t.sides, Count: t.count})
		}
	}
	var rolls []DieRoll
	if len(specs) > 0 {
		rolled, err := RollDice(RollRequest{Dice: specs, Seed: seed})
		if err != nil {
			return ExpressionResult{}, err
		}
		rolls = rolled.Rolls
	}

	result := ExpressionResult{Expression: e.raw}
	var breakdown strings.Builder
	next := 0

	for i, t := range e.terms {
		if i > 0 || t.sign < 0 {
			if t.sign < 0 {
				breakdown.WriteString(" - ")
			} else {
				breakdown.WriteString(" + ")
			}
		}

		switch t.kind {
		case termDice:
			roll := rolls[next]
			next++
			result.Rolls = append(result.Rolls, roll)
			result.Total += t.sign * roll.Total
			fmt.Fprintf(&breakdown, "%dd%d%s", t.count, t.sides, formatResults(roll.Results))

		case termConstant:
			result.Total += t.sign * t.value
			fmt.Fprintf(&breakdown, "%d", t.value)

		case termStat:
			value, ok := lowered[strings.ToLower(t.stat)]
			if !ok {
				return ExpressionResult{}, fmt.Errorf("%w: %q", ErrUnknownStat, t.stat)
			}
			result.Total += t.sign * value
			fmt.Fprintf(&breakdown, "%s(%d)", t.stat, value)
		}
	}

	result.Breakdown = breakdown.String()
	return result, nil
}

func formatResults(results []int) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = strconv.Itoa(r)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

type parser struct {
	input string
	pos   int
}

func (p *parser) parse() ([]term, error) {
	var terms []term
	sign := 1
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			if len(terms) == 0 {
				return nil, fmt.Errorf("no terms")
			}
			return nil, fmt.Errorf("trailing operator")
		}

		t, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		t.sign = sign
		terms = append(terms, t)

		p.skipSpace()
		if p.pos >= len(p.input) {
			return terms, nil
		}
		switch p.input[p.pos] {
		case '+':
			sign = 1
		case '-':
			sign = -1
		default:
			return nil, fmt.Errorf("unexpected %q at position %d", p.input[p.pos], p.pos)
		}
		p.pos++
	}
}

func (p *parser) parseTerm() (term, error) {
	start := p.pos
	if isDigit(p.peek()) {
		digits := p.scanDigits()
		if lower(p.peek()) != 'd' {
			value, err := strconv.Atoi(digits)
			if err != nil {
				return term{}, fmt.Errorf("constant %q: %v", digits, err)
			}
			return term{kind: termConstant, value: value}, nil
		}
		p.pos++
		return p.finishDice(digits)
	}

	if lower(p.peek()) == 'd' && isDigit(p.peekAt(1)) {
		p.pos++
		return p.finishDice("1")
	}

	if isIdentStart(p.peek()) {
		name := p.scanIdent()
		return term{kind: termStat, stat: name}, nil
	}

	return term{}, fmt.Errorf("unexpected %q at position %d", p.peek(), start)
}

func (p *parser) finishDice(countDigits string) (term, error) {
	count, err := strconv.Atoi(countDigits)
	if err != nil || count <= 0 {
		return term{}, fmt.Errorf("dice count %q must be a positive integer", countDigits)
	}
	sidesDigits := p.scanDigits()
	if sidesDigits == "" {
		return term{}, fmt.Errorf("missing die sides after %qd", countDigits)
	}
	sides, err := strconv.Atoi(sidesDigits)
	if err != nil || sides <= 0 {
		return term{}, fmt.Errorf("die sides %q must be a positive integer", sidesDigits)
	}
	return term{kind: termDice, count: count, sides: sides}, nil
}

func (p *parser) peek() byte {
	return p.peekAt(0)
}

func (p *parser) peekAt(offset int) byte {
	if p.pos+offset >= len(p.input) {
		return 0
	}
	return p.input[p.pos+offset]
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) scanDigits() string {
	start := p.pos
	for p.pos < len(p.input) && isDigit(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *parser) scanIdent() string {
	start := p.pos
	for p.pos < len(p.input) && isIdentPart(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
