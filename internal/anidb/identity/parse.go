package identity

import (
	"fmt"
	"strconv"
)

// ParseError describes where and why an identifier failed to parse.
type ParseError struct {
	Input  string
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse episode identity %q at offset %d: %s", e.Input, e.Offset, e.Reason)
}

// Parse decodes text, which must match the grammar in full:
//
//	identity := seriesId ":" ["S"] episode ["-" episodeEnd]
//
// where every numeric field is one or more ASCII digits. A range whose end
// precedes its start is accepted; see Identity.Validate.
func Parse(text string) (Identity, error) {
	p := parser{input: text}
	return p.identity()
}

type parser struct {
	input string
	pos   int
}

func (p *parser) identity() (Identity, error) {
	var id Identity

	series, err := p.digits("series id")
	if err != nil {
		return Identity{}, err
	}
	id.SeriesID = canonicalDigits(series)

	if err := p.expect(':'); err != nil {
		return Identity{}, err
	}

	if p.peek() == TypeSpecial[0] {
		id.EpisodeType = TypeSpecial
		p.pos++
	}

	id.EpisodeNumber, err = p.number("episode number")
	if err != nil {
		return Identity{}, err
	}

	if p.peek() == '-' {
		p.pos++
		end, err := p.number("episode range end")
		if err != nil {
			return Identity{}, err
		}
		id.EpisodeNumberEnd = &end
	}

	if p.pos != len(p.input) {
		return Identity{}, p.fail(fmt.Sprintf("unexpected %q", p.input[p.pos]))
	}
	return id, nil
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		if p.pos >= len(p.input) {
			return p.fail(fmt.Sprintf("expected %q, found end of input", c))
		}
		return p.fail(fmt.Sprintf("expected %q, found %q", c, p.input[p.pos]))
	}
	p.pos++
	return nil
}

func (p *parser) digits(field string) (string, error) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return "", p.fail("expected digits for " + field)
	}
	return p.input[start:p.pos], nil
}

func (p *parser) number(field string) (int, error) {
	start := p.pos
	raw, err := p.digits(field)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ParseError{Input: p.input, Offset: start, Reason: field + " out of range"}
	}
	return n, nil
}

func (p *parser) fail(reason string) *ParseError {
	return &ParseError{Input: p.input, Offset: p.pos, Reason: reason}
}
