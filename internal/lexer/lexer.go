// Package lexer scans raw source text into the eight-instruction token
// stream and cross-references loop brackets to their partners.
package lexer

import (
	"github.com/tapemachine/bfc/internal/ir"
)

// TokenKind identifies one of the eight instructions.
type TokenKind uint8

const (
	// IncrementPointer moves the data pointer right (`>`).
	IncrementPointer TokenKind = iota + 1
	// DecrementPointer moves the data pointer left (`<`).
	DecrementPointer
	// IncrementCell adds one to the current cell (`+`).
	IncrementCell
	// DecrementCell subtracts one from the current cell (`-`).
	DecrementCell
	// Output writes the current cell's byte (`.`).
	Output
	// Input reads one byte into the current cell (`,`).
	Input
	// LoopOpen begins a loop (`[`).
	LoopOpen
	// LoopClose ends a loop (`]`).
	LoopClose
)

// Char returns the instruction character for the kind.
func (k TokenKind) Char() byte {
	switch k {
	case IncrementPointer:
		return '>'
	case DecrementPointer:
		return '<'
	case IncrementCell:
		return '+'
	case DecrementCell:
		return '-'
	case Output:
		return '.'
	case Input:
		return ','
	case LoopOpen:
		return '['
	case LoopClose:
		return ']'
	}
	return '?'
}

// String returns the instruction character as a string.
func (k TokenKind) String() string {
	return string(k.Char())
}

// kindOf maps a source byte to its instruction kind.
// Every other byte is a comment.
func kindOf(b byte) (TokenKind, bool) {
	switch b {
	case '>':
		return IncrementPointer, true
	case '<':
		return DecrementPointer, true
	case '+':
		return IncrementCell, true
	case '-':
		return DecrementCell, true
	case '.':
		return Output, true
	case ',':
		return Input, true
	case '[':
		return LoopOpen, true
	case ']':
		return LoopClose, true
	}
	return 0, false
}

// Token is one instruction with its position in the raw source. For
// bracket tokens, Match holds the stream index of the partner bracket;
// for all other tokens it is -1.
type Token struct {
	Kind  TokenKind
	Pos   ir.Position
	Match int
}

// Scan tokenizes raw source text in a single left-to-right pass,
// discarding non-instruction bytes. Bracket tokens are cross-referenced
// via a stack of open-loop indices. Scan fails with *UnbalancedLoopError
// when a close appears with no loop open, or when the source ends with
// loops still open (the first unclosed bracket is reported). No other
// validation is performed.
func Scan(src []byte) ([]Token, error) {
	var (
		tokens []Token
		open   []int // token indices of unmatched LoopOpen
	)
	line, col := 1, 1

	for off := 0; off < len(src); off++ {
		b := src[off]
		if kind, ok := kindOf(b); ok {
			tok := Token{
				Kind:  kind,
				Pos:   ir.Position{Offset: off, Line: line, Col: col},
				Match: -1,
			}
			idx := len(tokens)

			switch kind {
			case LoopOpen:
				open = append(open, idx)
			case LoopClose:
				if len(open) == 0 {
					return nil, &UnbalancedLoopError{Bracket: ']', Pos: tok.Pos}
				}
				partner := open[len(open)-1]
				open = open[:len(open)-1]
				tok.Match = partner
			}

			tokens = append(tokens, tok)
			if kind == LoopClose {
				tokens[tok.Match].Match = idx
			}
		}

		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	if len(open) > 0 {
		return nil, &UnbalancedLoopError{Bracket: '[', Pos: tokens[open[0]].Pos}
	}
	return tokens, nil
}

// Canonical returns the filtered instruction text for a token stream.
// It is the basis of program identity hashing: two source files with the
// same instruction stream share a canonical form.
func Canonical(tokens []Token) string {
	b := make([]byte, len(tokens))
	for i, t := range tokens {
		b[i] = t.Kind.Char()
	}
	return string(b)
}
