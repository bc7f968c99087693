package lexer

// TokenType represents the type of token scanned from the input.
type TokenType uint8

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	WORD   // damage, 10, -0.5, models/pistol.md5mesh
	STRING // "quoted string"

	// Punctuation
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )
	EQUALS // =
	SEMI   // ;
	COMMA  // ,
)

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	WORD:   "WORD",
	STRING: "STRING",

	LBRACE: "{",
	RBRACE: "}",
	LPAREN: "(",
	RPAREN: ")",
	EQUALS: "=",
	SEMI:   ";",
	COMMA:  ",",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsPunct reports whether t is a single-character punctuation token.
func (t TokenType) IsPunct() bool {
	return t >= LBRACE && t <= COMMA
}

// Token represents a lexical token with zero-copy semantics.
// Instead of storing the token text, we store byte offsets into the source.
type Token struct {
	Type   TokenType
	Start  int // Byte offset into source buffer
	End    int // End offset (exclusive)
	Line   int // Line number (1-indexed)
	Column int // Column number (1-indexed)
}

// String materializes the raw token text from the source buffer.
// For STRING tokens this includes the quotes; see Unquote.
func (t Token) String(source []byte) string {
	if t.Start >= len(source) || t.End > len(source) || t.Start > t.End {
		return ""
	}
	return string(source[t.Start:t.End])
}

// Bytes returns a zero-copy view of the token text.
func (t Token) Bytes(source []byte) []byte {
	if t.Start >= len(source) || t.End > len(source) || t.Start > t.End {
		return nil
	}
	return source[t.Start:t.End]
}

// Len returns the length of the token in bytes.
func (t Token) Len() int {
	return t.End - t.Start
}
