package diffview

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Token is a syntax-highlighted chunk of a line.
type Token struct {
	Text  string
	Color string // ANSI color string, empty for default
}

// HighlightedLine is one line's tokens.
type HighlightedLine struct {
	Tokens []Token
}

// Plain returns the concatenated plain text.
func (hl HighlightedLine) Plain() string {
	var b strings.Builder
	for _, t := range hl.Tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Highlight applies syntax highlighting to the file's preview lines, one
// HighlightedLine per input line. Hunk headers pass through unstyled;
// unknown file types fall back to plain text.
func Highlight(path string, lines []Line) []HighlightedLine {
	lexer := lexerForFile(path)
	if lexer == nil {
		return plainLines(lines)
	}

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	iterator, err := lexer.Tokenise(nil, strings.Join(texts, "\n"))
	if err != nil {
		return plainLines(lines)
	}

	style := styles.Get("dracula")
	if style == nil {
		style = styles.Fallback
	}

	result := make([]HighlightedLine, 0, len(lines))
	current := HighlightedLine{}
	for _, token := range iterator.Tokens() {
		parts := strings.Split(token.Value, "\n")
		for i, part := range parts {
			if i > 0 {
				result = append(result, current)
				current = HighlightedLine{}
			}
			if part != "" {
				current.Tokens = append(current.Tokens, Token{
					Text:  part,
					Color: tokenColor(style, token.Type),
				})
			}
		}
	}
	result = append(result, current)

	for len(result) < len(lines) {
		result = append(result, HighlightedLine{Tokens: []Token{{Text: ""}}})
	}
	return result
}

func plainLines(lines []Line) []HighlightedLine {
	result := make([]HighlightedLine, len(lines))
	for i, l := range lines {
		result[i] = HighlightedLine{Tokens: []Token{{Text: l.Text}}}
	}
	return result
}

func lexerForFile(path string) chroma.Lexer {
	lexer := lexers.Match(path)
	if lexer == nil {
		ext := filepath.Ext(path)
		if ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	if lexer != nil {
		lexer = chroma.Coalesce(lexer)
	}
	return lexer
}

func tokenColor(style *chroma.Style, tt chroma.TokenType) string {
	entry := style.Get(tt)
	if entry.Colour.IsSet() {
		return entry.Colour.String()
	}
	return ""
}
