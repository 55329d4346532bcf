// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// CodeStyle is the chroma style used for exported HTML.
const CodeStyle = "github"

var htmlFormatter = chromahtml.New(chromahtml.WithClasses(true), chromahtml.TabWidth(4))

func lexerFor(code, language string) chroma.Lexer {
	lexer := lexers.Get(language)
	if lexer == nil && language == "" {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

func codeStyle() *chroma.Style {
	style := chromaStyles.Get(CodeStyle)
	if style == nil {
		style = chromaStyles.Fallback
	}
	return style
}

// HighlightHTML renders code as class-annotated chroma HTML.
func HighlightHTML(code, language string) (string, error) {
	iterator, err := lexerFor(code, language).Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenise %s code: %w", language, err)
	}
	var buf bytes.Buffer
	if err := htmlFormatter.Format(&buf, codeStyle(), iterator); err != nil {
		return "", fmt.Errorf("format code: %w", err)
	}
	return buf.String(), nil
}

// WriteCodeCSS writes the stylesheet matching HighlightHTML's classes.
func WriteCodeCSS(w io.Writer) error {
	return htmlFormatter.WriteCSS(w, codeStyle())
}
