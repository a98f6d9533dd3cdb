// Package htmltext renders HTML email bodies as readable plain text.
package htmltext

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// skipElements are elements whose text content is discarded.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"title":    true,
}

// lineElements end the current line.
var lineElements = map[string]bool{
	"div": true, "li": true, "tr": true, "section": true, "article": true,
	"header": true, "footer": true, "nav": true, "main": true, "aside": true,
	"figure": true, "figcaption": true, "details": true, "summary": true,
	"dt": true, "dd": true, "center": true,
}

// paragraphElements are separated from their surroundings by a blank line.
var paragraphElements = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "blockquote": true, "pre": true, "table": true, "ul": true,
	"ol": true, "hr": true,
}

type converter struct {
	z   *html.Tokenizer
	out strings.Builder

	skipDepth    int
	preDepth     int
	pendingSpace bool
	newlines     int

	href       string
	linkOffset int
}

// Convert reads HTML from r and writes its text content to w. Block
// elements become line breaks, runs of whitespace collapse to a single
// space, and links whose text differs from their target are followed by
// the target in parentheses.
func Convert(w io.Writer, r io.Reader) error {
	c := &converter{z: html.NewTokenizer(r)}
	if err := c.run(); err != nil {
		return err
	}
	_, err := io.WriteString(w, strings.TrimSpace(c.out.String()))
	return err
}

// FromString converts an HTML string to plain text.
func FromString(s string) string {
	var b strings.Builder
	// strings.Reader and strings.Builder never fail.
	_ = Convert(&b, strings.NewReader(s))
	return b.String()
}

func (c *converter) run() error {
	for {
		switch c.z.Next() {
		case html.ErrorToken:
			if err := c.z.Err(); !errors.Is(err, io.EOF) {
				return err
			}
			return nil

		case html.StartTagToken:
			tn, hasAttr := c.z.TagName()
			c.startTag(string(tn), hasAttr, false)

		case html.SelfClosingTagToken:
			tn, hasAttr := c.z.TagName()
			c.startTag(string(tn), hasAttr, true)

		case html.EndTagToken:
			tn, _ := c.z.TagName()
			c.endTag(string(tn))

		case html.TextToken:
			if c.skipDepth == 0 {
				c.text(c.z.Text())
			}
		}
	}
}

func (c *converter) startTag(name string, hasAttr, selfClosing bool) {
	if skipElements[name] {
		if !selfClosing {
			c.skipDepth++
		}
		return
	}
	if c.skipDepth > 0 {
		return
	}

	switch {
	case name == "br":
		c.lineBreak(1)
	case paragraphElements[name]:
		c.lineBreak(2)
	case lineElements[name]:
		c.lineBreak(1)
	}

	switch name {
	case "li":
		c.write("-")
		c.pendingSpace = true
	case "pre":
		if !selfClosing {
			c.preDepth++
		}
	case "td", "th":
		c.pendingSpace = true
	case "img":
		if alt := c.attr(hasAttr, "alt"); alt != "" {
			c.text([]byte(alt))
		}
	case "a":
		c.href = c.attr(hasAttr, "href")
		c.linkOffset = c.out.Len()
	}
}

func (c *converter) endTag(name string) {
	if skipElements[name] {
		if c.skipDepth > 0 {
			c.skipDepth--
		}
		return
	}
	if c.skipDepth > 0 {
		return
	}

	switch {
	case paragraphElements[name]:
		c.lineBreak(2)
	case lineElements[name]:
		c.lineBreak(1)
	}

	switch name {
	case "pre":
		if c.preDepth > 0 {
			c.preDepth--
		}
	case "a":
		c.closeLink()
	}
}

// closeLink appends the target of a link whose visible text differs from it.
func (c *converter) closeLink() {
	href := c.href
	c.href = ""
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return
	}
	if c.linkOffset > c.out.Len() {
		return
	}
	if strings.TrimSpace(c.out.String()[c.linkOffset:]) == href {
		return
	}
	c.pendingSpace = true
	c.write("(" + href + ")")
}

func (c *converter) attr(hasAttr bool, key string) string {
	for hasAttr {
		k, v, more := c.z.TagAttr()
		if string(k) == key {
			return string(v)
		}
		hasAttr = more
	}
	return ""
}

func (c *converter) text(b []byte) {
	if c.preDepth > 0 {
		c.flushSpace()
		c.out.Write(b)
		if len(b) > 0 {
			c.newlines = 0
			if b[len(b)-1] == '\n' {
				c.newlines = 1
			}
		}
		return
	}

	start := -1
	for i, ch := range b {
		if isSpace(ch) {
			if start >= 0 {
				c.write(string(b[start:i]))
				start = -1
			}
			c.pendingSpace = true
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		c.write(string(b[start:]))
	}
}

// write emits s on the current line, preceded by a pending space.
func (c *converter) write(s string) {
	if s == "" {
		return
	}
	c.flushSpace()
	c.out.WriteString(s)
	c.newlines = 0
}

func (c *converter) flushSpace() {
	if c.pendingSpace && c.newlines == 0 && c.out.Len() > 0 {
		c.out.WriteByte(' ')
	}
	c.pendingSpace = false
}

// lineBreak ends the current line so that at most n newlines separate it
// from the next text. Leading breaks are never emitted.
func (c *converter) lineBreak(n int) {
	c.pendingSpace = false
	if c.out.Len() == 0 {
		return
	}
	for c.newlines < n {
		c.out.WriteByte('\n')
		c.newlines++
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
