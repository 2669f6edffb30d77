// Package render turns assistant markdown into HTML by walking the goldmark
// AST. Only allow-listed node kinds produce markup; all text is escaped, so
// upstream text can never inject elements or attributes of its own.
package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var parser = goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()

// Markdown renders text as allow-listed HTML.
func Markdown(src string) template.HTML {
	source := []byte(src)
	doc := parser.Parse(text.NewReader(source))

	r := &renderer{source: source}
	r.children(doc)
	return template.HTML(r.buf.String())
}

type renderer struct {
	source []byte
	buf    bytes.Buffer
}

func (r *renderer) children(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.node(c)
	}
}

func (r *renderer) wrap(open, close string, n ast.Node) {
	r.buf.WriteString(open)
	r.children(n)
	r.buf.WriteString(close)
}

func (r *renderer) escape(b []byte) {
	r.buf.WriteString(html.EscapeString(string(b)))
}

// text undoes backslash escapes and resolves entity references before
// escaping, so "\*" shows as "*" and "&amp;" as "&".
func (r *renderer) text(b []byte) {
	b = util.UnescapePunctuations(b)
	b = util.ResolveNumericReferences(b)
	b = util.ResolveEntityNames(b)
	r.escape(b)
}

func (r *renderer) node(n ast.Node) {
	switch n := n.(type) {
	case *ast.Heading:
		level := n.Level
		if level > 3 {
			level = 3
		}
		r.wrap(fmt.Sprintf(`<h%d class="md-h%d">`, level, level), fmt.Sprintf("</h%d>\n", level), n)

	case *ast.Paragraph:
		r.wrap(`<p class="md-p">`, "</p>\n", n)

	case *ast.TextBlock:
		r.children(n)
		if n.NextSibling() != nil {
			r.buf.WriteByte('\n')
		}

	case *ast.List:
		if !n.IsOrdered() {
			r.wrap("<ul class=\"md-ul\">\n", "</ul>\n", n)
			break
		}
		open := "<ol class=\"md-ol\">\n"
		if n.Start > 1 {
			open = fmt.Sprintf("<ol class=\"md-ol\" start=\"%d\">\n", n.Start)
		}
		r.wrap(open, "</ol>\n", n)

	case *ast.ListItem:
		r.wrap(`<li class="md-li">`, "</li>\n", n)

	case *ast.Blockquote:
		r.wrap("<blockquote class=\"md-quote\">\n", "</blockquote>\n", n)

	case *ast.ThematicBreak:
		r.buf.WriteString("<hr class=\"md-hr\">\n")

	case *ast.FencedCodeBlock:
		r.codeBlock(n)

	case *ast.CodeBlock:
		r.codeBlock(n)

	case *ast.HTMLBlock:
		// Raw markup is shown as text, never interpreted.
		r.buf.WriteString(`<p class="md-p">`)
		r.lines(n)
		if n.HasClosure() {
			r.escape(n.ClosureLine.Value(r.source))
		}
		r.buf.WriteString("</p>\n")

	case *ast.Emphasis:
		if n.Level >= 2 {
			r.wrap(`<strong class="md-strong">`, "</strong>", n)
		} else {
			r.wrap(`<em class="md-em">`, "</em>", n)
		}

	case *ast.CodeSpan:
		r.wrap(`<code class="md-code">`, "</code>", n)

	case *ast.Text:
		if n.IsRaw() {
			r.escape(n.Segment.Value(r.source))
		} else {
			r.text(n.Segment.Value(r.source))
		}
		switch {
		case n.HardLineBreak():
			r.buf.WriteString("<br>\n")
		case n.SoftLineBreak():
			r.buf.WriteByte('\n')
		}

	case *ast.String:
		r.escape(n.Value)

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			r.escape(seg.Value(r.source))
		}

	case *ast.AutoLink:
		r.escape(n.Label(r.source))

	case *east.Table:
		r.table(n)

	default:
		// Links, images and anything unknown contribute their text only.
		r.children(n)
	}
}

func (r *renderer) lines(n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		r.escape(seg.Value(r.source))
	}
}

func (r *renderer) codeBlock(n ast.Node) {
	r.buf.WriteString(`<pre class="md-pre"><code>`)
	r.lines(n)
	r.buf.WriteString("</code></pre>\n")
}

func (r *renderer) table(t *east.Table) {
	r.buf.WriteString("<table class=\"md-table\">\n")
	inBody := false
	for c := t.FirstChild(); c != nil; c = c.NextSibling() {
		switch row := c.(type) {
		case *east.TableHeader:
			r.buf.WriteString("<thead>\n<tr>")
			r.cells(row, "th")
			r.buf.WriteString("</tr>\n</thead>\n")
		case *east.TableRow:
			if !inBody {
				r.buf.WriteString("<tbody>\n")
				inBody = true
			}
			r.buf.WriteString("<tr>")
			r.cells(row, "td")
			r.buf.WriteString("</tr>\n")
		}
	}
	if inBody {
		r.buf.WriteString("</tbody>\n")
	}
	r.buf.WriteString("</table>\n")
}

func (r *renderer) cells(row ast.Node, tag string) {
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cell, ok := c.(*east.TableCell)
		if !ok {
			continue
		}
		class := "md-" + tag
		switch cell.Alignment {
		case east.AlignLeft, east.AlignRight, east.AlignCenter:
			class += " md-align-" + cell.Alignment.String()
		}
		r.wrap(fmt.Sprintf(`<%s class="%s">`, tag, class), fmt.Sprintf("</%s>", tag), cell)
	}
}
