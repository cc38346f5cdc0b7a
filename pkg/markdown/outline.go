// Package markdown builds a structural outline of a markdown document:
// headings, links and fenced code blocks with file line numbers. Content of
// code blocks is never mistaken for headings or links.
package markdown

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is an ATX or setext heading
type Heading struct {
	Level int
	Text  string
	Line  int
	// Pos is the position of the element in document order.
	Pos int
}

// Link is an inline link or image destination
type Link struct {
	Destination string
	Image       bool
	Line        int
	Pos         int
}

// CodeBlock is a fenced or indented code block
type CodeBlock struct {
	Info      string
	StartLine int
	EndLine   int
	Pos       int
}

// Outline is the structure of a markdown document
type Outline struct {
	Headings   []Heading
	Links      []Link
	CodeBlocks []CodeBlock
}

// Parse builds the outline of src. lineOffset is added to every line number
// so callers parsing a body that follows front-matter get file lines.
func Parse(src string, lineOffset int) *Outline {
	source := []byte(src)
	lines := newLineIndex(source)

	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	o := &Outline{}
	pos := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			pos++
			o.Headings = append(o.Headings, Heading{
				Level: node.Level,
				Text:  strings.TrimSpace(plainText(node, source)),
				Line:  lines.lineOf(blockStart(node)) + lineOffset,
				Pos:   pos,
			})
		case *ast.FencedCodeBlock:
			pos++
			o.CodeBlocks = append(o.CodeBlocks, fencedBlock(node, source, lines, lineOffset, pos))
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			pos++
			start := lines.lineOf(blockStart(node))
			o.CodeBlocks = append(o.CodeBlocks, CodeBlock{
				StartLine: start + lineOffset,
				EndLine:   start + node.Lines().Len() - 1 + lineOffset,
				Pos:       pos,
			})
			return ast.WalkSkipChildren, nil
		case *ast.Link:
			pos++
			o.Links = append(o.Links, Link{
				Destination: string(node.Destination),
				Line:        lines.lineOf(inlineStart(node)) + lineOffset,
				Pos:         pos,
			})
		case *ast.Image:
			pos++
			o.Links = append(o.Links, Link{
				Destination: string(node.Destination),
				Image:       true,
				Line:        lines.lineOf(inlineStart(node)) + lineOffset,
				Pos:         pos,
			})
		}
		return ast.WalkContinue, nil
	})

	return o
}

func fencedBlock(node *ast.FencedCodeBlock, source []byte, lines lineIndex, offset, pos int) CodeBlock {
	cb := CodeBlock{Pos: pos}
	if node.Info != nil {
		cb.Info = strings.TrimSpace(string(node.Info.Segment.Value(source)))
		cb.StartLine = lines.lineOf(node.Info.Segment.Start)
	}

	n := node.Lines().Len()
	if n > 0 {
		first := lines.lineOf(node.Lines().At(0).Start)
		last := lines.lineOf(node.Lines().At(n - 1).Start)
		if cb.StartLine == 0 {
			cb.StartLine = first - 1
		}
		cb.EndLine = last + 1
	} else if cb.StartLine > 0 {
		cb.EndLine = cb.StartLine + 1
	}

	if cb.StartLine > 0 {
		cb.StartLine += offset
		cb.EndLine += offset
	}
	return cb
}

func blockStart(n ast.Node) int {
	if n.Lines().Len() > 0 {
		return n.Lines().At(0).Start
	}
	return -1
}

// inlineStart finds the source offset of the first text inside an inline
// node, falling back to the enclosing block.
func inlineStart(n ast.Node) int {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			return t.Segment.Start
		}
		if s := inlineStart(c); s >= 0 {
			return s
		}
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == ast.TypeBlock && p.Lines().Len() > 0 {
			return p.Lines().At(0).Start
		}
	}
	return -1
}

func plainText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// FindHeading returns the first heading with level <= maxLevel whose text
// matches re, or nil.
func (o *Outline) FindHeading(maxLevel int, re *regexp.Regexp) *Heading {
	for i := range o.Headings {
		h := &o.Headings[i]
		if h.Level <= maxLevel && re.MatchString(h.Text) {
			return h
		}
	}
	return nil
}

// HasHeading reports whether a heading with level <= maxLevel matches re
func (o *Outline) HasHeading(maxLevel int, re *regexp.Regexp) bool {
	return o.FindHeading(maxLevel, re) != nil
}

// HeadingsAfter returns the headings that follow pos in document order
func (o *Outline) HeadingsAfter(pos int) []Heading {
	var out []Heading
	for _, h := range o.Headings {
		if h.Pos > pos {
			out = append(out, h)
		}
	}
	return out
}

// CodeBlocksAfter returns the code blocks that follow pos in document order
func (o *Outline) CodeBlocksAfter(pos int) []CodeBlock {
	var out []CodeBlock
	for _, c := range o.CodeBlocks {
		if c.Pos > pos {
			out = append(out, c)
		}
	}
	return out
}

// SectionEnd returns the position of the next heading at the same or a
// higher level than h, or -1 when the section runs to the end.
func (o *Outline) SectionEnd(h Heading) int {
	for _, next := range o.Headings {
		if next.Pos > h.Pos && next.Level <= h.Level {
			return next.Pos
		}
	}
	return -1
}

// InCodeBlock reports whether a file line falls inside a known code block
func (o *Outline) InCodeBlock(line int) bool {
	for _, c := range o.CodeBlocks {
		if c.StartLine > 0 && line >= c.StartLine && line <= c.EndLine {
			return true
		}
	}
	return false
}

type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	idx := lineIndex{0}
	for i, b := range src {
		if b == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

// lineOf converts a byte offset to a 1-based line number; negative offsets
// map to 0.
func (l lineIndex) lineOf(offset int) int {
	if offset < 0 {
		return 0
	}
	return sort.Search(len(l), func(i int) bool { return l[i] > offset })
}
