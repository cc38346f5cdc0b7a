// Package mdclean strips web-conversion debris from Markdown documents:
// leftover HTML, navigation chrome, anchors and blank-line runs. Fenced
// code blocks are never touched.
package mdclean

import (
	"context"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/devkit-tools/devkit-validator/pkg/logger"
)

var (
	reScript     = regexp.MustCompile(`(?i)<script[\s\S]*?</script>`)
	reStyle      = regexp.MustCompile(`(?i)<style[\s\S]*?</style>`)
	reComment    = regexp.MustCompile(`<!--[\s\S]*?-->`)
	reDataImage  = regexp.MustCompile(`(?i)!\[[^\]]*\]\(data:image[^)]+\)`)
	reTOC        = regexp.MustCompile(`(?im)(^\s*\[toc\]\s*$)|(^\s*Table of contents\s*$)|(^\s*Contents\s*$)`)
	rePermalink  = regexp.MustCompile(`(?im)^\s*Permalink\s*$`)
	reEditOn     = regexp.MustCompile(`(?i)Edit on GitHub|View on GitHub|Edit this page|Open in GitHub`)
	reBackToTop  = regexp.MustCompile(`(?i)Back to top|Back to TOC|Back to Contents`)
	reCopyright  = regexp.MustCompile(`(?i)©|Copyright|All rights reserved`)
	reAnchor     = regexp.MustCompile(`\{#[-a-zA-Z0-9_]+\}`)
	reTag        = regexp.MustCompile(`<[^>]+>`)
	reTrailingWS = regexp.MustCompile(`(?m)[ \t]+$`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reHTMLStart  = regexp.MustCompile(`(?i)^\s*(<!doctype\s+html|<html[\s>])`)

	entities = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
)

// IsHTMLPage reports whether text is a whole HTML document rather than
// Markdown with some inline tags.
func IsHTMLPage(text string) bool {
	return reHTMLStart.MatchString(text)
}

// Clean returns the cleaned document. Whole HTML pages are converted to
// Markdown first.
func Clean(ctx context.Context, text string) string {
	if IsHTMLPage(text) {
		converted, err := md.NewConverter("", true, nil).ConvertString(text)
		if err != nil {
			logger.G(ctx).WithError(err).Warn("failed to convert HTML page, cleaning it as text")
		} else {
			text = converted
		}
	}

	var b strings.Builder
	for _, s := range splitFences(text) {
		if s.code {
			b.WriteString(s.text)
		} else {
			b.WriteString(cleanProse(s.text))
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func cleanProse(text string) string {
	text = reScript.ReplaceAllString(text, "")
	text = reStyle.ReplaceAllString(text, "")
	text = reComment.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = reDataImage.ReplaceAllString(text, "")
	text = reTOC.ReplaceAllString(text, "")
	text = rePermalink.ReplaceAllString(text, "")
	text = reEditOn.ReplaceAllString(text, "")
	text = reBackToTop.ReplaceAllString(text, "")
	text = reCopyright.ReplaceAllString(text, "")
	text = reAnchor.ReplaceAllString(text, "")
	text = reTag.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "¶", "")
	text = entities.Replace(text)
	text = reTrailingWS.ReplaceAllString(text, "")
	return reMultiBlank.ReplaceAllString(text, "\n\n")
}

type segment struct {
	text string
	code bool
}

// splitFences cuts text into alternating prose and fenced-code segments.
// An unterminated fence runs to the end of the document.
func splitFences(text string) []segment {
	var segments []segment
	var cur strings.Builder
	var fence string

	flush := func(code bool) {
		if cur.Len() > 0 {
			segments = append(segments, segment{text: cur.String(), code: code})
			cur.Reset()
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		switch {
		case fence == "" && (strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")):
			flush(false)
			fence = trimmed[:3]
			cur.WriteString(line)
		case fence != "" && strings.HasPrefix(trimmed, fence):
			cur.WriteString(line)
			flush(true)
			fence = ""
		default:
			cur.WriteString(line)
		}
	}
	flush(fence != "")
	return segments
}
