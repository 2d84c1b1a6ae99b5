package markdown

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var whitespaceRun = regexp.MustCompile(`[ \t\r\f\v]+`)

// ExtractText returns the document's visible body text, whitespace-normalized:
// runs of horizontal whitespace collapsed to one space, leading/trailing
// space trimmed per line, blank lines between paragraphs preserved singly.
func ExtractText(doc *goquery.Document) string {
	raw := doc.Find("body").Text()
	lines := strings.Split(raw, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(whitespaceRun.ReplaceAllString(line, " "))
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// ToMarkdown converts rendered HTML to Markdown, resolving relative links
// against pageURL.
func ToMarkdown(html, pageURL string) (string, error) {
	converter := md.NewConverter(pageURL, true, nil)
	return converter.ConvertString(html)
}
