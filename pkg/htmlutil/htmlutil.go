package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node under node, without inserting any
// separators between them.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		// nbsp is printable but we treat it as a regular space
		if c == '\u00a0' {
			newStr.WriteRune(' ')
			continue
		}
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// Clean removes non-printable characters, trims the string and collapses
// inner runs of whitespace into a single space.
func Clean(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// Texts returns the cleaned text of every node in the selection.
func Texts(sel *goquery.Selection) []string {
	out := make([]string, len(sel.Nodes))
	for i, n := range sel.Nodes {
		out[i] = Clean(GetText(n))
	}
	return out
}

// NonEmptyTexts is Texts but it skips nodes whose cleaned text is empty.
func NonEmptyTexts(sel *goquery.Selection) []string {
	var out []string
	for _, n := range sel.Nodes {
		text := Clean(GetText(n))
		if text == "" {
			continue
		}
		out = append(out, text)
	}
	return out
}
