package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "  Orange Savings\n\t Account ", expected: "Orange Savings Account"},
		{input: "$1,000.00 ", expected: "$1,000.00"},
		{input: "\n\n", expected: ""},
		{input: "+$12.00  (16.1%)", expected: "+$12.00 (16.1%)"},
	}

	for _, row := range table {
		require.Equal(t, row.expected, Clean(row.input))
	}
}

func TestTexts(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<table><tr>
			<td> Symbol </td>
			<td></td>
			<td><b>Cost</b>/Share</td>
		</tr></table>`))
	require.NoError(t, err)

	cells := doc.Find("td")
	require.Equal(t, []string{"Symbol", "", "Cost/Share"}, Texts(cells))
	require.Equal(t, []string{"Symbol", "Cost/Share"}, NonEmptyTexts(cells))
}
