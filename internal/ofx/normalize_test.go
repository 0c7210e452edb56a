package ofx

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool {
	return a.Equal(b)
})

func sampleDocument() Document {
	return Document{
		Securities: []Security{
			{Id: "714265105", Ticker: "PERL", Name: "Perl, Inc."},
			{Id: "594918104", Ticker: "MSFT", Name: "Microsoft Corp."},
		},
		Buys: []Entry{{
			SecurityId: "714265105",
			FITID:      "B-1",
			TradeDate:  date(2024, time.January, 5),
			Total:      dec("-233.71"),
			Commission: dec("4.00"),
			UnitPrice:  dec("73.12"),
			Units:      dec("3.1416"),
		}},
		Sells: []Entry{{
			SecurityId: "594918104",
			FITID:      "S-1",
			TradeDate:  date(2024, time.January, 10),
			Total:      dec("796.00"),
			Commission: dec("4.00"),
			UnitPrice:  dec("400.00"),
			Units:      dec("-2"),
		}},
		Reinvestments: []Entry{{
			SecurityId: "714265105",
			FITID:      "R-1",
			TradeDate:  date(2024, time.February, 1),
			Total:      dec("-1.50"),
			Commission: dec("0.25"),
			UnitPrice:  dec("86.52"),
			Units:      dec("0.0173"),
		}},
	}
}

func TestNormalize(t *testing.T) {
	txns, err := Normalize(sampleDocument())
	require.NoError(t, err)

	expected := []Transaction{
		{
			Type:       TransactionBuy,
			Symbol:     "PERL",
			SecurityId: "714265105",
			TradeDate:  date(2024, time.January, 5),
			Total:      dec("233.71"),
			Commission: dec("4.00"),
			UnitPrice:  dec("73.12"),
			Units:      dec("3.1416"),
			FITID:      "B-1",
		},
		{
			Type:       TransactionSell,
			Symbol:     "MSFT",
			SecurityId: "594918104",
			TradeDate:  date(2024, time.January, 10),
			Total:      dec("-796.00"),
			Commission: dec("4.00"),
			UnitPrice:  dec("400.00"),
			Units:      dec("-2"),
			FITID:      "S-1",
		},
		{
			Type:       TransactionReinvest,
			Symbol:     "PERL",
			SecurityId: "714265105",
			TradeDate:  date(2024, time.February, 1),
			Total:      dec("1.50"),
			// reinvestment commissions are passed through untouched
			Commission: dec("0.25"),
			UnitPrice:  dec("86.52"),
			Units:      dec("0.0173"),
			FITID:      "R-1",
		},
	}
	if diff := cmp.Diff(expected, txns, decimalComparer); diff != "" {
		t.Fatalf("normalized transactions mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeEmptySections(t *testing.T) {
	txns, err := Normalize(Document{})
	require.NoError(t, err)
	require.Empty(t, txns)

	doc := sampleDocument()
	doc.Buys = nil
	doc.Reinvestments = nil
	txns, err = Normalize(doc)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, TransactionSell, txns[0].Type)
}

func TestNormalizeUnknownSecurity(t *testing.T) {
	doc := sampleDocument()
	doc.Securities = doc.Securities[:1]
	// a listed security without a ticker is as good as unknown
	doc.Securities = append(doc.Securities, Security{Id: "594918104", Name: "Microsoft Corp."})

	txns, err := Normalize(doc)
	require.ErrorIs(t, err, ErrUnknownSecurity)
	require.Len(t, txns, 3)

	require.False(t, txns[0].Unresolved)
	require.Equal(t, "PERL", txns[0].Symbol)

	require.True(t, txns[1].Unresolved)
	require.Equal(t, "594918104", txns[1].Symbol)
	require.True(t, txns[1].Total.Equal(dec("-796.00")))
}

func TestNormalizeDoesNotSort(t *testing.T) {
	doc := sampleDocument()
	doc.Buys[0].TradeDate = date(2024, time.March, 1)

	txns, err := Normalize(doc)
	require.NoError(t, err)
	require.Equal(t, "B-1", txns[0].FITID)

	SortByDate(txns)
	require.Equal(t, []string{"S-1", "R-1", "B-1"}, []string{txns[0].FITID, txns[1].FITID, txns[2].FITID})
}

func TestParseStatement(t *testing.T) {
	f, err := os.Open("testdata/statement.ofx")
	require.NoError(t, err)
	defer f.Close()

	doc, err := Parse(f)
	require.NoError(t, err)
	require.Len(t, doc.Securities, 2)
	require.Len(t, doc.Buys, 1)
	require.Len(t, doc.Sells, 1)
	require.Len(t, doc.Reinvestments, 1)

	txns, err := Normalize(doc)
	require.NoError(t, err)
	require.Len(t, txns, 3)

	require.Equal(t, TransactionBuy, txns[0].Type)
	require.Equal(t, "PERL", txns[0].Symbol)
	require.True(t, txns[0].Total.Equal(dec("233.71")), txns[0].Total.String())
	require.True(t, txns[0].Units.Equal(dec("3.1416")), txns[0].Units.String())
	require.Equal(t, 2024, txns[0].TradeDate.Year())
	require.Equal(t, time.January, txns[0].TradeDate.Month())

	require.Equal(t, TransactionSell, txns[1].Type)
	require.Equal(t, "MSFT", txns[1].Symbol)
	require.True(t, txns[1].Total.Equal(dec("-796")), txns[1].Total.String())

	require.Equal(t, TransactionReinvest, txns[2].Type)
	require.Equal(t, "PERL", txns[2].Symbol)
	require.True(t, txns[2].Total.Equal(dec("1.5")), txns[2].Total.String())
}

func TestParseGarbage(t *testing.T) {
	_, err := ParseString("<html><body>We're sorry</body></html>")
	require.Error(t, err)
}
