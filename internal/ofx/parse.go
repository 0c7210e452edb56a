package ofx

import (
	"fmt"
	"io"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// Parse reads a raw OFX response (SGML or XML flavored) into a Document.
func Parse(r io.Reader) (Document, error) {
	res, err := ofxgo.ParseResponse(r)
	if err != nil {
		return Document{}, fmt.Errorf("parse ofx: %w", err)
	}
	return FromResponse(res), nil
}

// ParseString is Parse for OFX text already held in memory.
func ParseString(raw string) (Document, error) {
	return Parse(strings.NewReader(raw))
}

// FromResponse flattens the investment statements and security lists of an
// ofxgo response into a single Document.
func FromResponse(res *ofxgo.Response) Document {
	var doc Document

	for _, msg := range res.SecList {
		list, ok := msg.(*ofxgo.SecurityList)
		if !ok {
			continue
		}
		for _, sec := range list.Securities {
			info, ok := secInfo(sec)
			if !ok {
				continue
			}
			doc.Securities = append(doc.Securities, Security{
				Id:     string(info.SecID.UniqueID),
				Ticker: string(info.Ticker),
				Name:   string(info.SecName),
			})
		}
	}

	for _, msg := range res.InvStmt {
		stmt, ok := msg.(*ofxgo.InvStatementResponse)
		if !ok || stmt.InvTranList == nil {
			continue
		}
		for _, tran := range stmt.InvTranList.InvTransactions {
			doc.add(tran)
		}
	}

	return doc
}

func (doc *Document) add(tran ofxgo.InvTransaction) {
	switch t := tran.(type) {
	case ofxgo.BuyStock:
		doc.Buys = append(doc.Buys, fromInvBuy(t.InvBuy))
	case *ofxgo.BuyStock:
		doc.Buys = append(doc.Buys, fromInvBuy(t.InvBuy))
	case ofxgo.BuyMF:
		doc.Buys = append(doc.Buys, fromInvBuy(t.InvBuy))
	case *ofxgo.BuyMF:
		doc.Buys = append(doc.Buys, fromInvBuy(t.InvBuy))
	case ofxgo.SellStock:
		doc.Sells = append(doc.Sells, fromInvSell(t.InvSell))
	case *ofxgo.SellStock:
		doc.Sells = append(doc.Sells, fromInvSell(t.InvSell))
	case ofxgo.SellMF:
		doc.Sells = append(doc.Sells, fromInvSell(t.InvSell))
	case *ofxgo.SellMF:
		doc.Sells = append(doc.Sells, fromInvSell(t.InvSell))
	case ofxgo.Reinvest:
		doc.Reinvestments = append(doc.Reinvestments, fromReinvest(t))
	case *ofxgo.Reinvest:
		doc.Reinvestments = append(doc.Reinvestments, fromReinvest(*t))
	case ofxgo.Income:
		doc.Other = append(doc.Other, fromIncome(t))
	case *ofxgo.Income:
		doc.Other = append(doc.Other, fromIncome(*t))
	}
}

func secInfo(sec ofxgo.Security) (ofxgo.SecInfo, bool) {
	switch s := sec.(type) {
	case ofxgo.StockInfo:
		return s.SecInfo, true
	case *ofxgo.StockInfo:
		return s.SecInfo, true
	case ofxgo.MFInfo:
		return s.SecInfo, true
	case *ofxgo.MFInfo:
		return s.SecInfo, true
	case ofxgo.DebtInfo:
		return s.SecInfo, true
	case *ofxgo.DebtInfo:
		return s.SecInfo, true
	case ofxgo.OptInfo:
		return s.SecInfo, true
	case *ofxgo.OptInfo:
		return s.SecInfo, true
	case ofxgo.OtherInfo:
		return s.SecInfo, true
	case *ofxgo.OtherInfo:
		return s.SecInfo, true
	}
	return ofxgo.SecInfo{}, false
}

func amount(a ofxgo.Amount) decimal.Decimal {
	d, err := decimal.NewFromString(a.Rat.FloatString(8))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func fromInvTran(tran ofxgo.InvTran, secId ofxgo.SecurityID) Entry {
	return Entry{
		SecurityId: string(secId.UniqueID),
		FITID:      string(tran.FiTID),
		TradeDate:  tran.DtTrade.Time,
		Memo:       string(tran.Memo),
	}
}

func fromInvBuy(buy ofxgo.InvBuy) Entry {
	e := fromInvTran(buy.InvTran, buy.SecID)
	e.Total = amount(buy.Total)
	e.Commission = amount(buy.Commission)
	e.UnitPrice = amount(buy.UnitPrice)
	e.Units = amount(buy.Units)
	return e
}

func fromInvSell(sell ofxgo.InvSell) Entry {
	e := fromInvTran(sell.InvTran, sell.SecID)
	e.Total = amount(sell.Total)
	e.Commission = amount(sell.Commission)
	e.UnitPrice = amount(sell.UnitPrice)
	e.Units = amount(sell.Units)
	return e
}

func fromReinvest(r ofxgo.Reinvest) Entry {
	e := fromInvTran(r.InvTran, r.SecID)
	e.Total = amount(r.Total)
	e.Commission = amount(r.Commission)
	e.UnitPrice = amount(r.UnitPrice)
	e.Units = amount(r.Units)
	return e
}

func fromIncome(i ofxgo.Income) Entry {
	e := fromInvTran(i.InvTran, i.SecID)
	e.Total = amount(i.Total)
	return e
}
