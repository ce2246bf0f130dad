package qbo

import "github.com/shopspring/decimal"

// Wire types for the QuickBooks v3 REST API. Field names follow the API's
// JSON exactly; only the fields this integration touches are mapped.

type Ref struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

type PhysicalAddress struct {
	Line1                  string `json:"Line1,omitempty"`
	Line2                  string `json:"Line2,omitempty"`
	City                   string `json:"City,omitempty"`
	CountrySubDivisionCode string `json:"CountrySubDivisionCode,omitempty"`
	PostalCode             string `json:"PostalCode,omitempty"`
	Country                string `json:"Country,omitempty"`
}

type EmailAddress struct {
	Address string `json:"Address,omitempty"`
}

type TelephoneNumber struct {
	FreeFormNumber string `json:"FreeFormNumber,omitempty"`
}

type Customer struct {
	Id           string           `json:"Id,omitempty"`
	SyncToken    string           `json:"SyncToken,omitempty"`
	DisplayName  string           `json:"DisplayName,omitempty"`
	CompanyName  string           `json:"CompanyName,omitempty"`
	Active       *bool            `json:"Active,omitempty"`
	BillAddr     *PhysicalAddress `json:"BillAddr,omitempty"`
	ShipAddr     *PhysicalAddress `json:"ShipAddr,omitempty"`
	PrimaryEmail *EmailAddress    `json:"PrimaryEmailAddr,omitempty"`
	PrimaryPhone *TelephoneNumber `json:"PrimaryPhone,omitempty"`
}

type Item struct {
	Id               string `json:"Id,omitempty"`
	SyncToken        string `json:"SyncToken,omitempty"`
	Name             string `json:"Name,omitempty"`
	Type             string `json:"Type,omitempty"`
	Active           *bool  `json:"Active,omitempty"`
	IncomeAccountRef *Ref   `json:"IncomeAccountRef,omitempty"`
}

type SalesItemLineDetail struct {
	ItemRef   *Ref             `json:"ItemRef,omitempty"`
	UnitPrice *decimal.Decimal `json:"UnitPrice,omitempty"`
	Qty       *decimal.Decimal `json:"Qty,omitempty"`
}

type Line struct {
	Id                    string               `json:"Id,omitempty"`
	LineNum               int                  `json:"LineNum,omitempty"`
	Description           string               `json:"Description,omitempty"`
	Amount                *decimal.Decimal     `json:"Amount,omitempty"`
	DetailType            string               `json:"DetailType,omitempty"`
	SalesItemLineDetail   *SalesItemLineDetail `json:"SalesItemLineDetail,omitempty"`
	DescriptionLineDetail *struct{}            `json:"DescriptionLineDetail,omitempty"`
}

type Invoice struct {
	Id          string           `json:"Id,omitempty"`
	SyncToken   string           `json:"SyncToken,omitempty"`
	DocNumber   string           `json:"DocNumber,omitempty"`
	TxnDate     string           `json:"TxnDate,omitempty"`
	CustomerRef *Ref             `json:"CustomerRef,omitempty"`
	Line        []Line           `json:"Line,omitempty"`
	PrivateNote string           `json:"PrivateNote,omitempty"`
	TotalAmt    *decimal.Decimal `json:"TotalAmt,omitempty"`
	Balance     *decimal.Decimal `json:"Balance,omitempty"`
	Sparse      bool             `json:"sparse,omitempty"`
}

type Estimate struct {
	Id          string           `json:"Id,omitempty"`
	SyncToken   string           `json:"SyncToken,omitempty"`
	DocNumber   string           `json:"DocNumber,omitempty"`
	TxnDate     string           `json:"TxnDate,omitempty"`
	CustomerRef *Ref             `json:"CustomerRef,omitempty"`
	Line        []Line           `json:"Line,omitempty"`
	PrivateNote string           `json:"PrivateNote,omitempty"`
	TotalAmt    *decimal.Decimal `json:"TotalAmt,omitempty"`
}

type LinkedTxn struct {
	TxnId   string `json:"TxnId"`
	TxnType string `json:"TxnType"`
}

type PaymentLine struct {
	Amount    *decimal.Decimal `json:"Amount,omitempty"`
	LinkedTxn []LinkedTxn      `json:"LinkedTxn,omitempty"`
}

type Payment struct {
	Id          string           `json:"Id,omitempty"`
	TxnDate     string           `json:"TxnDate,omitempty"`
	TotalAmt    *decimal.Decimal `json:"TotalAmt,omitempty"`
	CustomerRef *Ref             `json:"CustomerRef,omitempty"`
	Line        []PaymentLine    `json:"Line,omitempty"`
}

// Response envelopes. Single-entity endpoints wrap the entity under its type
// name; query results come back under QueryResponse.

type customerEnvelope struct {
	Customer *Customer `json:"Customer"`
}

type itemEnvelope struct {
	Item *Item `json:"Item"`
}

type invoiceEnvelope struct {
	Invoice *Invoice `json:"Invoice"`
}

type estimateEnvelope struct {
	Estimate *Estimate `json:"Estimate"`
}

type paymentEnvelope struct {
	Payment *Payment `json:"Payment"`
}

type queryEnvelope struct {
	QueryResponse struct {
		Customer []Customer `json:"Customer"`
		Item     []Item     `json:"Item"`
	} `json:"QueryResponse"`
}

type faultEnvelope struct {
	Fault struct {
		Error []struct {
			Message string `json:"Message"`
			Detail  string `json:"Detail"`
			Code    string `json:"code"`
		} `json:"Error"`
	} `json:"Fault"`
}
