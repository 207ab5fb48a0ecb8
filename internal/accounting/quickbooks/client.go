// Package quickbooks wraps the external accounting API behind a small client
// interface so the sync service can be tested against a fake. The real
// implementation speaks JSON over HTTPS to the provider's company-scoped
// endpoints.
package quickbooks

import "context"

// TokenPair is what the token endpoint returns for both the authorization
// code grant and the refresh grant.
type TokenPair struct {
	AccessToken string
	// RefreshToken rotates on every refresh; the caller must persist the
	// new value or the next refresh fails.
	RefreshToken     string
	ExpiresIn        int64
	RefreshExpiresIn int64
}

// Auth scopes a call to one tenant's company file.
type Auth struct {
	AccessToken string
	RealmID     string
}

// EntityRef is an external reference entity (customer, vendor, item, or
// account) resolved by natural key.
type EntityRef struct {
	ID   string
	Name string
}

// Item creates a sellable service item tied to an income account.
type Item struct {
	Name            string
	IncomeAccountID string
}

// Account creates a ledger account. AccountType follows the provider's
// vocabulary ("Income", "Expense", "Other Current Asset").
type Account struct {
	Name        string
	AccountType string
}

// Line is one sales line on an invoice or sales receipt.
type Line struct {
	Amount      float64
	Description string
	ItemID      string
}

type Invoice struct {
	CustomerID  string
	DocNumber   string
	TxnDate     string
	Lines       []Line
	PrivateNote string
}

// Payment applies money against an existing invoice and deposits it into
// the given account.
type Payment struct {
	CustomerID         string
	InvoiceID          string
	DepositToAccountID string
	TxnDate            string
	TotalAmount        float64
}

type SalesReceipt struct {
	CustomerID         string
	DocNumber          string
	TxnDate            string
	DepositToAccountID string
	Lines              []Line
	PrivateNote        string
}

// BillLine is one account-based expense line on a bill.
type BillLine struct {
	Amount      float64
	Description string
	AccountID   string
}

type Bill struct {
	VendorID    string
	TxnDate     string
	Lines       []BillLine
	PrivateNote string
}

// Client is the accounting provider surface the bridge needs. Find* methods
// query by natural key and return nil when nothing matches; Create* document
// methods return the external document id.
type Client interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error)

	FindCustomer(ctx context.Context, auth Auth, name string) (*EntityRef, error)
	CreateCustomer(ctx context.Context, auth Auth, name string) (*EntityRef, error)
	FindVendor(ctx context.Context, auth Auth, name string) (*EntityRef, error)
	CreateVendor(ctx context.Context, auth Auth, name string) (*EntityRef, error)
	FindItem(ctx context.Context, auth Auth, name string) (*EntityRef, error)
	CreateItem(ctx context.Context, auth Auth, item Item) (*EntityRef, error)
	FindAccount(ctx context.Context, auth Auth, name string) (*EntityRef, error)
	CreateAccount(ctx context.Context, auth Auth, account Account) (*EntityRef, error)

	CreateInvoice(ctx context.Context, auth Auth, invoice Invoice) (string, error)
	CreatePayment(ctx context.Context, auth Auth, payment Payment) (string, error)
	CreateSalesReceipt(ctx context.Context, auth Auth, receipt SalesReceipt) (string, error)
	CreateBill(ctx context.Context, auth Auth, bill Bill) (string, error)
}
