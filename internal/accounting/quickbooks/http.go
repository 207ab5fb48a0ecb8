package quickbooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/staypoint/internal/config"
)

type entityPayload struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	DisplayName string `json:"DisplayName"`
}

func (p entityPayload) ref() *EntityRef {
	name := p.DisplayName
	if name == "" {
		name = p.Name
	}
	return &EntityRef{ID: p.ID, Name: name}
}

type httpClient struct {
	clientID     string
	clientSecret string
	tokenURL     string
	apiBaseURL   string
	client       *http.Client
}

// NewHTTPClient builds the production client from process config. Calls
// carry a fixed timeout; on expiry they fail like any other error and the
// sync service logs the outcome.
func NewHTTPClient(cfg config.Config) Client {
	return &httpClient{
		clientID:     strings.TrimSpace(cfg.QBOClientID),
		clientSecret: strings.TrimSpace(cfg.QBOClientSecret),
		tokenURL:     strings.TrimSpace(cfg.QBOTokenURL),
		apiBaseURL:   strings.TrimRight(strings.TrimSpace(cfg.QBOAPIBaseURL), "/"),
		client:       &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *httpClient) ExchangeCode(ctx context.Context, code, redirectURI string) (TokenPair, error) {
	values := url.Values{}
	values.Set("grant_type", "authorization_code")
	values.Set("code", code)
	values.Set("redirect_uri", redirectURI)
	return c.requestToken(ctx, values)
}

func (c *httpClient) RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error) {
	values := url.Values{}
	values.Set("grant_type", "refresh_token")
	values.Set("refresh_token", refreshToken)
	return c.requestToken(ctx, values)
}

func (c *httpClient) requestToken(ctx context.Context, values url.Values) (TokenPair, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return TokenPair{}, errors.New("quickbooks_not_configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return TokenPair{}, err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return TokenPair{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return TokenPair{}, decodeOAuthError(resp.Body)
	}

	var payload struct {
		AccessToken            string `json:"access_token"`
		RefreshToken           string `json:"refresh_token"`
		ExpiresIn              int64  `json:"expires_in"`
		XRefreshTokenExpiresIn int64  `json:"x_refresh_token_expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return TokenPair{}, err
	}
	if payload.AccessToken == "" {
		return TokenPair{}, errors.New("token_response_invalid")
	}
	return TokenPair{
		AccessToken:      payload.AccessToken,
		RefreshToken:     payload.RefreshToken,
		ExpiresIn:        payload.ExpiresIn,
		RefreshExpiresIn: payload.XRefreshTokenExpiresIn,
	}, nil
}

func (c *httpClient) FindCustomer(ctx context.Context, auth Auth, name string) (*EntityRef, error) {
	return c.findEntity(ctx, auth, "Customer", "DisplayName", name)
}

func (c *httpClient) CreateCustomer(ctx context.Context, auth Auth, name string) (*EntityRef, error) {
	return c.createEntity(ctx, auth, "Customer", map[string]any{"DisplayName": name})
}

func (c *httpClient) FindVendor(ctx context.Context, auth Auth, name string) (*EntityRef, error) {
	return c.findEntity(ctx, auth, "Vendor", "DisplayName", name)
}

func (c *httpClient) CreateVendor(ctx context.Context, auth Auth, name string) (*EntityRef, error) {
	return c.createEntity(ctx, auth, "Vendor", map[string]any{"DisplayName": name})
}

func (c *httpClient) FindItem(ctx context.Context, auth Auth, name string) (*EntityRef, error) {
	return c.findEntity(ctx, auth, "Item", "Name", name)
}

func (c *httpClient) CreateItem(ctx context.Context, auth Auth, item Item) (*EntityRef, error) {
	return c.createEntity(ctx, auth, "Item", map[string]any{
		"Name": item.Name,
		"Type": "Service",
		"IncomeAccountRef": map[string]string{
			"value": item.IncomeAccountID,
		},
	})
}

func (c *httpClient) FindAccount(ctx context.Context, auth Auth, name string) (*EntityRef, error) {
	return c.findEntity(ctx, auth, "Account", "Name", name)
}

func (c *httpClient) CreateAccount(ctx context.Context, auth Auth, account Account) (*EntityRef, error) {
	return c.createEntity(ctx, auth, "Account", map[string]any{
		"Name":        account.Name,
		"AccountType": account.AccountType,
	})
}

func (c *httpClient) CreateInvoice(ctx context.Context, auth Auth, invoice Invoice) (string, error) {
	payload := map[string]any{
		"CustomerRef": map[string]string{"value": invoice.CustomerID},
		"Line":        salesLines(invoice.Lines),
	}
	if invoice.DocNumber != "" {
		payload["DocNumber"] = invoice.DocNumber
	}
	if invoice.TxnDate != "" {
		payload["TxnDate"] = invoice.TxnDate
	}
	if invoice.PrivateNote != "" {
		payload["PrivateNote"] = invoice.PrivateNote
	}
	return c.createDocument(ctx, auth, "Invoice", payload)
}

func (c *httpClient) CreatePayment(ctx context.Context, auth Auth, payment Payment) (string, error) {
	payload := map[string]any{
		"CustomerRef": map[string]string{"value": payment.CustomerID},
		"TotalAmt":    payment.TotalAmount,
		"Line": []map[string]any{
			{
				"Amount": payment.TotalAmount,
				"LinkedTxn": []map[string]string{
					{"TxnId": payment.InvoiceID, "TxnType": "Invoice"},
				},
			},
		},
	}
	if payment.DepositToAccountID != "" {
		payload["DepositToAccountRef"] = map[string]string{"value": payment.DepositToAccountID}
	}
	if payment.TxnDate != "" {
		payload["TxnDate"] = payment.TxnDate
	}
	return c.createDocument(ctx, auth, "Payment", payload)
}

func (c *httpClient) CreateSalesReceipt(ctx context.Context, auth Auth, receipt SalesReceipt) (string, error) {
	payload := map[string]any{
		"CustomerRef": map[string]string{"value": receipt.CustomerID},
		"Line":        salesLines(receipt.Lines),
	}
	if receipt.DepositToAccountID != "" {
		payload["DepositToAccountRef"] = map[string]string{"value": receipt.DepositToAccountID}
	}
	if receipt.DocNumber != "" {
		payload["DocNumber"] = receipt.DocNumber
	}
	if receipt.TxnDate != "" {
		payload["TxnDate"] = receipt.TxnDate
	}
	if receipt.PrivateNote != "" {
		payload["PrivateNote"] = receipt.PrivateNote
	}
	return c.createDocument(ctx, auth, "SalesReceipt", payload)
}

func (c *httpClient) CreateBill(ctx context.Context, auth Auth, bill Bill) (string, error) {
	payload := map[string]any{
		"VendorRef": map[string]string{"value": bill.VendorID},
		"Line":      billLines(bill.Lines),
	}
	if bill.TxnDate != "" {
		payload["TxnDate"] = bill.TxnDate
	}
	if bill.PrivateNote != "" {
		payload["PrivateNote"] = bill.PrivateNote
	}
	return c.createDocument(ctx, auth, "Bill", payload)
}

// findEntity resolves one entity by natural key through the provider's
// generic query endpoint. Returns nil when nothing matches.
func (c *httpClient) findEntity(ctx context.Context, auth Auth, entity, column, name string) (*EntityRef, error) {
	if auth.AccessToken == "" || auth.RealmID == "" {
		return nil, errors.New("quickbooks_not_connected")
	}
	query := fmt.Sprintf("select Id, %s from %s where %s = '%s'", column, entity, column, escapeQueryValue(name))
	endpoint := fmt.Sprintf("%s/v3/company/%s/query?query=%s",
		c.apiBaseURL, url.PathEscape(auth.RealmID), url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeFault(resp.Body)
	}

	var envelope struct {
		QueryResponse map[string]json.RawMessage `json:"QueryResponse"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	raw, ok := envelope.QueryResponse[entity]
	if !ok {
		return nil, nil
	}
	var rows []entityPayload
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ref(), nil
}

func (c *httpClient) createEntity(ctx context.Context, auth Auth, entity string, payload map[string]any) (*EntityRef, error) {
	body, err := c.post(ctx, auth, strings.ToLower(entity), payload)
	if err != nil {
		return nil, err
	}
	raw, ok := body[entity]
	if !ok {
		return nil, errors.New("quickbooks_response_invalid")
	}
	var row entityPayload
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	if row.ID == "" {
		return nil, errors.New("quickbooks_response_invalid")
	}
	return row.ref(), nil
}

func (c *httpClient) createDocument(ctx context.Context, auth Auth, entity string, payload map[string]any) (string, error) {
	body, err := c.post(ctx, auth, strings.ToLower(entity), payload)
	if err != nil {
		return "", err
	}
	raw, ok := body[entity]
	if !ok {
		return "", errors.New("quickbooks_response_invalid")
	}
	var doc struct {
		ID string `json:"Id"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", err
	}
	if doc.ID == "" {
		return "", errors.New("quickbooks_response_invalid")
	}
	return doc.ID, nil
}

func (c *httpClient) post(ctx context.Context, auth Auth, path string, payload map[string]any) (map[string]json.RawMessage, error) {
	if auth.AccessToken == "" || auth.RealmID == "" {
		return nil, errors.New("quickbooks_not_connected")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/v3/company/%s/%s", c.apiBaseURL, url.PathEscape(auth.RealmID), path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeFault(resp.Body)
	}

	var envelope map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

func salesLines(lines []Line) []map[string]any {
	out := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		entry := map[string]any{
			"DetailType": "SalesItemLineDetail",
			"Amount":     l.Amount,
			"SalesItemLineDetail": map[string]any{
				"ItemRef": map[string]string{"value": l.ItemID},
			},
		}
		if l.Description != "" {
			entry["Description"] = l.Description
		}
		out = append(out, entry)
	}
	return out
}

func billLines(lines []BillLine) []map[string]any {
	out := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		entry := map[string]any{
			"DetailType": "AccountBasedExpenseLineDetail",
			"Amount":     l.Amount,
			"AccountBasedExpenseLineDetail": map[string]any{
				"AccountRef": map[string]string{"value": l.AccountID},
			},
		}
		if l.Description != "" {
			entry["Description"] = l.Description
		}
		out = append(out, entry)
	}
	return out
}

// escapeQueryValue escapes single quotes for the provider's query language.
func escapeQueryValue(value string) string {
	return strings.ReplaceAll(value, "'", `\'`)
}

func decodeOAuthError(body io.Reader) error {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil || payload.Error == "" {
		return errors.New("token_request_failed")
	}
	return errors.New(payload.Error)
}

func decodeFault(body io.Reader) error {
	var payload struct {
		Fault struct {
			Error []struct {
				Message string `json:"Message"`
				Detail  string `json:"Detail"`
			} `json:"Error"`
		} `json:"Fault"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil || len(payload.Fault.Error) == 0 {
		return errors.New("quickbooks_request_failed")
	}
	first := payload.Fault.Error[0]
	message := strings.TrimSpace(first.Message)
	detail := strings.TrimSpace(first.Detail)
	switch {
	case message != "" && detail != "":
		return errors.New(message + ": " + detail)
	case message != "":
		return errors.New(message)
	case detail != "":
		return errors.New(detail)
	default:
		return errors.New("quickbooks_request_failed")
	}
}
