// Package polymarket is the transport layer for the CLOB REST and WebSocket
// APIs: order placement and cancellation, status queries, book and last
// trade price reads, and the auth flow that derives HMAC credentials.
package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/quantish/clobtrade/internal/crypto"
	"github.com/quantish/clobtrade/internal/domain"
)

// ClobClient is the REST client for the CLOB API. It satisfies
// domain.Exchange.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer
	hmacAuth   *crypto.HMACAuth
}

var _ domain.Exchange = (*ClobClient)(nil)

// NewClobClient creates a CLOB REST client.
//
// baseURL is the API root, e.g. "https://clob.polymarket.com".
// signer is the EIP-712 signer for order signatures and auth messages.
// hmac holds existing API credentials; pass nil and call DeriveAPIKey to
// obtain them through the auth flow.
func NewClobClient(baseURL string, signer *crypto.Signer, hmac *crypto.HMACAuth) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer:   signer,
		hmacAuth: hmac,
	}
}

// SubmitOrder posts a signed order and returns the exchange's receipt. A
// response with success=false maps to domain.ErrRejectedByExchange.
func (c *ClobClient) SubmitOrder(ctx context.Context, order domain.SignedOrder) (domain.PostedOrder, error) {
	body := apiOrderRequest{
		Order: apiOrderPayload{
			Salt:          order.Salt,
			Maker:         order.Maker,
			Signer:        order.SignerAddr,
			Taker:         order.Taker,
			TokenID:       order.Intent.TokenID,
			MakerAmount:   order.MakerAmount.String(),
			TakerAmount:   order.TakerAmount.String(),
			Expiration:    fmt.Sprintf("%d", order.Intent.Expiration),
			Nonce:         order.Nonce,
			FeeRateBps:    order.FeeRateBps,
			Side:          string(order.Intent.Side),
			SignatureType: c.signer.SignatureType(),
			Signature:     order.Signature,
		},
		Owner:     order.Maker,
		OrderType: string(order.Intent.TimeInForce),
	}

	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodPost, "/order", body)
	if err != nil {
		return domain.PostedOrder{}, fmt.Errorf("polymarket/clob: submit order: %w", err)
	}

	var result APIOrderResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return domain.PostedOrder{}, fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}
	if !result.Success {
		return domain.PostedOrder{}, fmt.Errorf("polymarket/clob: %s: %w", result.ErrorMsg, domain.ErrRejectedByExchange)
	}

	return result.ToDomainPostedOrder(), nil
}

// OrderStatus fetches the current status of an order by ID.
func (c *ClobClient) OrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error) {
	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodGet, "/order/"+orderID, nil)
	if err != nil {
		return domain.StatusUnknown, fmt.Errorf("polymarket/clob: order status %s: %w", orderID, err)
	}

	var order APIOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return domain.StatusUnknown, fmt.Errorf("polymarket/clob: decode order: %w", err)
	}

	return parseStatus(order.Status), nil
}

// CancelOrder cancels a single order by its ID.
func (c *ClobClient) CancelOrder(ctx context.Context, orderID string) error {
	body := map[string]any{"orderID": orderID}

	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodDelete, "/order", body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: cancel order %s: %w", orderID, err)
	}

	var result struct {
		Success  bool   `json:"success"`
		ErrorMsg string `json:"errorMsg"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("polymarket/clob: decode cancel response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("polymarket/clob: cancel failed: %s", result.ErrorMsg)
	}

	return nil
}

// Book fetches the current orderbook snapshot for a token. The endpoint is
// public and needs no authentication.
func (c *ClobClient) Book(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	path := "/book?token_id=" + url.QueryEscape(tokenID)

	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("polymarket/clob: get book: %w", err)
	}

	var book BookMessage
	if err := json.Unmarshal(respBody, &book); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}
	if book.AssetID == "" {
		book.AssetID = tokenID
	}

	return BookToDomainSnapshot(&book), nil
}

// LastTradePrice fetches the most recent trade price for a token.
func (c *ClobClient) LastTradePrice(ctx context.Context, tokenID string) (domain.OutcomeQuote, error) {
	path := "/last-trade-price?token_id=" + url.QueryEscape(tokenID)

	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return domain.OutcomeQuote{}, fmt.Errorf("polymarket/clob: get last trade price: %w", err)
	}

	var price PriceMessage
	if err := json.Unmarshal(respBody, &price); err != nil {
		return domain.OutcomeQuote{}, fmt.Errorf("polymarket/clob: decode last trade price: %w", err)
	}
	if price.AssetID == "" {
		price.AssetID = tokenID
	}

	return PriceToDomainQuote(&price), nil
}

// DeriveAPIKey performs the auth flow to obtain an HMAC API key. It signs a
// ClobAuth EIP-712 message and sends it with L1 headers (POLY_ADDRESS,
// POLY_SIGNATURE, POLY_TIMESTAMP, POLY_NONCE) to the derive-api-key
// endpoint. On success it populates the client's hmacAuth field.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) error {
	address := c.signer.Address()
	timestamp := time.Now().Unix()
	nonce := int64(0)

	sig, err := c.signer.SignAuthMessage(timestamp, nonce)
	if err != nil {
		return fmt.Errorf("polymarket/clob: sign auth message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/derive-api-key", nil)
	if err != nil {
		return fmt.Errorf("polymarket/clob: create auth request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", address)
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", fmt.Sprintf("%d", timestamp))
	req.Header.Set("POLY_NONCE", fmt.Sprintf("%d", nonce))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polymarket/clob: auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: read auth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("polymarket/clob: auth failed (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var authResp struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return fmt.Errorf("polymarket/clob: decode auth response: %w", err)
	}

	c.hmacAuth = &crypto.HMACAuth{
		Key:        authResp.APIKey,
		Secret:     authResp.Secret,
		Passphrase: authResp.Passphrase,
	}

	return nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doAuthenticatedRequest sends an HMAC-signed request against the CLOB API
// and returns the raw response body.
func (c *ClobClient) doAuthenticatedRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	return c.doRequest(ctx, method, path, body, true)
}

func (c *ClobClient) doRequest(ctx context.Context, method, path string, body any, authed bool) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed && c.hmacAuth != nil {
		headers := c.hmacAuth.L2Headers(c.signer.Address(), method, path, bodyStr)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch {
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	case statusCode >= 500:
		return fmt.Errorf("HTTP %d: %s: %w", statusCode, bodyStr, domain.ErrProviderUnavailable)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
