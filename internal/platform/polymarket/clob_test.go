package polymarket_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantish/clobtrade/internal/crypto"
	"github.com/quantish/clobtrade/internal/domain"
	"github.com/quantish/clobtrade/internal/platform/polymarket"
)

const (
	testKeyHex   = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testExchange = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
)

func testSigner(t *testing.T) *crypto.Signer {
	t.Helper()
	s, err := crypto.NewSigner(testKeyHex, 137, testExchange, 0)
	require.NoError(t, err)
	return s
}

func testAuth() *crypto.HMACAuth {
	return &crypto.HMACAuth{Key: "api-key", Secret: "c2VjcmV0", Passphrase: "pass"}
}

func signedOrder() domain.SignedOrder {
	return domain.SignedOrder{
		Intent: domain.OrderIntent{
			TokenID:     "123456",
			Side:        domain.SideBuy,
			Size:        10,
			Kind:        domain.KindLimit,
			LimitPrice:  0.55,
			TimeInForce: domain.TIFGoodTillCancelled,
		},
		Price:       0.55,
		Salt:        "42",
		Maker:       "0x0000000000000000000000000000000000000001",
		SignerAddr:  "0x0000000000000000000000000000000000000001",
		Taker:       "0x0000000000000000000000000000000000000000",
		MakerAmount: big.NewInt(5_500_000),
		TakerAmount: big.NewInt(10_000_000),
		Nonce:       "0",
		FeeRateBps:  "0",
		Signature:   "0xsig",
	}
}

func TestSubmitOrder_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
		assert.Equal(t, "api-key", r.Header.Get("POLY_API_KEY"))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"orderID": "0xabc",
			"status":  "live",
		})
	}))
	defer srv.Close()

	client := polymarket.NewClobClient(srv.URL, testSigner(t), testAuth())
	posted, err := client.SubmitOrder(context.Background(), signedOrder())

	require.NoError(t, err)
	assert.Equal(t, "/order", gotPath)
	assert.Equal(t, "0xabc", posted.OrderID)
	assert.Equal(t, domain.StatusLive, posted.Status)

	order, ok := gotBody["order"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "BUY", order["side"])
	assert.Equal(t, "5500000", order["makerAmount"])
	assert.Equal(t, "10000000", order["takerAmount"])
	assert.Equal(t, "GTC", gotBody["orderType"])
}

func TestSubmitOrder_RejectedByExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":  false,
			"errorMsg": "not enough balance",
		})
	}))
	defer srv.Close()

	client := polymarket.NewClobClient(srv.URL, testSigner(t), testAuth())
	_, err := client.SubmitOrder(context.Background(), signedOrder())

	assert.ErrorIs(t, err, domain.ErrRejectedByExchange)
	assert.ErrorContains(t, err, "not enough balance")
}

func TestSubmitOrder_HTTPErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		target error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimited},
		{"server error", http.StatusInternalServerError, domain.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			client := polymarket.NewClobClient(srv.URL, testSigner(t), testAuth())
			_, err := client.SubmitOrder(context.Background(), signedOrder())

			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestOrderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order/0xabc", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"id": "0xabc", "status": "matched"})
	}))
	defer srv.Close()

	client := polymarket.NewClobClient(srv.URL, testSigner(t), testAuth())
	status, err := client.OrderStatus(context.Background(), "0xabc")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusMatched, status)
}

func TestOrderStatus_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such order", http.StatusNotFound)
	}))
	defer srv.Close()

	client := polymarket.NewClobClient(srv.URL, testSigner(t), testAuth())
	_, err := client.OrderStatus(context.Background(), "0xmissing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "0xabc", body["orderID"])
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	client := polymarket.NewClobClient(srv.URL, testSigner(t), testAuth())
	require.NoError(t, client.CancelOrder(context.Background(), "0xabc"))
}

func TestBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/book", r.URL.Path)
		assert.Equal(t, "123456", r.URL.Query().Get("token_id"))
		json.NewEncoder(w).Encode(map[string]any{
			"asset_id": "123456",
			"bids":     []map[string]string{{"price": "0.54", "size": "100"}},
			"asks": []map[string]string{
				{"price": "0.56", "size": "50"},
				{"price": "0.57", "size": "200"},
			},
			"timestamp": "1700000000",
		})
	}))
	defer srv.Close()

	client := polymarket.NewClobClient(srv.URL, testSigner(t), testAuth())
	snap, err := client.Book(context.Background(), "123456")

	require.NoError(t, err)
	assert.Equal(t, "123456", snap.AssetID)
	require.Len(t, snap.Bids, 1)
	require.Len(t, snap.Asks, 2)
	assert.Equal(t, 0.54, snap.BestBid())
	assert.Equal(t, 0.56, snap.BestAsk())
}

func TestLastTradePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"asset_id": "123456",
			"price":    "0.55",
		})
	}))
	defer srv.Close()

	client := polymarket.NewClobClient(srv.URL, testSigner(t), testAuth())
	quote, err := client.LastTradePrice(context.Background(), "123456")

	require.NoError(t, err)
	assert.Equal(t, "123456", quote.TokenID)
	assert.Equal(t, 0.55, quote.ReferencePrice)
}

func TestDeriveAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/derive-api-key", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("POLY_ADDRESS"))
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
		json.NewEncoder(w).Encode(map[string]string{
			"apiKey":     "derived-key",
			"secret":     "c2VjcmV0",
			"passphrase": "pass",
		})
	}))
	defer srv.Close()

	client := polymarket.NewClobClient(srv.URL, testSigner(t), nil)
	require.NoError(t, client.DeriveAPIKey(context.Background()))
}
