package crypto_test

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantish/clobtrade/internal/crypto"
	"github.com/quantish/clobtrade/internal/domain"
)

const (
	testKeyHex      = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testExchange    = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	polygonMainnet  = 137
	sigHexLen       = 132 // "0x" + 65 bytes
	testTokenID     = "71321045679252212594626385532706912750332728571942532289631379312455583992563"
)

func testOrder() domain.SignedOrder {
	return domain.SignedOrder{
		Intent: domain.OrderIntent{
			TokenID:     testTokenID,
			Side:        domain.SideBuy,
			Size:        10,
			Kind:        domain.KindLimit,
			LimitPrice:  0.55,
			TimeInForce: domain.TIFGoodTillCancelled,
		},
		Price:       0.55,
		Salt:        "123456789",
		Maker:       "0x0000000000000000000000000000000000000001",
		SignerAddr:  "0x0000000000000000000000000000000000000001",
		Taker:       "0x0000000000000000000000000000000000000000",
		MakerAmount: big.NewInt(5_500_000),
		TakerAmount: big.NewInt(10_000_000),
		Nonce:       "0",
		FeeRateBps:  "0",
	}
}

func TestNewSigner_DerivesAddress(t *testing.T) {
	s, err := crypto.NewSigner("0x"+testKeyHex, polygonMainnet, testExchange, 0)
	require.NoError(t, err)

	addr := s.Address()
	assert.True(t, strings.HasPrefix(addr, "0x"))
	assert.Len(t, addr, 42)

	// Stripping the 0x prefix yields the same key, so the same address.
	s2, err := crypto.NewSigner(testKeyHex, polygonMainnet, testExchange, 0)
	require.NoError(t, err)
	assert.Equal(t, addr, s2.Address())
}

func TestNewSigner_RejectsBadKey(t *testing.T) {
	_, err := crypto.NewSigner("not-hex", polygonMainnet, testExchange, 0)
	assert.Error(t, err)
}

func TestSignOrder_Deterministic(t *testing.T) {
	s, err := crypto.NewSigner(testKeyHex, polygonMainnet, testExchange, 0)
	require.NoError(t, err)

	a, err := s.SignOrder(testOrder())
	require.NoError(t, err)
	b, err := s.SignOrder(testOrder())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, sigHexLen)
	assert.True(t, strings.HasPrefix(a, "0x"))
}

func TestSignOrder_DigestCoversFields(t *testing.T) {
	s, err := crypto.NewSigner(testKeyHex, polygonMainnet, testExchange, 0)
	require.NoError(t, err)

	base, err := s.SignOrder(testOrder())
	require.NoError(t, err)

	salted := testOrder()
	salted.Salt = "987654321"
	sigSalted, err := s.SignOrder(salted)
	require.NoError(t, err)
	assert.NotEqual(t, base, sigSalted)

	sell := testOrder()
	sell.Intent.Side = domain.SideSell
	sigSell, err := s.SignOrder(sell)
	require.NoError(t, err)
	assert.NotEqual(t, base, sigSell)
}

func TestSignOrder_InvalidNumericFields(t *testing.T) {
	s, err := crypto.NewSigner(testKeyHex, polygonMainnet, testExchange, 0)
	require.NoError(t, err)

	bad := testOrder()
	bad.Salt = "not-a-number"
	_, err = s.SignOrder(bad)
	assert.Error(t, err)

	bad = testOrder()
	bad.Intent.TokenID = "0xhex-not-decimal"
	_, err = s.SignOrder(bad)
	assert.Error(t, err)

	bad = testOrder()
	bad.MakerAmount = nil
	_, err = s.SignOrder(bad)
	assert.Error(t, err)
}

func TestSignAuthMessage(t *testing.T) {
	s, err := crypto.NewSigner(testKeyHex, polygonMainnet, testExchange, 0)
	require.NoError(t, err)

	a, err := s.SignAuthMessage(1_700_000_000, 0)
	require.NoError(t, err)
	b, err := s.SignAuthMessage(1_700_000_000, 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := s.SignAuthMessage(1_700_000_001, 0)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
