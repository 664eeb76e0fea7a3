package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/quantish/clobtrade/internal/domain"
)

// --------------------------------------------------------------------------
// EIP-712 type hashes (pre-computed keccak256 of the canonical type strings).
// --------------------------------------------------------------------------

var (
	// EIP712Domain(string name,string version,uint256 chainId)
	authDomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId)"),
	)

	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	exchangeDomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)

	// ClobAuth(address address,uint256 timestamp,uint256 nonce)
	clobAuthTypeHash = ethcrypto.Keccak256(
		[]byte("ClobAuth(address address,uint256 timestamp,uint256 nonce)"),
	)

	// Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)
	orderTypeHash = ethcrypto.Keccak256(
		[]byte("Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)"),
	)
)

// Signer produces EIP-712 signatures for CTF exchange orders and for the
// ClobAuth message used during API key derivation. It satisfies
// domain.OrderSigner.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int64
	sigType    int

	authSep     []byte // ClobAuth domain separator, cached
	exchangeSep []byte // CTF exchange domain separator, cached
}

var _ domain.OrderSigner = (*Signer)(nil)

// NewSigner creates a Signer from a hex-encoded secp256k1 private key, the
// target chain ID (137 for Polygon mainnet, 80002 for Amoy testnet), and the
// CTF exchange contract address the orders settle against. sigType selects
// the signature scheme: 0 = EOA, 1 = proxy wallet, 2 = Gnosis safe.
func NewSigner(privateKeyHex string, chainID int64, exchangeAddr string, sigType int) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	s := &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    chainID,
		sigType:    sigType,
	}

	s.authSep = ethcrypto.Keccak256(
		concatBytes(
			authDomainTypeHash,
			ethcrypto.Keccak256([]byte("ClobAuthDomain")),
			ethcrypto.Keccak256([]byte("1")),
			bigIntTo32Bytes(big.NewInt(chainID)),
		),
	)

	exchange := common.HexToAddress(exchangeAddr)
	s.exchangeSep = ethcrypto.Keccak256(
		concatBytes(
			exchangeDomainTypeHash,
			ethcrypto.Keccak256([]byte("Polymarket CTF Exchange")),
			ethcrypto.Keccak256([]byte("1")),
			bigIntTo32Bytes(big.NewInt(chainID)),
			common.LeftPadBytes(exchange.Bytes(), 32),
		),
	)

	return s, nil
}

// Address returns the hex-encoded Ethereum address derived from the
// signer's private key.
func (s *Signer) Address() string {
	return s.address.Hex()
}

// SignAuthMessage signs the ClobAuth EIP-712 message used to derive an API
// key. The returned string is a hex-encoded 65-byte signature.
func (s *Signer) SignAuthMessage(timestamp, nonce int64) (string, error) {
	structHash := ethcrypto.Keccak256(
		concatBytes(
			clobAuthTypeHash,
			common.LeftPadBytes(s.address.Bytes(), 32),
			bigIntTo32Bytes(big.NewInt(timestamp)),
			bigIntTo32Bytes(big.NewInt(nonce)),
		),
	)

	return s.signDigest(eip712Hash(s.authSep, structHash))
}

// SignOrder signs an exchange order against the CTF exchange domain and
// returns a hex-encoded 65-byte signature. SignatureType on the order is
// overridden with the signer's configured scheme.
func (s *Signer) SignOrder(order domain.SignedOrder) (string, error) {
	structHash, err := s.orderStructHash(order)
	if err != nil {
		return "", err
	}

	return s.signDigest(eip712Hash(s.exchangeSep, structHash))
}

// SignatureType returns the signature scheme the signer was configured with.
func (s *Signer) SignatureType() int {
	return s.sigType
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// eip712Hash computes the final EIP-712 digest:
//
//	keccak256("\x19\x01" || domainSeparator || structHash)
func eip712Hash(domainSep, structHash []byte) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			[]byte{0x19, 0x01},
			domainSep,
			structHash,
		),
	)
}

// signDigest signs a 32-byte digest using secp256k1 and returns the
// hex-encoded signature (r || s || v, 65 bytes).
func (s *Signer) signDigest(digest []byte) (string, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: signing: %w", err)
	}

	// go-ethereum returns v in {0,1}; EIP-712 expects v in {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}

	return "0x" + hex.EncodeToString(sig), nil
}

// orderStructHash encodes and hashes an order according to EIP-712. Salt,
// token ID, nonce, and fee rate travel as decimal strings to preserve
// precision across JSON boundaries.
func (s *Signer) orderStructHash(o domain.SignedOrder) ([]byte, error) {
	salt, ok := new(big.Int).SetString(o.Salt, 10)
	if !ok {
		return nil, fmt.Errorf("crypto/signer: invalid salt %q", o.Salt)
	}
	tokenID, ok := new(big.Int).SetString(o.Intent.TokenID, 10)
	if !ok {
		return nil, fmt.Errorf("crypto/signer: invalid tokenId %q", o.Intent.TokenID)
	}
	nonce, ok := new(big.Int).SetString(o.Nonce, 10)
	if !ok {
		return nil, fmt.Errorf("crypto/signer: invalid nonce %q", o.Nonce)
	}
	feeRate, ok := new(big.Int).SetString(o.FeeRateBps, 10)
	if !ok {
		return nil, fmt.Errorf("crypto/signer: invalid feeRateBps %q", o.FeeRateBps)
	}
	if o.MakerAmount == nil || o.TakerAmount == nil {
		return nil, fmt.Errorf("crypto/signer: missing maker/taker amounts")
	}

	side := int64(0)
	if o.Intent.Side == domain.SideSell {
		side = 1
	}

	maker := common.HexToAddress(o.Maker)
	signer := common.HexToAddress(o.SignerAddr)
	taker := common.HexToAddress(o.Taker)

	return ethcrypto.Keccak256(
		concatBytes(
			orderTypeHash,
			bigIntTo32Bytes(salt),
			common.LeftPadBytes(maker.Bytes(), 32),
			common.LeftPadBytes(signer.Bytes(), 32),
			common.LeftPadBytes(taker.Bytes(), 32),
			bigIntTo32Bytes(tokenID),
			bigIntTo32Bytes(o.MakerAmount),
			bigIntTo32Bytes(o.TakerAmount),
			bigIntTo32Bytes(big.NewInt(o.Intent.Expiration)),
			bigIntTo32Bytes(nonce),
			bigIntTo32Bytes(feeRate),
			bigIntTo32Bytes(big.NewInt(side)),
			bigIntTo32Bytes(big.NewInt(int64(s.sigType))),
		),
	), nil
}

// bigIntTo32Bytes returns a 32-byte big-endian representation of n.
func bigIntTo32Bytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

// concatBytes concatenates multiple byte slices into one.
func concatBytes(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}
