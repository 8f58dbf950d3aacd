package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/store"
)

const (
	// NONCE_KEY_PREFIX prefixes the key-value entry holding the pending login nonce of a wallet
	NONCE_KEY_PREFIX = "auth_nonce:"
	// SIGN_MESSAGE_PREFIX is prepended to the nonce to form the message signed with personal_sign
	SIGN_MESSAGE_PREFIX = "Sign this message to authenticate: "

	DEFAULT_TOKEN_TTL = 24 * time.Hour
	DEFAULT_NONCE_TTL = 5 * time.Minute
	DEFAULT_ISSUER    = "ff-marketplace"
)

var (
	// ErrNonceNotFound is returned when no login nonce is pending for a wallet
	ErrNonceNotFound = errors.New("no pending nonce for wallet")
	// ErrInvalidSignature is returned when the signature does not recover to the wallet
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidToken is returned when a bearer token fails verification
	ErrInvalidToken = errors.New("invalid token")
)

// Config holds the JWT settings
type Config struct {
	// PrivateKeyPEM signs issued tokens; verification-only deployments leave it empty
	PrivateKeyPEM string
	PublicKeyPEM  string
	Issuer        string
	TokenTTL      time.Duration
	// NonceTTL bounds how long an issued nonce can be used to log in
	NonceTTL time.Duration
}

// Token is an issued access token
type Token struct {
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenVerifier resolves a bearer token to the wallet address it was issued to
type TokenVerifier interface {
	VerifyToken(tokenString string) (string, error)
}

// Service implements wallet login: a one-time nonce signed with personal_sign is exchanged for a JWT
//
//go:generate mockgen -source=auth.go -destination=../mocks/auth.go -package=mocks -mock_names=Service=MockAuthService,TokenVerifier=MockTokenVerifier
type Service interface {
	TokenVerifier

	// IssueNonce returns the pending login nonce of a wallet, generating a new one
	// when none is pending or the pending one expired
	IssueNonce(ctx context.Context, address string) (string, error)
	// Login verifies the signature of the pending nonce and issues a token
	Login(ctx context.Context, address, signature string) (*Token, error)
}

type service struct {
	store      store.Store
	clock      adapter.Clock
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	ttl        time.Duration
	nonceTTL   time.Duration
}

// pemFromConfig accepts keys whose newlines were escaped to fit in an environment variable
func pemFromConfig(s string) []byte {
	return []byte(strings.ReplaceAll(strings.TrimSpace(s), `\n`, "\n"))
}

// NewService creates a new auth service
func NewService(st store.Store, clock adapter.Clock, cfg Config) (Service, error) {
	if cfg.PublicKeyPEM == "" {
		return nil, errors.New("JWT public key not configured")
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(pemFromConfig(cfg.PublicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}

	var privateKey *rsa.PrivateKey
	if cfg.PrivateKeyPEM != "" {
		privateKey, err = jwt.ParseRSAPrivateKeyFromPEM(pemFromConfig(cfg.PrivateKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
		}
	}

	if cfg.Issuer == "" {
		cfg.Issuer = DEFAULT_ISSUER
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DEFAULT_TOKEN_TTL
	}
	if cfg.NonceTTL <= 0 {
		cfg.NonceTTL = DEFAULT_NONCE_TTL
	}

	return &service{
		store:      st,
		clock:      clock,
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     cfg.Issuer,
		ttl:        cfg.TokenTTL,
		nonceTTL:   cfg.NonceTTL,
	}, nil
}

func nonceKey(address string) string {
	return NONCE_KEY_PREFIX + address
}

// SignMessage returns the message a wallet signs to log in with a nonce
func SignMessage(nonce string) string {
	return SIGN_MESSAGE_PREFIX + nonce
}

// EncodeNonce formats a nonce with its issue time for the key-value store
func EncodeNonce(nonce string, issuedAt time.Time) string {
	return strconv.FormatInt(issuedAt.Unix(), 10) + ":" + nonce
}

// decodeNonce parses a stored nonce, reporting false for malformed values
func decodeNonce(value string) (string, time.Time, bool) {
	issued, nonce, ok := strings.Cut(value, ":")
	if !ok || nonce == "" {
		return "", time.Time{}, false
	}
	unix, err := strconv.ParseInt(issued, 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return nonce, time.Unix(unix, 0), true
}

// pendingNonce returns the unexpired nonce stored for a wallet, empty if there is none
func (s *service) pendingNonce(ctx context.Context, address string) (string, error) {
	value, err := s.store.GetKeyValue(ctx, nonceKey(address))
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}
	if value == "" {
		return "", nil
	}

	nonce, issuedAt, ok := decodeNonce(value)
	if !ok || !s.clock.Now().Before(issuedAt.Add(s.nonceTTL)) {
		return "", nil
	}
	return nonce, nil
}

// IssueNonce returns the pending login nonce of a wallet, generating a new one
// when none is pending or the pending one expired. An unexpired nonce is never replaced.
func (s *service) IssueNonce(ctx context.Context, address string) (string, error) {
	if !domain.IsValidAddress(address) {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidAddress, address)
	}
	address = domain.NormalizeAddress(address)

	pending, err := s.pendingNonce(ctx, address)
	if err != nil {
		return "", err
	}
	if pending != "" {
		return pending, nil
	}

	nonce := uuid.NewString()
	if err := s.store.SetKeyValue(ctx, nonceKey(address), EncodeNonce(nonce, s.clock.Now())); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}

	return nonce, nil
}

// Login verifies the signature of the pending nonce and issues a token.
// The nonce is consumed on success so a signature cannot be replayed.
func (s *service) Login(ctx context.Context, address, signature string) (*Token, error) {
	if !domain.IsValidAddress(address) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAddress, address)
	}
	address = domain.NormalizeAddress(address)

	if s.privateKey == nil {
		return nil, errors.New("JWT private key not configured")
	}

	nonce, err := s.pendingNonce(ctx, address)
	if err != nil {
		return nil, err
	}
	if nonce == "" {
		return nil, ErrNonceNotFound
	}

	signer, err := RecoverSigner(SignMessage(nonce), signature)
	if err != nil {
		return nil, err
	}
	if !domain.SameAddress(signer, address) {
		logger.WarnCtx(ctx, "Signature does not match wallet",
			zap.String("address", address),
			zap.String("signer", signer))
		return nil, ErrInvalidSignature
	}

	existed, err := s.store.DeleteKeyValue(ctx, nonceKey(address))
	if err != nil {
		return nil, fmt.Errorf("failed to consume nonce: %w", err)
	}
	if !existed {
		// Another login consumed the nonce first
		return nil, ErrNonceNotFound
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   address,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	logger.InfoCtx(ctx, "Wallet logged in", zap.String("address", address))

	return &Token{Token: tokenString, Address: address, ExpiresAt: expiresAt}, nil
}

// VerifyToken validates an RS256 token and returns its wallet subject
func (s *service) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.publicKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !domain.IsValidAddress(claims.Subject) {
		return "", fmt.Errorf("%w: subject is not a wallet address", ErrInvalidToken)
	}

	return domain.NormalizeAddress(claims.Subject), nil
}

// RecoverSigner returns the address that produced a personal_sign signature of message
func RecoverSigner(message, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("%w: expected %d bytes", ErrInvalidSignature, crypto.SignatureLength)
	}

	// Wallets produce a recovery id of 27 or 28
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return domain.NormalizeAddress(crypto.PubkeyToAddress(*pub).Hex()), nil
}
