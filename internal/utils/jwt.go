package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/sha256" // SHA‑256 hashing for stored refresh tokens
    "encoding/hex"  // hex encoding of digests
    "errors"        // sentinel for verification failures
    "fmt"           // wraps the underlying parser error
    "time"          // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"       // unique token ids

    "github.com/iliyamo/account-service/internal/config"
    "github.com/iliyamo/account-service/internal/model"
)

// ErrInvalidToken is returned for every verification failure: bad
// signature, unexpected algorithm, malformed payload, or expiry.
var ErrInvalidToken = errors.New("invalid token")

// Token types carried in the "typ" claim.
const (
    TypeAccess  = "access"
    TypeRefresh = "refresh"
)

// Claims is the payload of both token kinds.  Refresh tokens carry only the
// registered claims and the type; access tokens also carry the identity
// fields so downstream consumers can display them without a lookup.
type Claims struct {
    Email    string `json:"email,omitempty"`
    Username string `json:"username,omitempty"`
    FullName string `json:"fullname,omitempty"`
    Type     string `json:"typ"`
    jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long‑lived signed token used to obtain a new
// token pair.  Only HashRefreshRaw(Raw) is persisted.
type RefreshToken struct {
    Raw string    // raw token string returned to the client
    Exp time.Time // UTC expiration time
}

// TokenCodec creates and verifies access and refresh tokens.  Each kind has
// its own secret and lifetime.  Now defaults to the wall clock; tests may
// replace it.  There is no leeway when checking expiry.
type TokenCodec struct {
    accessSecret  []byte
    accessTTL     time.Duration
    refreshSecret []byte
    refreshTTL    time.Duration
    Now           func() time.Time
}

// NewTokenCodec builds a codec from the token section of the configuration.
func NewTokenCodec(cfg config.TokenConfig) *TokenCodec {
    return &TokenCodec{
        accessSecret:  []byte(cfg.AccessSecret),
        accessTTL:     cfg.AccessTTL,
        refreshSecret: []byte(cfg.RefreshSecret),
        refreshTTL:    cfg.RefreshTTL,
        Now:           func() time.Time { return time.Now().UTC() },
    }
}

// AccessSecret and RefreshSecret expose the secrets for Verify callers.
func (c *TokenCodec) AccessSecret() []byte  { return c.accessSecret }
func (c *TokenCodec) RefreshSecret() []byte { return c.refreshSecret }

// IssueAccessToken signs an HS256 access token for the user.
func (c *TokenCodec) IssueAccessToken(p model.Profile) (AccessToken, error) {
    now := c.Now()
    exp := now.Add(c.accessTTL)
    claims := Claims{
        Email:    p.Email,
        Username: p.Username,
        FullName: p.FullName,
        Type:     TypeAccess,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   p.ID,
            ID:        uuid.NewString(),
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// IssueRefreshToken signs an HS256 refresh token for the user id.  The
// random jti makes every issued token distinct, even within one second.
func (c *TokenCodec) IssueRefreshToken(userID string) (RefreshToken, error) {
    now := c.Now()
    exp := now.Add(c.refreshTTL)
    claims := Claims{
        Type: TypeRefresh,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   userID,
            ID:        uuid.NewString(),
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{Raw: signed, Exp: exp}, nil
}

// Verify checks the signature against secret and the expiry against Now.
// Any failure is reported as ErrInvalidToken.
func (c *TokenCodec) Verify(token string, secret []byte) (*Claims, error) {
    claims := &Claims{}
    tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
        }
        return secret, nil
    },
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(c.Now),
    )
    if err != nil {
        return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
    }
    if !tok.Valid || claims.Subject == "" {
        return nil, ErrInvalidToken
    }
    return claims, nil
}

// VerifyAccess verifies an access token.
func (c *TokenCodec) VerifyAccess(token string) (*Claims, error) {
    return c.verifyType(token, c.accessSecret, TypeAccess)
}

// VerifyRefresh verifies a refresh token.
func (c *TokenCodec) VerifyRefresh(token string) (*Claims, error) {
    return c.verifyType(token, c.refreshSecret, TypeRefresh)
}

func (c *TokenCodec) verifyType(token string, secret []byte, typ string) (*Claims, error) {
    claims, err := c.Verify(token, secret)
    if err != nil {
        return nil, err
    }
    if claims.Type != typ {
        return nil, fmt.Errorf("%w: want %s token, got %q", ErrInvalidToken, typ, claims.Type)
    }
    return claims, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.  Storing only the hash in the database prevents attackers from
// using stolen database entries to refresh sessions.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
