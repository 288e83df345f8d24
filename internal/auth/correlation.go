package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Flow はGoogleのコールバックをログインと登録のどちらとして扱うかを表す。
type Flow string

const (
	FlowLogin    Flow = "login"
	FlowRegister Flow = "register"
)

// DefaultCorrelationTTL は相関トークンの既定の有効期間。
// 同意画面での操作時間を見込んだ値。
const DefaultCorrelationTTL = 10 * time.Minute

const correlationIssuer = "pokedex"

// ErrInvalidCorrelation は相関トークンが不正、期限切れ、またはセッションと一致しないことを表す。
var ErrInvalidCorrelation = errors.New("invalid correlation token")

type correlationClaims struct {
	Flow  Flow   `json:"flow"`
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// CorrelationIssuer はOAuthのstateパラメータに載せる相関トークンを発行・検証する。
// トークンはHS256で署名したJWTで、フローとセッションに保存するnonceを含む。
type CorrelationIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCorrelationIssuer はCorrelationIssuerを生成する。ttlが0以下の場合は既定値を使う。
func NewCorrelationIssuer(secret string, ttl time.Duration) *CorrelationIssuer {
	if ttl <= 0 {
		ttl = DefaultCorrelationTTL
	}
	return &CorrelationIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Mint はflow用の相関トークンと、呼び出し元がセッションに保存すべきnonceを返す。
func (i *CorrelationIssuer) Mint(flow Flow) (token string, nonce string, err error) {
	if flow != FlowLogin && flow != FlowRegister {
		return "", "", fmt.Errorf("unknown flow: %q", flow)
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce = base64.RawURLEncoding.EncodeToString(b)

	now := i.now()
	claims := correlationClaims{
		Flow:  flow,
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    correlationIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign correlation token: %w", err)
	}
	return token, nonce, nil
}

// Verify は相関トークンを検証し、セッションのnonceと一致する場合にフローを返す。
func (i *CorrelationIssuer) Verify(token, nonce string) (Flow, error) {
	if token == "" || nonce == "" {
		return "", ErrInvalidCorrelation
	}

	var claims correlationClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(correlationIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCorrelation, err)
	}

	if subtle.ConstantTimeCompare([]byte(claims.Nonce), []byte(nonce)) != 1 {
		return "", fmt.Errorf("%w: nonce mismatch", ErrInvalidCorrelation)
	}
	if claims.Flow != FlowLogin && claims.Flow != FlowRegister {
		return "", fmt.Errorf("%w: unknown flow %q", ErrInvalidCorrelation, claims.Flow)
	}

	return claims.Flow, nil
}
