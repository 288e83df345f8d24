package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxSecretBytes はbcryptが扱えるパスワードの最大バイト長。
const MaxSecretBytes = 72

// ErrSecretTooLong はパスワードがMaxSecretBytesを超えていることを表す。
var ErrSecretTooLong = errors.New("secret exceeds maximum length")

// Hasher はパスワードのハッシュ化と照合を行う。
type Hasher interface {
	// Hash はソルト付きのハッシュを生成する。
	Hash(secret string) (string, error)
	// Verify はsecretがhashと一致するかを定数時間で照合する。
	// 不一致は(false, nil)、ハッシュの破損などの障害のみerrorを返す。
	Verify(secret, hash string) (bool, error)
}

// BcryptHasher はbcryptによるHasherの実装。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はBcryptHasherを生成する。
// costが範囲外の場合はbcrypt.DefaultCostを使用する。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash はsecretのbcryptハッシュを生成する。
func (h *BcryptHasher) Hash(secret string) (string, error) {
	if len(secret) > MaxSecretBytes {
		return "", ErrSecretTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// Verify はsecretとbcryptハッシュを照合する。
func (h *BcryptHasher) Verify(secret, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("failed to verify secret: %w", err)
}

// compile-time interface check
var _ Hasher = (*BcryptHasher)(nil)
