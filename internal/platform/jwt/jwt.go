package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PurposeAccess = "access"
	PurposeVerify = "verify"
)

var ErrWrongPurpose = errors.New("token issued for another purpose")

type Claims struct {
	UserID   int64  `json:"user_id"`
	Verified bool   `json:"verified"`
	Purpose  string `json:"purpose"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret    []byte
	issuer    string
	verifyTTL time.Duration
}

func NewManager(secret, issuer string) *Manager {
	if issuer == "" {
		issuer = "survey-insights"
	}
	return &Manager{secret: []byte(secret), issuer: issuer, verifyTTL: 72 * time.Hour}
}

// Generate issues an access token. Verified is a snapshot of the account at
// issue time; verifying an account requires a fresh login.
func (m *Manager) Generate(userID int64, verified bool, ttl time.Duration) (string, error) {
	return m.sign(Claims{UserID: userID, Verified: verified, Purpose: PurposeAccess}, ttl)
}

func (m *Manager) GenerateVerification(userID int64) (string, error) {
	return m.sign(Claims{UserID: userID, Purpose: PurposeVerify}, m.verifyTTL)
}

func (m *Manager) ParseVerification(code string) (int64, error) {
	claims, err := m.parse(code, PurposeVerify)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// Parse validates an access token.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, PurposeAccess)
}

func (m *Manager) sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(claims.UserID, 10),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    m.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) parse(tokenStr, purpose string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.Purpose != purpose {
			return nil, ErrWrongPurpose
		}
		return claims, nil
	}

	return nil, jwt.ErrTokenInvalidClaims
}
