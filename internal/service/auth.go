package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatekit/gatekit/internal/model"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// the API cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned for malformed, tampered, or expired tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// BcryptCost is the fixed bcrypt work factor for password hashing.
const BcryptCost = 12

// Principal is the verified identity embedded in a token.
type Principal struct {
	UserID string
	Role   model.Role
}

// AuthService signs and verifies session tokens and hashes passwords.
// Tokens are stateless HS256 JWTs; there is no server-side revocation, so a
// token remains valid until its expiry even if the account is deactivated.
type AuthService struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthService creates an AuthService. ttl controls token lifetime; zero
// or negative defaults to 24 hours.
func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// TokenTTL returns the configured token lifetime.
func (s *AuthService) TokenTTL() time.Duration {
	return s.ttl
}

// HashPassword returns the bcrypt hash of a plaintext password. The salt is
// generated per call, so hashing the same password twice yields different
// hashes.
func (s *AuthService) HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt hash.
// A mismatch is not an error condition; the function simply returns false.
func (s *AuthService) VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// IssueToken creates a signed JWT embedding the user ID and role.
func (s *AuthService) IssueToken(userID string, role model.Role) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    "gatekit",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken validates a bearer token and returns the embedded principal.
// Returns ErrInvalidToken if the signature is invalid, the token is
// malformed, or it has expired.
func (s *AuthService) VerifyToken(tokenStr string) (*Principal, error) {
	claims := &tokenClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	role := model.Role(claims.Role)
	if claims.UserID == "" || !role.Valid() {
		return nil, ErrInvalidToken
	}

	return &Principal{
		UserID: claims.UserID,
		Role:   role,
	}, nil
}

type tokenClaims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
