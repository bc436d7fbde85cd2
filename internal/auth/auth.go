package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNoUser             = errors.New("no authenticated user")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrEmptySecret        = errors.New("token secret is not set")
)

const defaultTokenTTL = 24 * time.Hour

type Config struct {
	Secret   string
	TokenTTL time.Duration
	Issuer   string
}

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Tokens signs and parses HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokens(config Config) (*Tokens, error) {
	if config.Secret == "" {
		return nil, ErrEmptySecret
	}
	ttl := config.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Tokens{secret: []byte(config.Secret), ttl: ttl, issuer: config.Issuer, now: time.Now}, nil
}

// Sign returns a token for userID and its expiry time.
func (t *Tokens) Sign(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrNoUser
	}
	now := t.now()
	expires := now.Add(t.ttl)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse validates token and returns the user id it was issued for.
func (t *Tokens) Parse(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tk.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}
	if !parsed.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	if t.issuer != "" && claims.Issuer != t.issuer {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type userKey struct{}

func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns ErrNoUser when ctx carries no authenticated user.
func UserFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(userKey{}).(string)
	if !ok || id == "" {
		return "", ErrNoUser
	}
	return id, nil
}
