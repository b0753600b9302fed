package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSession = errors.New("session: no session token")
	ErrExpired   = errors.New("session: token has expired")
	ErrInvalid   = errors.New("session: token is invalid")
)

// Claims is the payload carried by the session cookie. The registered ID
// claim holds the server-side session row id.
type Claims struct {
	UserID   int64     `json:"userId"`
	UserRole string    `json:"userRole"`
	Expiry   time.Time `json:"expiresAt"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with HS256.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

func (c *Codec) Encode(claims *Claims) (string, error) {
	claims.IssuedAt = jwt.NewNumericDate(c.now())
	claims.ExpiresAt = jwt.NewNumericDate(claims.Expiry)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

func (c *Codec) Decode(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoSession
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalid
	}

	return claims, nil
}
