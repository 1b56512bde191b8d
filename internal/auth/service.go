// Package auth implements the optional bearer-credential access control:
// a single admin subject, bcrypt password verification and signed,
// time-limited HS256 tokens.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidToken       = errors.New("could not validate credentials")
	ErrAccountDisabled    = errors.New("inactive user")
)

// AccessTokenTTL is the lifetime of issued credentials.
const AccessTokenTTL = 30 * time.Minute

const adminUsername = "admin"

// User is an entry of the credential store.
type User struct {
	Username     string
	PasswordHash string
	Disabled     bool
}

// Token is the issued bearer credential.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Claims are the signed claims carried by an access token.
type Claims struct {
	jwt.RegisteredClaims
}

// Service issues and verifies bearer credentials against a fixed
// single-admin credential store.
type Service struct {
	secret []byte
	users  map[string]User
	ttl    time.Duration
	now    func() time.Time
}

// NewService builds the access-control service. Both the signing secret and
// the admin bcrypt hash are required; missing values fail construction so a
// misconfigured deployment aborts at startup instead of at first request.
func NewService(secret, adminHash string) (*Service, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if adminHash == "" {
		return nil, errors.New("auth: admin credential hash is required")
	}
	return &Service{
		secret: []byte(secret),
		users: map[string]User{
			adminUsername: {Username: adminUsername, PasswordHash: adminHash},
		},
		ttl: AccessTokenTTL,
		now: time.Now,
	}, nil
}

// SignIn verifies the username/password pair and issues a bearer token.
func (s *Service) SignIn(username, password string) (Token, error) {
	user, ok := s.users[username]
	if !ok {
		return Token{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, fmt.Errorf("verify password: %w", err)
	}
	if user.Disabled {
		return Token{}, ErrAccountDisabled
	}
	signed, err := s.issue(user.Username)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, TokenType: "bearer"}, nil
}

func (s *Service) issue(subject string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and verifies a bearer token, returning its claims.
// Expired, tampered or foreign-subject tokens are rejected.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	user, known := s.users[claims.Subject]
	if !known {
		return nil, ErrInvalidToken
	}
	if user.Disabled {
		return nil, ErrAccountDisabled
	}
	return claims, nil
}

// Middleware gates a handler behind a valid bearer credential. Rejections
// carry a challenge header and never reach the wrapped handler.
func (s *Service) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(w, "missing bearer credential")
			return
		}
		if _, err := s.ValidateToken(parts[1]); err != nil {
			unauthorized(w, err.Error())
			return
		}
		next(w, r)
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, message, http.StatusUnauthorized)
}

// HashPassword produces the bcrypt hash expected in the admin credential
// configuration. Used by the hash-generation command.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
