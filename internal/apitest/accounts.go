package apitest

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/skycart/internal/auth"
	"github.com/example/skycart/internal/readmodel"
)

// SigningKey signs the fake's tokens. Clients never see it.
const SigningKey = "apitest-signing-key"

var errBadCredentials = errors.New("invalid email or password")

type account struct {
	user         readmodel.User
	passwordHash []byte
}

func hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
}

func (a *account) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
}

// issueToken signs a token for user; callers hold s.mu.
func (s *Server) issueToken(user readmodel.User) (string, error) {
	now := time.Now()
	claims := auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID,
			ID:        fmt.Sprintf("tok-%d", s.nextSeq()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(SigningKey))
	if err != nil {
		return "", err
	}
	s.tokens[token] = user.ID
	return token, nil
}

// expired only judges JWTs; opaque tokens live until revoked.
func expired(token string) bool {
	_, err := auth.InspectToken(token)
	return errors.Is(err, auth.ErrExpiredToken)
}

// OpaqueToken issues a non-JWT session token for email, the way servers
// with server-side sessions do.
func (s *Server) OpaqueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok {
		panic("apitest: unknown account " + email)
	}
	token := fmt.Sprintf("opaque-session-%d", s.nextSeq())
	s.tokens[token] = acct.user.ID
	return token
}

func (s *Server) nextSeq() int {
	s.seq++
	return s.seq
}

// AddUser registers an account directly and returns its user record.
func (s *Server) AddUser(name, email, password, role string) readmodel.User {
	hash, err := hashPassword(password)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	created := time.Now().UTC()
	user := readmodel.User{
		ID:        fmt.Sprintf("user-%d", s.nextSeq()),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: &created,
	}
	s.accounts[email] = &account{user: user, passwordHash: hash}
	return user
}

// Token logs email in without a request and returns a fresh token.
func (s *Server) Token(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok {
		panic("apitest: unknown account " + email)
	}
	token, err := s.issueToken(acct.user)
	if err != nil {
		panic(err)
	}
	return token
}

// User returns the current record for email.
func (s *Server) User(email string) (readmodel.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok {
		return readmodel.User{}, false
	}
	return acct.user, true
}

func (s *Server) login(email, password string) (readmodel.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok || !acct.checkPassword(password) {
		return readmodel.User{}, "", errBadCredentials
	}
	token, err := s.issueToken(acct.user)
	return acct.user, token, err
}

func (s *Server) userByID(id string) (*account, bool) {
	for _, acct := range s.accounts {
		if acct.user.ID == id {
			return acct, true
		}
	}
	return nil, false
}
