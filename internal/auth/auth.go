package auth

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// TokenTTL is the fixed session lifetime. There is no refresh path; clients
// re-login when a token lapses.
const TokenTTL = 7 * 24 * time.Hour

var (
	// ErrInvalidCredentials is returned for every login failure. Unknown
	// email and wrong password are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken covers bad signature, malformed structure, and expiry
	// alike. Verification never reports which check failed.
	ErrInvalidToken = errors.New("invalid token")

	ErrInvalidRole = errors.New("invalid role")
	ErrSelfDelete  = errors.New("cannot delete your own account")
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(h), err
}

type Service struct {
	store  UserStore
	secret []byte
}

func NewService(store UserStore, secret string) *Service {
	return &Service{
		store:  store,
		secret: []byte(secret),
	}
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*User, string, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	now := time.Now().UTC()
	u := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

type Claims struct {
	UserID string `json:"uid"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

func (s *Service) IssueToken(u *User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

func (s *Service) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

type adminsFile struct {
	Admins []struct {
		Name     string `yaml:"name"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"admins"`
}

// SeedAdminsFromFile creates admin accounts listed in a YAML file, skipping
// addresses that already exist. A missing file is not an error so deployments
// without a seed file start clean.
func (s *Service) SeedAdminsFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var af adminsFile
	if err := yaml.Unmarshal(data, &af); err != nil {
		return err
	}
	for _, a := range af.Admins {
		if a.Email == "" || a.Password == "" {
			continue
		}
		hash, err := HashPassword(a.Password)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		u := &User{
			ID:           uuid.NewString(),
			Name:         a.Name,
			Email:        NormalizeEmail(a.Email),
			PasswordHash: hash,
			Role:         RoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.store.Create(ctx, u); err != nil {
			if errors.Is(err, ErrEmailTaken) {
				continue
			}
			return err
		}
	}
	return nil
}
