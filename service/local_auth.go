package application

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/cristalhq/jwt/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"mtaaspace/domain"
	"mtaaspace/errors"
	"mtaaspace/store"
)

// LocalAuthBackend authenticates against accounts persisted in the local
// store, for deployments with no authentication service. Passwords are kept
// as bcrypt hashes under KeyUsers; sessions get a signed HS256 token.
type LocalAuthBackend struct {
	kv       domain.KeyValueStore
	secret   []byte
	tokenTTL time.Duration
	logger   *logrus.Logger
}

type storedUser struct {
	domain.User
	PasswordHash string `json:"passwordHash"`
}

type Claims struct {
	UserID    string          `json:"user_id"`
	Email     string          `json:"email"`
	Role      domain.UserType `json:"userType"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func NewLocalAuthBackend(kv domain.KeyValueStore, secret []byte, tokenTTL time.Duration, logger *logrus.Logger) *LocalAuthBackend {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &LocalAuthBackend{
		kv:       kv,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

func (backend *LocalAuthBackend) loadUsers(ctx context.Context) ([]storedUser, error) {
	var users []storedUser
	if _, err := store.Load(ctx, backend.kv, domain.KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (backend *LocalAuthBackend) Login(ctx context.Context, credentials *domain.Credentials) (*domain.Session, error) {
	users, err := backend.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(credentials.Email))
	for _, user := range users {
		if strings.ToLower(user.Email) != email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credentials.Password)) != nil {
			return nil, errors.NewAuthError(errors.InvalidCredentials)
		}
		token, err := backend.generateJWT(&user.User)
		if err != nil {
			return nil, err
		}
		return &domain.Session{Token: token, User: user.User}, nil
	}
	return nil, errors.NewAuthError(errors.InvalidCredentials)
}

func (backend *LocalAuthBackend) Signup(ctx context.Context, request *domain.SignupRequest) (*domain.Session, error) {
	users, err := backend.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(request.Email))
	for _, user := range users {
		if strings.ToLower(user.Email) == email {
			return nil, errors.NewAuthError(errors.EmailAlreadyExist)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := domain.User{
		ID:    uuid.NewString(),
		Name:  request.Name,
		Email: request.Email,
		Role:  request.Role,
		Phone: request.Phone,
	}

	users = append(users, storedUser{User: user, PasswordHash: string(hash)})
	if err := store.Save(ctx, backend.kv, domain.KeyUsers, users); err != nil {
		return nil, err
	}

	token, err := backend.generateJWT(&user)
	if err != nil {
		return nil, err
	}
	return &domain.Session{Token: token, User: user}, nil
}

func (backend *LocalAuthBackend) WhoAmI(ctx context.Context, token string) (*domain.User, error) {
	claims, err := backend.parseToken(token)
	if err != nil {
		return nil, errors.NewAuthError(errors.InvalidTokenError)
	}
	if !claims.ExpiresAt.IsZero() && time.Now().After(claims.ExpiresAt) {
		return nil, errors.NewAuthError(errors.InvalidTokenError)
	}

	users, err := backend.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if user.ID == claims.UserID {
			resolved := user.User
			return &resolved, nil
		}
	}
	return nil, errors.NewAuthError(errors.InvalidTokenError)
}

func (backend *LocalAuthBackend) generateJWT(user *domain.User) (string, error) {
	signer, err := jwt.NewSignerHS(jwt.HS256, backend.secret)
	if err != nil {
		log.Println(err)
		return "", err
	}

	builder := jwt.NewBuilder(signer)
	claims := &Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		ExpiresAt: time.Now().Add(backend.tokenTTL),
	}

	token, err := builder.Build(claims)
	if err != nil {
		log.Println(err)
		return "", err
	}
	return token.String(), nil
}

func (backend *LocalAuthBackend) parseToken(tokenString string) (*Claims, error) {
	verifier, err := jwt.NewVerifierHS(jwt.HS256, backend.secret)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse([]byte(tokenString), verifier)
	if err != nil {
		return nil, err
	}

	var claims Claims
	if err := jwt.ParseClaims(token.Bytes(), verifier, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}
