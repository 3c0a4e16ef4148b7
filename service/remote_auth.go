package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"github.com/sirupsen/logrus"

	"mtaaspace/domain"
	"mtaaspace/errors"
	"mtaaspace/store"
)

// RemoteAuthBackend talks to the authentication service:
// POST /auth/login and /auth/signup answer {token, user}; GET /auth/me
// resolves a bearer token. Rejected credentials come back as AuthError,
// an unreachable or garbled collaborator as TransportError.
type RemoteAuthBackend struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

func NewRemoteAuthBackend(host, port string, httpClient *http.Client, logger *logrus.Logger) *RemoteAuthBackend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RemoteAuthBackend{
		baseURL: fmt.Sprintf("http://%s:%s/auth", host, port),
		client:  httpClient,
		cb:      store.CircuitBreaker("authService"),
		logger:  logger,
	}
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (backend *RemoteAuthBackend) Login(ctx context.Context, credentials *domain.Credentials) (*domain.Session, error) {
	return backend.exchange(ctx, "/login", credentials)
}

func (backend *RemoteAuthBackend) Signup(ctx context.Context, request *domain.SignupRequest) (*domain.Session, error) {
	return backend.exchange(ctx, "/signup", request)
}

func (backend *RemoteAuthBackend) exchange(ctx context.Context, path string, payload interface{}) (*domain.Session, error) {
	op := "authService POST " + path

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	raw, err := backend.post(ctx, path, body)
	if err != nil {
		backend.logger.Printf("%s: %v", op, err)
		return nil, err
	}

	var response authResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, errors.NewTransportError(op, fmt.Errorf("malformed response: %w", err))
	}
	if response.Token == "" {
		return nil, errors.NewTransportError(op, fmt.Errorf("response missing token"))
	}
	return &domain.Session{Token: response.Token, User: response.User}, nil
}

func (backend *RemoteAuthBackend) WhoAmI(ctx context.Context, token string) (*domain.User, error) {
	op := "authService GET /me"

	raw, err := backend.roundTrip(ctx, http.MethodGet, "/me", nil, token)
	if err != nil {
		backend.logger.Printf("%s: %v", op, err)
		return nil, err
	}

	var response struct {
		User domain.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, errors.NewTransportError(op, fmt.Errorf("malformed response: %w", err))
	}
	return &response.User, nil
}

func (backend *RemoteAuthBackend) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return backend.roundTrip(ctx, http.MethodPost, path, body, "")
}

func (backend *RemoteAuthBackend) roundTrip(ctx context.Context, method, path string, body []byte, token string) ([]byte, error) {
	op := "authService " + method + " " + path

	result, err := backend.cb.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		request, err := http.NewRequestWithContext(ctx, method, backend.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			request.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}

		response, err := backend.client.Do(request)
		if err != nil {
			return nil, errors.NewTransportError(op, err)
		}
		defer response.Body.Close()

		payload, err := io.ReadAll(response.Body)
		if err != nil {
			return nil, errors.NewTransportError(op, err)
		}

		if response.StatusCode >= 400 && response.StatusCode < 500 {
			return nil, errors.NewAuthError(authMessage(payload, response.StatusCode))
		}
		if response.StatusCode >= 500 {
			return nil, errors.NewTransportError(op, fmt.Errorf("status %d", response.StatusCode))
		}
		return payload, nil
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.NewTransportError(op, err)
	}
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func authMessage(payload []byte, status int) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return errors.InvalidCredentials
	}
	return fmt.Sprintf("authentication rejected with status %d", status)
}
