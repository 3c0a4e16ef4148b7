package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mtaaspace/domain"
	"mtaaspace/errors"
)

// PropertyRemoteStore forwards every collection operation to the property
// service. Records come back with either "id" or "_id" and the identifier
// as number or string; decoding normalizes them before anything else sees
// them.
type PropertyRemoteStore struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	tracer  trace.Tracer
}

func NewPropertyRemoteStore(host, port string, httpClient *http.Client, tracer trace.Tracer) *PropertyRemoteStore {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PropertyRemoteStore{
		baseURL: fmt.Sprintf("http://%s:%s/properties", host, port),
		client:  httpClient,
		cb:      CircuitBreaker("propertyService"),
		tracer:  tracer,
	}
}

// CircuitBreaker trips after repeated collaborator failures; client-side
// (4xx) answers do not count as failures.
func CircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(
		gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     10 * time.Second,
			Interval:    0,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 2
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Printf("Circuit Breaker '%s' changed from '%s' to '%s'\n", name, from, to)
			},
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				return !errors.IsTransport(err)
			},
		},
	)
}

func (s *PropertyRemoteStore) do(ctx context.Context, method, path string, body interface{}, dest interface{}) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.roundTrip(ctx, method, path, body, dest)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return errors.NewTransportError("propertyService "+method+" "+path, err)
	}
	return err
}

func (s *PropertyRemoteStore) roundTrip(ctx context.Context, method, path string, body interface{}, dest interface{}) error {
	op := "propertyService " + method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := s.client.Do(request)
	if err != nil {
		return errors.NewTransportError(op, err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return errors.NewTransportError(op, err)
	}

	if response.StatusCode == http.StatusNotFound {
		return errors.NewNotFoundError("property", "")
	}
	if response.StatusCode >= 400 && response.StatusCode < 500 {
		return errors.NewValidationError("%s", serverMessage(payload, response.StatusCode))
	}
	if response.StatusCode >= 500 {
		return errors.NewTransportError(op, fmt.Errorf("status %d", response.StatusCode))
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return errors.NewTransportError(op, fmt.Errorf("malformed response: %w", err))
	}
	return nil
}

// serverMessage digs the human-readable message out of an error payload,
// falling back to the raw body when it is not the usual {message: ...}.
func serverMessage(payload []byte, status int) string {
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
	if len(payload) > 0 {
		return string(payload)
	}
	return fmt.Sprintf("request rejected with status %d", status)
}

func (s *PropertyRemoteStore) GetAll(ctx context.Context) ([]*domain.Property, error) {
	ctx, span := s.tracer.Start(ctx, "PropertyRemoteStore.GetAll")
	defer span.End()

	var properties []*domain.Property
	if err := s.do(ctx, http.MethodGet, "", nil, &properties); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return properties, nil
}

func (s *PropertyRemoteStore) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	ctx, span := s.tracer.Start(ctx, "PropertyRemoteStore.GetByID")
	defer span.End()

	var property domain.Property
	err := s.do(ctx, http.MethodGet, "/"+url.PathEscape(id), nil, &property)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("property", id)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &property, nil
}

func (s *PropertyRemoteStore) Insert(ctx context.Context, property *domain.Property) (*domain.Property, error) {
	ctx, span := s.tracer.Start(ctx, "PropertyRemoteStore.Insert")
	defer span.End()

	var stored domain.Property
	if err := s.do(ctx, http.MethodPost, "", property, &stored); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &stored, nil
}

func (s *PropertyRemoteStore) Update(ctx context.Context, property *domain.Property) (*domain.Property, error) {
	ctx, span := s.tracer.Start(ctx, "PropertyRemoteStore.Update")
	defer span.End()

	var stored domain.Property
	err := s.do(ctx, http.MethodPut, "/"+url.PathEscape(property.ID), property, &stored)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("property", property.ID)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &stored, nil
}

func (s *PropertyRemoteStore) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "PropertyRemoteStore.Delete")
	defer span.End()

	err := s.do(ctx, http.MethodDelete, "/"+url.PathEscape(id), nil, nil)
	if err != nil {
		if errors.IsNotFound(err) {
			return errors.NewNotFoundError("property", id)
		}
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
