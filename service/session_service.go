package application

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mtaaspace/domain"
	"mtaaspace/errors"
	"mtaaspace/store"
)

// SessionService owns the current authenticated identity. The persisted
// token and user are written and cleared together: a login either lands
// both or neither.
type SessionService struct {
	kv       domain.KeyValueStore
	backend  domain.AuthBackend
	bus      *domain.ChangeBus
	tracer   trace.Tracer
	logger   *logrus.Logger
	validate *validator.Validate

	session *domain.Session
}

func NewSessionService(kv domain.KeyValueStore, backend domain.AuthBackend, bus *domain.ChangeBus, tracer trace.Tracer, logger *logrus.Logger) *SessionService {
	service := &SessionService{
		kv:       kv,
		backend:  backend,
		bus:      bus,
		tracer:   tracer,
		logger:   logger,
		validate: validator.New(),
	}
	service.hydrate(context.Background())
	return service
}

// hydrate restores the session from the persisted token. Any failure
// degrades silently to unauthenticated; a token the backend no longer
// accepts is cleared so it is not retried on the next start.
func (service *SessionService) hydrate(ctx context.Context) {
	var token string
	ok, err := store.Load(ctx, service.kv, domain.KeyToken, &token)
	if err != nil || !ok || token == "" {
		return
	}

	user, err := service.backend.WhoAmI(ctx, token)
	if err != nil {
		service.logger.Printf("stale session token, clearing: %v", err)
		service.clearPersisted(ctx)
		return
	}

	service.session = &domain.Session{Token: token, User: *user}
	if err := store.Save(ctx, service.kv, domain.KeyUser, user); err != nil {
		service.logger.Printf("error refreshing persisted user: %v", err)
	}
}

func (service *SessionService) Login(ctx context.Context, credentials *domain.Credentials) (*domain.Session, error) {
	ctx, span := service.tracer.Start(ctx, "SessionService.Login")
	defer span.End()

	if credentials == nil || service.validate.Struct(credentials) != nil {
		return nil, errors.NewValidationError("Email and password are required")
	}

	session, err := service.backend.Login(ctx, credentials)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := service.persistSession(ctx, session); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	service.session = session
	service.bus.Publish(domain.SessionChanged)
	return session, nil
}

func (service *SessionService) Signup(ctx context.Context, request *domain.SignupRequest) (*domain.Session, error) {
	ctx, span := service.tracer.Start(ctx, "SessionService.Signup")
	defer span.End()

	if request == nil {
		return nil, errors.NewValidationError(errors.InvalidRequestFormatError)
	}
	if err := service.validate.Struct(request); err != nil {
		return nil, errors.NewValidationError("%s", signupValidationMessage(err))
	}

	session, err := service.backend.Signup(ctx, request)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := service.persistSession(ctx, session); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	service.session = session
	service.bus.Publish(domain.SessionChanged)
	return session, nil
}

// persistSession writes the token first and rolls it back if the user write
// fails, so the store never holds one half of a session.
func (service *SessionService) persistSession(ctx context.Context, session *domain.Session) error {
	if err := store.Save(ctx, service.kv, domain.KeyToken, session.Token); err != nil {
		return err
	}
	if err := store.Save(ctx, service.kv, domain.KeyUser, session.User); err != nil {
		if delErr := service.kv.Delete(ctx, domain.KeyToken); delErr != nil {
			service.logger.Printf("error rolling back token after failed user write: %v", delErr)
		}
		return err
	}
	return nil
}

// Logout clears the session unconditionally. Calling it while logged out is
// a no-op.
func (service *SessionService) Logout(ctx context.Context) {
	ctx, span := service.tracer.Start(ctx, "SessionService.Logout")
	defer span.End()

	service.clearPersisted(ctx)
	if service.session != nil {
		service.session = nil
		service.bus.Publish(domain.SessionChanged)
	}
}

func (service *SessionService) clearPersisted(ctx context.Context) {
	if err := service.kv.Delete(ctx, domain.KeyToken); err != nil {
		service.logger.Printf("error clearing persisted token: %v", err)
	}
	if err := service.kv.Delete(ctx, domain.KeyUser); err != nil {
		service.logger.Printf("error clearing persisted user: %v", err)
	}
}

// Current returns a copy of the active session, or nil when logged out.
func (service *SessionService) Current() *domain.Session {
	if service.session == nil {
		return nil
	}
	session := *service.session
	return &session
}

func (service *SessionService) IsAuthenticated() bool {
	return service.session != nil
}

func signupValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.InvalidRequestFormatError
	}
	e := verrs[0]
	switch e.Tag() {
	case "required":
		return e.Field() + " cannot be empty"
	case "email":
		return "Invalid email format"
	case "min":
		return "Password must be at least " + e.Param() + " characters"
	case "oneof":
		return "UserType should be either 'renter' or 'agent'"
	default:
		return errors.InvalidRequestFormatError
	}
}
