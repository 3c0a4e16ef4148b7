package application

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mtaaspace/domain"
	"mtaaspace/errors"
	"mtaaspace/store"
)

// InquiryService records contact requests from renters to agents. Newest
// first, persisted write-through under KeyInquiries.
type InquiryService struct {
	kv       domain.KeyValueStore
	bus      *domain.ChangeBus
	logger   *logrus.Logger
	validate *validator.Validate
}

func NewInquiryService(kv domain.KeyValueStore, bus *domain.ChangeBus, logger *logrus.Logger) *InquiryService {
	return &InquiryService{
		kv:       kv,
		bus:      bus,
		logger:   logger,
		validate: validator.New(),
	}
}

func (service *InquiryService) load(ctx context.Context) ([]*domain.Inquiry, error) {
	var inquiries []*domain.Inquiry
	if _, err := store.Load(ctx, service.kv, domain.KeyInquiries, &inquiries); err != nil {
		return nil, err
	}
	return inquiries, nil
}

func (service *InquiryService) save(ctx context.Context, inquiries []*domain.Inquiry) error {
	return store.Save(ctx, service.kv, domain.KeyInquiries, inquiries)
}

func (service *InquiryService) Send(ctx context.Context, draft *domain.InquiryDraft) (*domain.Inquiry, error) {
	if draft == nil {
		return nil, errors.NewValidationError(errors.InvalidRequestFormatError)
	}
	if err := service.validate.Struct(draft); err != nil {
		return nil, errors.NewValidationError("Name, email and message are required")
	}

	inquiries, err := service.load(ctx)
	if err != nil {
		return nil, err
	}

	inquiry := &domain.Inquiry{
		ID:         uuid.NewString(),
		PropertyID: domain.NormalizeID(draft.PropertyID),
		AgentID:    domain.NormalizeID(draft.AgentID),
		Name:       draft.Name,
		Email:      draft.Email,
		Phone:      draft.Phone,
		Message:    draft.Message,
		Status:     domain.InquiryNew,
		Read:       false,
		CreatedAt:  time.Now().UTC(),
	}

	inquiries = append([]*domain.Inquiry{inquiry}, inquiries...)
	if err := service.save(ctx, inquiries); err != nil {
		return nil, err
	}

	service.bus.Publish(domain.InquiriesChanged)
	return inquiry, nil
}

func (service *InquiryService) All(ctx context.Context) ([]*domain.Inquiry, error) {
	return service.load(ctx)
}

// ForAgent returns the inquiries addressed to one agent, newest first.
func (service *InquiryService) ForAgent(ctx context.Context, agentID string) ([]*domain.Inquiry, error) {
	inquiries, err := service.load(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Inquiry, 0)
	for _, inquiry := range inquiries {
		if domain.SameID(inquiry.AgentID, agentID) {
			result = append(result, inquiry)
		}
	}
	return result, nil
}

func (service *InquiryService) MarkRead(ctx context.Context, id string) error {
	return service.mutate(ctx, id, func(inquiry *domain.Inquiry) {
		inquiry.Read = true
	})
}

func (service *InquiryService) UpdateStatus(ctx context.Context, id string, status domain.InquiryStatus) error {
	return service.mutate(ctx, id, func(inquiry *domain.Inquiry) {
		inquiry.Status = status
	})
}

func (service *InquiryService) mutate(ctx context.Context, id string, apply func(*domain.Inquiry)) error {
	inquiries, err := service.load(ctx)
	if err != nil {
		return err
	}

	for _, inquiry := range inquiries {
		if domain.SameID(inquiry.ID, id) {
			apply(inquiry)
			if err := service.save(ctx, inquiries); err != nil {
				return err
			}
			service.bus.Publish(domain.InquiriesChanged)
			return nil
		}
	}
	return errors.NewNotFoundError("inquiry", id)
}
