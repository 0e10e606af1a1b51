package service

import (
	"context"
	"errors"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRequest struct {
	Name          string `json:"name" binding:"required"`
	CompanyName   string `json:"company_name"`
	TaxCode       string `json:"tax_code"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" binding:"omitempty,email"`
	Address       string `json:"address"`
}

type LocationRequest struct {
	Name string `json:"name" binding:"required"`
	Type string `json:"type" binding:"required,oneof=FACTORY WAREHOUSE YARD"`
}

type CustomerService interface {
	ListCustomers(ctx context.Context, page, limit int, search string) ([]model.Customer, int64, error)
	CreateCustomer(ctx context.Context, userID string, req CustomerRequest) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, userID string, id string, req CustomerRequest) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, userID string, id string) error
	ListLocations(ctx context.Context) ([]model.Location, error)
	CreateLocation(ctx context.Context, req LocationRequest) (*model.Location, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	locationRepo repository.LocationRepository
	recorder     AuditRecorder
	txManager    repository.TransactionManager
}

func NewCustomerService(customerRepo repository.CustomerRepository, locationRepo repository.LocationRepository, recorder AuditRecorder, txManager repository.TransactionManager) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		locationRepo: locationRepo,
		recorder:     recorder,
		txManager:    txManager,
	}
}

func (s *customerService) ListCustomers(ctx context.Context, page, limit int, search string) ([]model.Customer, int64, error) {
	return s.customerRepo.List(ctx, page, limit, search)
}

func (s *customerService) CreateCustomer(ctx context.Context, userID string, req CustomerRequest) (*model.Customer, error) {
	customer := model.Customer{
		Name:          req.Name,
		CompanyName:   req.CompanyName,
		TaxCode:       req.TaxCode,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		IsActive:      true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Create(txCtx, &customer); err != nil {
			return apperror.Internal("failed to create customer", err)
		}
		s.recorder.Record(txCtx, userID, AuditEntry{
			Action:     model.ActionCreateCustomer,
			EntityType: model.EntityCustomer,
			EntityID:   customer.ID.String(),
			EntityName: customer.Name,
			After:      customer,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, userID string, id string, req CustomerRequest) (*model.Customer, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid customer id")
	}

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("customer not found")
		}
		return nil, apperror.Internal("failed to load customer", err)
	}

	before := *customer
	customer.Name = req.Name
	customer.CompanyName = req.CompanyName
	customer.TaxCode = req.TaxCode
	customer.ContactPerson = req.ContactPerson
	customer.Phone = req.Phone
	customer.Email = req.Email
	customer.Address = req.Address

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Update(txCtx, customer); err != nil {
			return apperror.Internal("failed to update customer", err)
		}
		s.recorder.Record(txCtx, userID, AuditEntry{
			Action:     model.ActionUpdateCustomer,
			EntityType: model.EntityCustomer,
			EntityID:   customer.ID.String(),
			EntityName: customer.Name,
			Before:     before,
			After:      *customer,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return customer, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, userID string, id string) error {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid customer id")
	}

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("customer not found")
		}
		return apperror.Internal("failed to load customer", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Delete(txCtx, customerID); err != nil {
			return apperror.Internal("failed to delete customer", err)
		}
		s.recorder.Record(txCtx, userID, AuditEntry{
			Action:     model.ActionDeleteCustomer,
			EntityType: model.EntityCustomer,
			EntityID:   customer.ID.String(),
			EntityName: customer.Name,
			Before:     *customer,
		})
		return nil
	})
}

func (s *customerService) ListLocations(ctx context.Context) ([]model.Location, error) {
	return s.locationRepo.List(ctx)
}

func (s *customerService) CreateLocation(ctx context.Context, req LocationRequest) (*model.Location, error) {
	location := model.Location{
		Name:     req.Name,
		Type:     req.Type,
		IsActive: true,
	}
	if err := s.locationRepo.Create(ctx, &location); err != nil {
		return nil, apperror.Internal("failed to create location", err)
	}
	return &location, nil
}
