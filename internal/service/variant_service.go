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

type VariantRequest struct {
	Code          string `json:"code" binding:"required"`
	Name          string `json:"name" binding:"required"`
	SizeMM        int    `json:"size_mm" binding:"required,gt=0"`
	PressureClass string `json:"pressure_class"`
	Color         string `json:"color"`
	UnitOfMeasure string `json:"unit_of_measure" binding:"omitempty,oneof=ROLL_METERS PIECES"`
}

type VariantResponse struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	SizeMM        int    `json:"size_mm"`
	PressureClass string `json:"pressure_class"`
	Color         string `json:"color"`
	UnitOfMeasure string `json:"unit_of_measure"`
	IsActive      bool   `json:"is_active"`
}

type VariantService interface {
	ListVariants(ctx context.Context, page, limit int, search string) ([]VariantResponse, int64, error)
	CreateVariant(ctx context.Context, userID string, req VariantRequest) (*VariantResponse, error)
	UpdateVariant(ctx context.Context, userID string, id string, req VariantRequest) (*VariantResponse, error)
	DeleteVariant(ctx context.Context, userID string, id string) error
}

type variantService struct {
	variantRepo repository.VariantRepository
	recorder    AuditRecorder
	txManager   repository.TransactionManager
}

func NewVariantService(variantRepo repository.VariantRepository, recorder AuditRecorder, txManager repository.TransactionManager) VariantService {
	return &variantService{variantRepo: variantRepo, recorder: recorder, txManager: txManager}
}

func (s *variantService) ListVariants(ctx context.Context, page, limit int, search string) ([]VariantResponse, int64, error) {
	variants, total, err := s.variantRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	res := make([]VariantResponse, 0, len(variants))
	for i := range variants {
		res = append(res, *mapVariant(&variants[i]))
	}
	return res, total, nil
}

func (s *variantService) CreateVariant(ctx context.Context, userID string, req VariantRequest) (*VariantResponse, error) {
	if _, err := s.variantRepo.FindByCode(ctx, req.Code); err == nil {
		return nil, apperror.Validation("variant code already exists")
	}

	uom := req.UnitOfMeasure
	if uom == "" {
		uom = model.UOMRollMeters
	}

	variant := model.ProductVariant{
		Code:          req.Code,
		Name:          req.Name,
		SizeMM:        req.SizeMM,
		PressureClass: req.PressureClass,
		Color:         req.Color,
		UnitOfMeasure: uom,
		IsActive:      true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.variantRepo.Create(txCtx, &variant); err != nil {
			return apperror.Internal("failed to create variant", err)
		}
		s.recorder.Record(txCtx, userID, AuditEntry{
			Action:     model.ActionCreateVariant,
			EntityType: model.EntityVariant,
			EntityID:   variant.ID.String(),
			EntityName: variant.Name,
			After:      variant,
			Details:    req,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return mapVariant(&variant), nil
}

func (s *variantService) UpdateVariant(ctx context.Context, userID string, id string, req VariantRequest) (*VariantResponse, error) {
	variantID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid variant id")
	}

	variant, err := s.variantRepo.FindByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("variant not found")
		}
		return nil, apperror.Internal("failed to load variant", err)
	}

	before := *variant
	variant.Code = req.Code
	variant.Name = req.Name
	variant.SizeMM = req.SizeMM
	variant.PressureClass = req.PressureClass
	variant.Color = req.Color
	if req.UnitOfMeasure != "" {
		variant.UnitOfMeasure = req.UnitOfMeasure
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.variantRepo.Update(txCtx, variant); err != nil {
			return apperror.Internal("failed to update variant", err)
		}
		s.recorder.Record(txCtx, userID, AuditEntry{
			Action:     model.ActionUpdateVariant,
			EntityType: model.EntityVariant,
			EntityID:   variant.ID.String(),
			EntityName: variant.Name,
			Before:     before,
			After:      *variant,
			Details:    req,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return mapVariant(variant), nil
}

func (s *variantService) DeleteVariant(ctx context.Context, userID string, id string) error {
	variantID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid variant id")
	}

	variant, err := s.variantRepo.FindByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("variant not found")
		}
		return apperror.Internal("failed to load variant", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.variantRepo.Delete(txCtx, variantID); err != nil {
			return apperror.Internal("failed to delete variant", err)
		}
		s.recorder.Record(txCtx, userID, AuditEntry{
			Action:     model.ActionDeleteVariant,
			EntityType: model.EntityVariant,
			EntityID:   variant.ID.String(),
			EntityName: variant.Name,
			Before:     *variant,
		})
		return nil
	})
}

func mapVariant(v *model.ProductVariant) *VariantResponse {
	return &VariantResponse{
		ID:            v.ID.String(),
		Code:          v.Code,
		Name:          v.Name,
		SizeMM:        v.SizeMM,
		PressureClass: v.PressureClass,
		Color:         v.Color,
		UnitOfMeasure: v.UnitOfMeasure,
		IsActive:      v.IsActive,
	}
}
