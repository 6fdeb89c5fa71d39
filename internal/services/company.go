package services

import (
	"context"
	"errors"

	"github.com/diewo77/go-facture/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CompanyService gives access to the singleton company row.
type CompanyService struct {
	db         *gorm.DB
	defaultVAT decimal.Decimal
}

func NewCompanyService(db *gorm.DB) *CompanyService {
	return &CompanyService{db: db, defaultVAT: models.DefaultVATRate}
}

// WithDefaultVAT sets the VAT rate given to a company created on first access.
func (s *CompanyService) WithDefaultVAT(rate decimal.Decimal) *CompanyService {
	cp := *s
	cp.defaultVAT = rate
	return &cp
}

// WithTx returns a service bound to tx.
func (s *CompanyService) WithTx(tx *gorm.DB) *CompanyService {
	cp := *s
	cp.db = tx
	return &cp
}

// Get returns the company, creating a default one if none exists yet.
func (s *CompanyService) Get(ctx context.Context) (*models.Company, error) {
	var c models.Company
	err := s.db.WithContext(ctx).Order("id").First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageErr("load company", err)
	}
	c = models.Company{Name: models.DefaultCompanyName, DefaultVATRate: s.defaultVAT}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, storageErr("create company", err)
	}
	return &c, nil
}

// Update overwrites the company fields, keeping its id.
func (s *CompanyService) Update(ctx context.Context, in models.Company) (*models.Company, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	in.ID = current.ID
	in.CreatedAt = current.CreatedAt
	if in.Name == "" {
		return nil, &ValidationError{Violations: map[string]string{"name": "required"}}
	}
	if err := s.db.WithContext(ctx).Save(&in).Error; err != nil {
		return nil, storageErr("update company", err)
	}
	return &in, nil
}
