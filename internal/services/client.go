package services

import (
	"context"
	"fmt"

	"github.com/diewo77/go-facture/internal/models"
	"gorm.io/gorm"
)

// ClientService covers the client operations the document engine relies on.
type ClientService struct {
	db *gorm.DB
}

func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{db: db}
}

func (s *ClientService) Get(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound("client", id, err)
	}
	return &c, nil
}

// Deactivate hides a client without touching its documents.
func (s *ClientService) Deactivate(ctx context.Context, id uint) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return storageErr("deactivate client", s.db.WithContext(ctx).Model(c).Update("active", false).Error)
}

// Delete removes a client that owns no documents.
func (s *ClientService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Client
		if err := tx.First(&c, id).Error; err != nil {
			return notFound("client", id, err)
		}
		var count int64
		if err := tx.Model(&models.Document{}).Where("client_id = ?", id).Count(&count).Error; err != nil {
			return storageErr("count client documents", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %d documents", ErrClientHasDocuments, count)
		}
		return storageErr("delete client", tx.Delete(&c).Error)
	})
}
