package shipmentrepo

import (
	"context"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/ports"

	"gorm.io/gorm"
)

var _ ports.ShipmentReader = (*GormShipmentReader)(nil)

// GormShipmentReader serves the read side straight from the connection
// pool, outside any unit of work.
type GormShipmentReader struct {
	db   *gorm.DB
	repo *GormShipmentRepository
}

func NewGormShipmentReader(db *gorm.DB) *GormShipmentReader {
	return &GormShipmentReader{
		db:   db,
		repo: NewGormShipmentRepository(db),
	}
}

func (r *GormShipmentReader) Get(ctx context.Context, id kernel.UUID) (*shipment.Shipment, error) {
	return r.repo.Get(ctx, id)
}

func (r *GormShipmentReader) GetByTrackingCode(ctx context.Context, code shipment.TrackingCode) (*shipment.Shipment, error) {
	return r.repo.GetByTrackingCode(ctx, code)
}

func (r *GormShipmentReader) ListByOwner(ctx context.Context, owner kernel.UUID) ([]*shipment.Shipment, error) {
	return r.find(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("owner_id = ?", owner.Bytes())
	})
}

func (r *GormShipmentReader) ListForAgent(ctx context.Context, agent kernel.UUID) ([]*shipment.Shipment, error) {
	return r.find(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("(agent_id IS NULL AND status = ?) OR agent_id = ?", int(shipment.Pending), agent.Bytes())
	})
}

func (r *GormShipmentReader) ListAll(ctx context.Context) ([]*shipment.Shipment, error) {
	return r.find(ctx, func(db *gorm.DB) *gorm.DB { return db })
}

func (r *GormShipmentReader) find(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]*shipment.Shipment, error) {
	var dtos []ShipmentDTO
	err := withHistory(r.db.WithContext(ctx)).
		Scopes(scope).
		Order("created_at DESC").
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	list := make([]*shipment.Shipment, 0, len(dtos))
	for _, dto := range dtos {
		s, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}
