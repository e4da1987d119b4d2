package shipmentrepo

import (
	"context"
	"errors"
	"fmt"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/ports"
	"shiptrack/internal/pkg/errs"

	"gorm.io/gorm"
)

var _ ports.ShipmentRepository = (*GormShipmentRepository)(nil)

// GormShipmentRepository implements ports.ShipmentRepository. Every mutation
// is a single UPDATE whose WHERE clause carries the precondition, followed by
// a history insert when the status changes. The row lock taken by the UPDATE
// serializes competing writers; losers see zero affected rows.
type GormShipmentRepository struct {
	db *gorm.DB
}

func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

func (r *GormShipmentRepository) Add(ctx context.Context, aggregate *shipment.Shipment) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewObjectAlreadyExistsError("tracking code", aggregate.TrackingCode())
		}
		return err
	}
	return nil
}

func (r *GormShipmentRepository) Get(ctx context.Context, id kernel.UUID) (*shipment.Shipment, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto ShipmentDTO
	err := withHistory(r.db.WithContext(ctx)).First(&dto, "id = ?", id.Bytes()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewObjectNotFoundError("shipment", id.String())
	}
	if err != nil {
		return nil, err
	}

	return toDomain(dto)
}

func (r *GormShipmentRepository) GetByTrackingCode(ctx context.Context, code shipment.TrackingCode) (*shipment.Shipment, error) {
	var dto ShipmentDTO
	err := withHistory(r.db.WithContext(ctx)).First(&dto, "tracking_code = ?", code.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewObjectNotFoundError("tracking code", code.String())
	}
	if err != nil {
		return nil, err
	}

	return toDomain(dto)
}

func (r *GormShipmentRepository) ConditionalAssign(
	ctx context.Context,
	id kernel.UUID,
	agentID kernel.UUID,
	entry shipment.HistoryEntry,
) (*shipment.Shipment, error) {
	if err := errors.Join(id.Validate(), agentID.Validate(), entry.Validate()); err != nil {
		return nil, err
	}
	if entry.Status() != shipment.InTransit {
		return nil, errs.NewInvalidTransitionError(shipment.Pending, entry.Status())
	}

	db := r.db.WithContext(ctx)
	result := db.Model(&ShipmentDTO{}).
		Where("id = ? AND agent_id IS NULL AND status = ?", id.Bytes(), int(shipment.Pending)).
		Updates(map[string]any{
			"agent_id":   agentID.Bytes(),
			"status":     int(shipment.InTransit),
			"version":    gorm.Expr("version + 1"),
			"updated_at": entry.At(),
		})
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		return nil, r.explainLostClaim(ctx, id)
	}

	var version int64
	if err := db.Model(&ShipmentDTO{}).Select("version").Where("id = ?", id.Bytes()).Scan(&version).Error; err != nil {
		return nil, err
	}
	if err := r.appendHistory(ctx, id, version-1, entry); err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

// explainLostClaim turns a zero-row claim into the outcome the caller sees.
func (r *GormShipmentRepository) explainLostClaim(ctx context.Context, id kernel.UUID) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Agent() != nil {
		return errs.NewAlreadyAssignedError("shipment", current.TrackingCode())
	}
	return errs.NewInvalidTransitionErrorWithCause(current.Status(), shipment.InTransit,
		errors.New("only pending shipments can be claimed"))
}

func (r *GormShipmentRepository) AppendHistoryAndSetStatus(ctx context.Context, id kernel.UUID, change shipment.StatusChange) error {
	if err := errors.Join(id.Validate(), change.Entry.Validate()); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&ShipmentDTO{}).
		Where("id = ? AND status = ? AND version = ?", id.Bytes(), int(change.From), change.ExpectedVersion).
		Updates(map[string]any{
			"status":     int(change.To()),
			"version":    gorm.Expr("version + 1"),
			"updated_at": change.Entry.At(),
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return errs.NewConflictError("shipment", id.String(), change.ExpectedVersion)
	}

	// version equals history length, so the new entry takes slot ExpectedVersion.
	return r.appendHistory(ctx, id, change.ExpectedVersion, change.Entry)
}

func (r *GormShipmentRepository) AttachProofOfDelivery(ctx context.Context, id kernel.UUID, proof shipment.ProofOfDelivery) error {
	if err := errors.Join(id.Validate(), proof.Validate()); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&ShipmentDTO{}).
		Where("id = ? AND status = ?", id.Bytes(), int(shipment.Delivered)).
		Updates(map[string]any{
			"proof_signature": proof.Signature(),
			"proof_photo":     proof.Photo(),
			"proof_at":        proof.At(),
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		current, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		return errs.NewValueIsInvalidErrorWithCause("proof of delivery",
			fmt.Errorf("%s shipment cannot carry proof of delivery", current.Status()))
	}
	return nil
}

func (r *GormShipmentRepository) SetCurrentLocation(
	ctx context.Context,
	code shipment.TrackingCode,
	sample shipment.LocationSample,
) (bool, error) {
	if err := sample.Validate(); err != nil {
		return false, err
	}

	db := r.db.WithContext(ctx)
	result := db.Model(&ShipmentDTO{}).
		Where("tracking_code = ? AND (location_at IS NULL OR location_at < ?)", code.String(), sample.At()).
		Updates(map[string]any{
			"location_lat": sample.Point().Lat(),
			"location_lng": sample.Point().Lng(),
			"location_at":  sample.At(),
		})
	if result.Error != nil {
		return false, result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&ShipmentDTO{}).Where("tracking_code = ?", code.String()).Count(&count).Error; err != nil {
			return false, err
		}
		if count == 0 {
			return false, errs.NewObjectNotFoundError("tracking code", code.String())
		}
		return false, nil
	}
	return true, nil
}

func (r *GormShipmentRepository) appendHistory(ctx context.Context, id kernel.UUID, seq int64, entry shipment.HistoryEntry) error {
	row := historyDTO(id.Bytes(), seq, entry)
	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.NewConflictError("shipment", id.String(), seq)
	}
	return err
}

func withHistory(db *gorm.DB) *gorm.DB {
	return db.Preload("History", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("seq")
	})
}
