// Package shipmentrepo persists shipment aggregates with GORM. It works on
// PostgreSQL in production and SQLite in development and tests.
package shipmentrepo

import (
	"time"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentDTO is the shipments row. The history lives in its own table so
// appends never rewrite the parent row beyond status and version.
type ShipmentDTO struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TrackingCode string     `gorm:"size:64;not null;uniqueIndex"`
	OwnerID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	AgentID      *uuid.UUID `gorm:"type:uuid;index"`
	Status       int        `gorm:"not null;index"`

	PackageName string          `gorm:"size:256;not null"`
	Sender      PartyDTO        `gorm:"embedded;embeddedPrefix:sender_"`
	Receiver    PartyDTO        `gorm:"embedded;embeddedPrefix:receiver_"`
	Origin      string          `gorm:"size:512;not null"`
	Destination string          `gorm:"size:512;not null"`
	Cost        decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	Location LocationDTO `gorm:"embedded;embeddedPrefix:location_"`
	Proof    ProofDTO    `gorm:"embedded;embeddedPrefix:proof_"`

	Version   int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	History []HistoryEntryDTO `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`
}

func (ShipmentDTO) TableName() string {
	return "shipments"
}

type PartyDTO struct {
	Name    string `gorm:"size:256"`
	Address string `gorm:"size:512"`
	Phone   string `gorm:"size:64"`
}

// LocationDTO holds the last-write-wins current location; all columns are
// NULL until the first sample is stored.
type LocationDTO struct {
	Lat *float64
	Lng *float64
	At  *time.Time `gorm:"index"`
}

// ProofDTO stores signature and photo as TEXT since clients may send Base64
// payloads instead of references.
type ProofDTO struct {
	Signature *string `gorm:"type:text"`
	Photo     *string `gorm:"type:text"`
	At        *time.Time
}

// HistoryEntryDTO is one append-only history row. Seq is the entry's index in
// the history; (shipment_id, seq) is the primary key, so two writers can never
// append the same slot.
type HistoryEntryDTO struct {
	ShipmentID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq        int64     `gorm:"primaryKey;autoIncrement:false"`
	Status     int       `gorm:"not null"`
	Location   string    `gorm:"size:256;not null"`
	At         time.Time `gorm:"not null"`
}

func (HistoryEntryDTO) TableName() string {
	return "shipment_history"
}

func fromDomain(s *shipment.Shipment) ShipmentDTO {
	snap := s.Snapshot()
	d := snap.Details

	dto := ShipmentDTO{
		ID:           snap.ID.Bytes(),
		TrackingCode: snap.TrackingCode.String(),
		OwnerID:      snap.Owner.Bytes(),
		Status:       int(snap.Status),
		PackageName:  d.PackageName(),
		Sender:       partyDTO(d.Sender()),
		Receiver:     partyDTO(d.Receiver()),
		Origin:       d.From(),
		Destination:  d.To(),
		Cost:         d.Cost(),
		Version:      snap.Version,
		CreatedAt:    snap.CreatedAt,
		UpdatedAt:    snap.UpdatedAt,
	}

	if snap.Agent != nil {
		agent := snap.Agent.Bytes()
		dto.AgentID = &agent
	}

	if loc := snap.CurrentLocation; loc != nil {
		lat, lng, at := loc.Point().Lat(), loc.Point().Lng(), loc.At()
		dto.Location = LocationDTO{Lat: &lat, Lng: &lng, At: &at}
	}

	if p := snap.Proof; p != nil {
		signature, photo, at := p.Signature(), p.Photo(), p.At()
		dto.Proof = ProofDTO{Signature: &signature, Photo: &photo, At: &at}
	}

	dto.History = make([]HistoryEntryDTO, 0, len(snap.History))
	for i, e := range snap.History {
		dto.History = append(dto.History, historyDTO(dto.ID, int64(i), e))
	}

	return dto
}

func historyDTO(shipmentID uuid.UUID, seq int64, e shipment.HistoryEntry) HistoryEntryDTO {
	return HistoryEntryDTO{
		ShipmentID: shipmentID,
		Seq:        seq,
		Status:     int(e.Status()),
		Location:   e.Location(),
		At:         e.At(),
	}
}

func partyDTO(p shipment.Party) PartyDTO {
	return PartyDTO{
		Name:    p.Name,
		Address: p.Address,
		Phone:   p.Phone,
	}
}

func toDomain(dto ShipmentDTO) (*shipment.Shipment, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	owner, err := kernel.UUIDFromBytes(dto.OwnerID[:])
	if err != nil {
		return nil, err
	}

	details, err := shipment.NewDetails(
		dto.PackageName,
		shipment.Party(dto.Sender),
		shipment.Party(dto.Receiver),
		dto.Origin,
		dto.Destination,
		dto.Cost,
	)
	if err != nil {
		return nil, err
	}

	snap := shipment.Snapshot{
		ID:           id,
		TrackingCode: shipment.TrackingCode(dto.TrackingCode),
		Owner:        owner,
		Status:       shipment.Status(dto.Status),
		Details:      details,
		Version:      dto.Version,
		CreatedAt:    dto.CreatedAt.UTC(),
		UpdatedAt:    dto.UpdatedAt.UTC(),
	}

	if dto.AgentID != nil {
		agent, agentErr := kernel.UUIDFromBytes(dto.AgentID[:])
		if agentErr != nil {
			return nil, agentErr
		}
		snap.Agent = &agent
	}

	snap.History = make([]shipment.HistoryEntry, 0, len(dto.History))
	for _, h := range dto.History {
		entry, entryErr := shipment.NewHistoryEntry(shipment.Status(h.Status), h.Location, h.At)
		if entryErr != nil {
			return nil, entryErr
		}
		snap.History = append(snap.History, entry)
	}

	if loc := dto.Location; loc.Lat != nil && loc.Lng != nil && loc.At != nil {
		point, pointErr := kernel.NewGeoPoint(*loc.Lat, *loc.Lng)
		if pointErr != nil {
			return nil, pointErr
		}
		sample, sampleErr := shipment.NewLocationSample(point, *loc.At)
		if sampleErr != nil {
			return nil, sampleErr
		}
		snap.CurrentLocation = &sample
	}

	if p := dto.Proof; p.Signature != nil && p.At != nil {
		photo := ""
		if p.Photo != nil {
			photo = *p.Photo
		}
		proof, proofErr := shipment.NewProofOfDelivery(*p.Signature, photo, *p.At)
		if proofErr != nil {
			return nil, proofErr
		}
		snap.Proof = &proof
	}

	return shipment.RestoreShipment(snap)
}
