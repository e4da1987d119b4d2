package http

import (
	"github.com/shopspring/decimal"
)

// PartyRequest is a sender or receiver in CreateShipmentRequest.
type PartyRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
	Phone   string `json:"phone" validate:"max=50"`
}

// CreateShipmentRequest is the body of POST /api/v1/shipments.
// Cost accepts a JSON number or a decimal string; its range is checked by
// shipment.NewDetails. Length limits mirror the shipment package and the
// schema.
type CreateShipmentRequest struct {
	TrackingCode string          `json:"trackingCode" validate:"omitempty,max=64"`
	PackageName  string          `json:"packageName" validate:"required,max=200"`
	Sender       PartyRequest    `json:"sender" validate:"required"`
	Receiver     PartyRequest    `json:"receiver" validate:"required"`
	From         string          `json:"from" validate:"required,max=256"`
	To           string          `json:"to" validate:"required,max=256"`
	Cost         decimal.Decimal `json:"cost"`
}

// UpdateStatusRequest is the body of PATCH /api/v1/shipments/:id/status.
type UpdateStatusRequest struct {
	Status   string `json:"status" validate:"required"`
	Location string `json:"location" validate:"max=256"`
}

// CompleteDeliveryRequest is the body of POST /api/v1/shipments/:id/deliver.
// Signature and photo are storage references or Base64 payloads.
type CompleteDeliveryRequest struct {
	Signature string `json:"signature" validate:"required,max=2097152"`
	Photo     string `json:"photo" validate:"max=2097152"`
}
