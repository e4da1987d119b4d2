// Package queries contains read operations over shipments. Query handlers
// never mutate state and return read models shaped for the HTTP and
// streaming surfaces.
package queries

import (
	"time"

	"shiptrack/internal/core/domain/model/shipment"

	"github.com/shopspring/decimal"
)

// ShipmentResponse is the read model of a shipment. It is also the payload
// of the shipment_updated streaming event.
type ShipmentResponse struct {
	ID              string                   `json:"id"`
	TrackingCode    string                   `json:"trackingCode"`
	OwnerID         string                   `json:"ownerId"`
	AgentID         *string                  `json:"agentId"`
	PackageName     string                   `json:"packageName"`
	Sender          PartyResponse            `json:"sender"`
	Receiver        PartyResponse            `json:"receiver"`
	From            string                   `json:"from"`
	To              string                   `json:"to"`
	Cost            decimal.Decimal          `json:"cost"`
	Status          string                   `json:"status"`
	History         []HistoryEntryResponse   `json:"history"`
	CurrentLocation *LocationResponse        `json:"currentLocation"`
	ProofOfDelivery *ProofOfDeliveryResponse `json:"proofOfDelivery,omitempty"`
	Version         int64                    `json:"version"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

type PartyResponse struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone,omitempty"`
}

type HistoryEntryResponse struct {
	Status    string    `json:"status"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

type LocationResponse struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

type ProofOfDeliveryResponse struct {
	Signature string    `json:"signature"`
	Photo     string    `json:"photo,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewShipmentResponse maps an aggregate to its read model.
func NewShipmentResponse(s *shipment.Shipment) ShipmentResponse {
	d := s.Details()
	resp := ShipmentResponse{
		ID:           s.ID().String(),
		TrackingCode: s.TrackingCode().String(),
		OwnerID:      s.Owner().String(),
		PackageName:  d.PackageName(),
		Sender:       partyResponse(d.Sender()),
		Receiver:     partyResponse(d.Receiver()),
		From:         d.From(),
		To:           d.To(),
		Cost:         d.Cost(),
		Status:       s.Status().String(),
		Version:      s.Version(),
		CreatedAt:    s.CreatedAt(),
		UpdatedAt:    s.UpdatedAt(),
	}

	if agent := s.Agent(); agent != nil {
		id := agent.String()
		resp.AgentID = &id
	}

	history := s.History()
	resp.History = make([]HistoryEntryResponse, 0, len(history))
	for _, e := range history {
		resp.History = append(resp.History, HistoryEntryResponse{
			Status:    e.Status().String(),
			Location:  e.Location(),
			Timestamp: e.At(),
		})
	}

	if loc := s.CurrentLocation(); loc != nil {
		resp.CurrentLocation = &LocationResponse{
			Lat:       loc.Point().Lat(),
			Lng:       loc.Point().Lng(),
			Timestamp: loc.At(),
		}
	}

	if proof := s.ProofOfDelivery(); proof != nil {
		resp.ProofOfDelivery = &ProofOfDeliveryResponse{
			Signature: proof.Signature(),
			Photo:     proof.Photo(),
			Timestamp: proof.At(),
		}
	}

	return resp
}

// NewShipmentResponses maps a list, keeping order.
func NewShipmentResponses(list []*shipment.Shipment) []ShipmentResponse {
	out := make([]ShipmentResponse, 0, len(list))
	for _, s := range list {
		out = append(out, NewShipmentResponse(s))
	}
	return out
}

func partyResponse(p shipment.Party) PartyResponse {
	return PartyResponse{
		Name:    p.Name,
		Address: p.Address,
		Phone:   p.Phone,
	}
}
