// Package shipment contains the Shipment aggregate: its status state machine,
// append-only status history, proof of delivery and latest agent position.
//
// The aggregate decides whether a change is legal; persistence adapters make
// it durable with conditional writes. Claims are decided by the repository's
// conditional assign, status changes by a write conditioned on the status
// and version the change was computed from.
package shipment
