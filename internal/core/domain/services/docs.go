// Package services holds domain services of the shipment tracking domain:
// logic that reads an aggregate but does not belong to its own behaviour.
//
// The package includes:
//   - NotificationComposer: turns a shipment's latest transition into the
//     message delivered to its owner
package services
