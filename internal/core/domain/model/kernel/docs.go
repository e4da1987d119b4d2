// Package kernel holds the value objects shared by every aggregate of the
// shipment tracking domain.
//
// The package includes:
//   - UUID: an identifier value object wrapping github.com/google/uuid
//   - GeoPoint: a validated WGS84 latitude/longitude pair
//
// Both are immutable and safe for concurrent use. Their zero values are
// invalid and fail Validate, which lets aggregates detect values that were
// not created through a constructor.
package kernel
