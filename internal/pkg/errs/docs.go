// Package errs provides standardized error types for the shipment tracking service.
// It implements a consistent pattern for error creation, formatting, and unwrapping
// that is used throughout the application.
//
// Validation errors:
//   - ValueIsRequiredError: a required value is missing
//   - ValueIsInvalidError: a value failed validation
//   - ValueIsOutOfRangeError: a value lies outside its bounds
//   - VersionIsInvalidError: an aggregate version is malformed
//
// Outcome errors produced by shipment workflows:
//   - ObjectNotFoundError: an aggregate cannot be found
//   - AlreadyAssignedError: a claim lost to another agent
//   - InvalidTransitionError: a status change is not in the transition table
//   - ConflictError: an optimistic concurrency check failed
//   - UnauthorizedError: the requester lacks the required role or relation
//
// Each error type follows the same pattern:
//   - A sentinel error variable (e.g., ErrObjectNotFound)
//   - A struct type with fields for error details
//   - Constructor functions with and without cause
//   - Error() method for formatting the error message
//   - Unwrap() method returning the sentinel, so errors.Is works on wrapped chains
//
// Adapters translate the sentinels into transport status codes; the domain
// never depends on transport details.
package errs
