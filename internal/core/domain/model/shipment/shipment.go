package shipment

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/pkg/errs"
)

var (
	// ErrShipmentIsNotConstructed is returned for Shipment values that bypassed
	// NewShipment and RestoreShipment.
	ErrShipmentIsNotConstructed = errors.New("Shipment must be created via NewShipment or RestoreShipment constructor")

	errClaimRequired = errors.New("a pending shipment enters InTransit only through a claim")
	errPODRequired   = errors.New("delivery requires proof of delivery")
)

// Shipment is the aggregate root of the tracking domain. It owns the status
// state machine and the append-only status history.
//
// Shipment follows these invariants:
//   - the tracking code never changes after creation
//   - len(History()) == applied transitions + 1 (the creation entry)
//   - the last history entry always carries the current status
//   - the assigned agent moves from nil to non-nil once and is never cleared
//   - InTransit, OutForDelivery and Delivered always have an agent
//   - proof of delivery exists only on Delivered shipments
//
// Every applied transition increments Version, which persistence adapters
// use for optimistic concurrency.
type Shipment struct {
	id              kernel.UUID
	trackingCode    TrackingCode
	owner           kernel.UUID
	agent           *kernel.UUID
	status          Status
	history         []HistoryEntry
	currentLocation *LocationSample
	proof           *ProofOfDelivery
	details         Details
	version         int64
	createdAt       time.Time
	updatedAt       time.Time
	isConstructed   bool
}

// StatusChange describes one applied transition together with the state it
// was computed from. Repositories persist it with a write conditioned on
// From and ExpectedVersion.
type StatusChange struct {
	Entry           HistoryEntry
	From            Status
	ExpectedVersion int64
}

// To returns the status the change moves to.
func (c StatusChange) To() Status {
	return c.Entry.Status()
}

// NewShipment creates a Pending shipment with a single history entry whose
// location label is the origin address.
//
// Example:
//
//	code, _ := shipment.NewTrackingCode()
//	details, _ := shipment.NewDetails("Books", sender, receiver, "Berlin", "Hamburg", decimal.NewFromInt(12))
//	s, err := shipment.NewShipment(kernel.NewUUID(), code, ownerID, details, time.Now())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(s.Status(), len(s.History())) // Pending 1
func NewShipment(
	id kernel.UUID,
	code TrackingCode,
	owner kernel.UUID,
	details Details,
	now time.Time,
) (*Shipment, error) {
	if err := errors.Join(
		id.Validate(),
		owner.Validate(),
		details.Validate(),
		validateCode(code),
	); err != nil {
		return nil, err
	}

	entry, err := NewHistoryEntry(Pending, details.From(), now)
	if err != nil {
		return nil, err
	}

	return &Shipment{
		id:            id,
		trackingCode:  code,
		owner:         owner,
		status:        Pending,
		history:       []HistoryEntry{entry},
		details:       details,
		version:       1,
		createdAt:     entry.At(),
		updatedAt:     entry.At(),
		isConstructed: true,
	}, nil
}

// Snapshot is the full persisted state of a shipment. It is the exchange
// format between the aggregate and persistence adapters.
type Snapshot struct {
	ID              kernel.UUID
	TrackingCode    TrackingCode
	Owner           kernel.UUID
	Agent           *kernel.UUID
	Status          Status
	History         []HistoryEntry
	CurrentLocation *LocationSample
	Proof           *ProofOfDelivery
	Details         Details
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RestoreShipment rebuilds an aggregate from persisted state and re-checks
// every invariant, so corrupt rows surface as errors instead of panics later.
func RestoreShipment(snap Snapshot) (*Shipment, error) {
	if err := errors.Join(
		snap.ID.Validate(),
		snap.Owner.Validate(),
		snap.Details.Validate(),
		snap.Status.Validate(),
		validateCode(snap.TrackingCode),
	); err != nil {
		return nil, err
	}
	if err := validateRestoredState(snap); err != nil {
		return nil, err
	}

	s := &Shipment{
		id:            snap.ID,
		trackingCode:  snap.TrackingCode,
		owner:         snap.Owner,
		status:        snap.Status,
		history:       slices.Clone(snap.History),
		details:       snap.Details,
		version:       snap.Version,
		createdAt:     snap.CreatedAt.UTC(),
		updatedAt:     snap.UpdatedAt.UTC(),
		isConstructed: true,
	}
	if snap.Agent != nil {
		agent := *snap.Agent
		s.agent = &agent
	}
	if snap.CurrentLocation != nil {
		sample := *snap.CurrentLocation
		s.currentLocation = &sample
	}
	if snap.Proof != nil {
		proof := *snap.Proof
		s.proof = &proof
	}
	return s, nil
}

func validateRestoredState(snap Snapshot) error {
	if len(snap.History) == 0 {
		return errs.NewValueIsRequiredError("status history")
	}
	for _, entry := range snap.History {
		if err := entry.Validate(); err != nil {
			return err
		}
	}
	if first := snap.History[0].Status(); first != Pending {
		return errs.NewValueIsInvalidErrorWithCause("status history", fmt.Errorf("first entry is %s, not Pending", first))
	}
	if last := snap.History[len(snap.History)-1].Status(); last != snap.Status {
		return errs.NewValueIsInvalidErrorWithCause("status history", fmt.Errorf("last entry is %s but status is %s", last, snap.Status))
	}
	if snap.Agent != nil {
		if err := snap.Agent.Validate(); err != nil {
			return err
		}
	}
	if snap.Status.HasAgent() && snap.Agent == nil {
		return errs.NewValueIsInvalidErrorWithCause("agent", fmt.Errorf("%s requires an assigned agent", snap.Status))
	}
	if snap.Status == Pending && snap.Agent != nil {
		return errs.NewValueIsInvalidErrorWithCause("agent", errors.New("pending shipment cannot have an agent"))
	}
	if snap.Proof != nil && snap.Status != Delivered {
		return errs.NewValueIsInvalidErrorWithCause("proof of delivery", fmt.Errorf("%s shipment cannot carry proof of delivery", snap.Status))
	}
	if snap.Version < 1 {
		return errs.NewVersionIsInvalidError("version", fmt.Errorf("%d is below 1", snap.Version))
	}
	return nil
}

func validateCode(code TrackingCode) error {
	_, err := ParseTrackingCode(code.String())
	return err
}

// Validate ensures the shipment was created through a constructor.
func (s *Shipment) Validate() error {
	if s == nil || !s.isConstructed {
		return ErrShipmentIsNotConstructed
	}
	return nil
}

// Snapshot returns a deep copy of the shipment state.
func (s *Shipment) Snapshot() Snapshot {
	snap := Snapshot{
		ID:           s.id,
		TrackingCode: s.trackingCode,
		Owner:        s.owner,
		Status:       s.status,
		History:      slices.Clone(s.history),
		Details:      s.details,
		Version:      s.version,
		CreatedAt:    s.createdAt,
		UpdatedAt:    s.updatedAt,
	}
	if s.agent != nil {
		agent := *s.agent
		snap.Agent = &agent
	}
	if s.currentLocation != nil {
		sample := *s.currentLocation
		snap.CurrentLocation = &sample
	}
	if s.proof != nil {
		proof := *s.proof
		snap.Proof = &proof
	}
	return snap
}

// Clone returns an independent copy of the aggregate.
func (s *Shipment) Clone() *Shipment {
	clone, err := RestoreShipment(s.Snapshot())
	if err != nil {
		// A constructed shipment always satisfies its own invariants.
		panic(fmt.Sprintf("clone shipment %s: %v", s.id, err))
	}
	return clone
}

func (s *Shipment) ID() kernel.UUID            { return s.id }
func (s *Shipment) TrackingCode() TrackingCode { return s.trackingCode }
func (s *Shipment) Owner() kernel.UUID         { return s.owner }
func (s *Shipment) Status() Status             { return s.status }
func (s *Shipment) Details() Details           { return s.details }
func (s *Shipment) Version() int64             { return s.version }
func (s *Shipment) CreatedAt() time.Time       { return s.createdAt }
func (s *Shipment) UpdatedAt() time.Time       { return s.updatedAt }
func (s *Shipment) History() []HistoryEntry    { return slices.Clone(s.history) }
func (s *Shipment) CurrentLocation() *LocationSample {
	if s.currentLocation == nil {
		return nil
	}
	sample := *s.currentLocation
	return &sample
}

// Agent returns the assigned agent, or nil while unassigned.
func (s *Shipment) Agent() *kernel.UUID {
	if s.agent == nil {
		return nil
	}
	agent := *s.agent
	return &agent
}

// ProofOfDelivery returns the stamped proof, or nil before delivery.
func (s *Shipment) ProofOfDelivery() *ProofOfDelivery {
	if s.proof == nil {
		return nil
	}
	proof := *s.proof
	return &proof
}

// IsAssignedTo reports whether userID is the assigned agent.
func (s *Shipment) IsAssignedTo(userID kernel.UUID) bool {
	return s.agent != nil && s.agent.IsEqual(userID)
}

// CanClaim checks that the principal may claim shipments at all.
// Whether a specific shipment is still claimable is decided atomically by
// the repository.
func CanClaim(requester identity.Principal) error {
	if err := requester.Validate(); err != nil {
		return err
	}
	if !requester.IsAgent() {
		return errs.NewUnauthorizedError(requester.UserID(), "claim shipment")
	}
	return nil
}

// NewClaimEntry builds the history entry recorded by a successful claim.
func NewClaimEntry(now time.Time) (HistoryEntry, error) {
	return NewHistoryEntry(InTransit, ClaimLocationLabel, now)
}

// AssignAgent sets the agent and moves Pending to InTransit, appending entry.
//
// Returns:
//   - errs.AlreadyAssignedError if an agent is already set
//   - errs.InvalidTransitionError if the shipment is no longer Pending
//
// Persistence adapters call this under their own atomicity guarantees; it is
// the in-memory form of the conditional assign.
func (s *Shipment) AssignAgent(agentID kernel.UUID, entry HistoryEntry) error {
	if err := errors.Join(agentID.Validate(), entry.Validate()); err != nil {
		return err
	}
	if s.agent != nil {
		return errs.NewAlreadyAssignedError("shipment", s.trackingCode)
	}
	if entry.Status() != InTransit {
		return errs.NewInvalidTransitionErrorWithCause(s.status, entry.Status(), errors.New("a claim moves the shipment to InTransit"))
	}
	if s.status != Pending {
		return errs.NewInvalidTransitionErrorWithCause(s.status, InTransit, errClaimRequired)
	}

	agent := agentID
	s.agent = &agent
	s.append(entry)
	return nil
}

// Transition applies a requester-initiated status change other than delivery.
//
// Rules, checked in order:
//   - terminal states reject every change (InvalidTransition)
//   - Delivered requires Deliver with proof of delivery (ValueIsRequired)
//   - Pending enters InTransit only by claim (InvalidTransition)
//   - requester must be an administrator or the assigned agent; the owner
//     may cancel a shipment nobody has claimed (Unauthorized)
//   - the pair must be in the transition table (InvalidTransition)
//
// On success exactly one history entry is appended and the returned change
// carries the pre-transition status and version.
func (s *Shipment) Transition(requester identity.Principal, to Status, label string, now time.Time) (StatusChange, error) {
	if s.status.IsTerminal() {
		return StatusChange{}, errs.NewInvalidTransitionErrorWithCause(s.status, to, fmt.Errorf("%s is terminal", s.status))
	}
	if err := requester.Validate(); err != nil {
		return StatusChange{}, err
	}
	if to == Delivered {
		return StatusChange{}, errs.NewValueIsRequiredErrorWithCause("proof of delivery", errPODRequired)
	}
	if s.status == Pending && to == InTransit {
		return StatusChange{}, errs.NewInvalidTransitionErrorWithCause(s.status, to, errClaimRequired)
	}
	if err := s.authorize(requester, to); err != nil {
		return StatusChange{}, err
	}
	if err := s.status.ValidateTransition(to); err != nil {
		return StatusChange{}, err
	}

	entry, err := NewHistoryEntry(to, label, now)
	if err != nil {
		return StatusChange{}, err
	}
	return s.apply(entry), nil
}

// Deliver moves OutForDelivery to Delivered and stamps proof of delivery.
// Only the assigned agent may deliver.
func (s *Shipment) Deliver(requester identity.Principal, proof ProofOfDelivery, now time.Time) (StatusChange, error) {
	if s.status.IsTerminal() {
		return StatusChange{}, errs.NewInvalidTransitionErrorWithCause(s.status, Delivered, fmt.Errorf("%s is terminal", s.status))
	}
	if err := requester.Validate(); err != nil {
		return StatusChange{}, err
	}
	if !s.IsAssignedTo(requester.UserID()) {
		return StatusChange{}, errs.NewUnauthorizedErrorWithCause(requester.UserID(), "deliver shipment",
			errors.New("only the assigned agent may complete delivery"))
	}
	if err := proof.Validate(); err != nil {
		return StatusChange{}, errs.NewValueIsRequiredErrorWithCause("proof of delivery", err)
	}
	if err := s.status.ValidateTransition(Delivered); err != nil {
		return StatusChange{}, err
	}

	entry, err := NewHistoryEntry(Delivered, DeliveryLocationLabel, now)
	if err != nil {
		return StatusChange{}, err
	}
	change := s.apply(entry)
	p := proof
	s.proof = &p
	return change, nil
}

// ApplyStatusChange replays a change computed on another copy of this
// shipment. It fails with errs.ConflictError when the status or version has
// moved since the change was computed.
func (s *Shipment) ApplyStatusChange(change StatusChange) error {
	if err := change.Entry.Validate(); err != nil {
		return err
	}
	if s.status != change.From || s.version != change.ExpectedVersion {
		return errs.NewConflictError("shipment", s.trackingCode, change.ExpectedVersion)
	}
	if err := s.status.ValidateTransition(change.To()); err != nil {
		return err
	}
	s.apply(change.Entry)
	return nil
}

// AttachProofOfDelivery stores proof on a Delivered shipment.
func (s *Shipment) AttachProofOfDelivery(proof ProofOfDelivery) error {
	if err := proof.Validate(); err != nil {
		return err
	}
	if s.status != Delivered {
		return errs.NewValueIsInvalidErrorWithCause("proof of delivery", fmt.Errorf("%s shipment cannot carry proof of delivery", s.status))
	}
	p := proof
	s.proof = &p
	return nil
}

// UpdateLocation keeps sample if it is newer than the current one and
// reports whether it was kept. Location updates do not bump the version.
func (s *Shipment) UpdateLocation(sample LocationSample) bool {
	if sample.Validate() != nil {
		return false
	}
	if s.currentLocation != nil && !sample.IsNewerThan(*s.currentLocation) {
		return false
	}
	s.currentLocation = &sample
	return true
}

func (s *Shipment) authorize(requester identity.Principal, to Status) error {
	switch {
	case requester.IsAdmin():
		return nil
	case s.IsAssignedTo(requester.UserID()):
		return nil
	case to == Cancelled && s.agent == nil && requester.Is(s.owner):
		return nil
	default:
		return errs.NewUnauthorizedErrorWithCause(requester.UserID(), "set status "+to.String(),
			errors.New("requester is neither the assigned agent nor an administrator"))
	}
}

func (s *Shipment) apply(entry HistoryEntry) StatusChange {
	change := StatusChange{
		Entry:           entry,
		From:            s.status,
		ExpectedVersion: s.version,
	}
	s.append(entry)
	return change
}

func (s *Shipment) append(entry HistoryEntry) {
	s.history = append(s.history, entry)
	s.status = entry.Status()
	s.version++
	s.updatedAt = entry.At()
}
