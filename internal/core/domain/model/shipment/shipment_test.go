package shipment_test

import (
	"strings"
	"testing"
	"time"

	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newDetails(t *testing.T) shipment.Details {
	t.Helper()
	d, err := shipment.NewDetails(
		"Books",
		shipment.Party{Name: "Alice", Address: "Berlin", Phone: "+49"},
		shipment.Party{Name: "Bob", Address: "Hamburg"},
		"Berlin Warehouse",
		"Hamburg Port",
		decimal.RequireFromString("12.50"),
	)
	require.NoError(t, err)
	return d
}

func newPrincipal(t *testing.T, role identity.Role) identity.Principal {
	t.Helper()
	p, err := identity.NewPrincipal(kernel.NewUUID(), role)
	require.NoError(t, err)
	return p
}

func newShipment(t *testing.T, owner kernel.UUID) *shipment.Shipment {
	t.Helper()
	s, err := shipment.NewShipment(kernel.NewUUID(), "TRK-1", owner, newDetails(t), now)
	require.NoError(t, err)
	return s
}

func claimed(t *testing.T, agent identity.Principal) *shipment.Shipment {
	t.Helper()
	s := newShipment(t, kernel.NewUUID())
	entry, err := shipment.NewClaimEntry(now.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, s.AssignAgent(agent.UserID(), entry))
	return s
}

func TestNewShipment(t *testing.T) {
	t.Run("should start pending with one history entry", func(t *testing.T) {
		owner := kernel.NewUUID()
		s := newShipment(t, owner)

		require.NoError(t, s.Validate())
		assert.Equal(t, shipment.Pending, s.Status())
		assert.Equal(t, shipment.TrackingCode("TRK-1"), s.TrackingCode())
		assert.True(t, s.Owner().IsEqual(owner))
		assert.Nil(t, s.Agent())
		assert.Equal(t, int64(1), s.Version())

		history := s.History()
		require.Len(t, history, 1)
		assert.Equal(t, shipment.Pending, history[0].Status())
		assert.Equal(t, "Berlin Warehouse", history[0].Location())
	})

	t.Run("should reject invalid input", func(t *testing.T) {
		_, err := shipment.NewShipment(kernel.UUID{}, "", kernel.UUID{}, shipment.Details{}, now)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
		require.ErrorIs(t, err, shipment.ErrDetailsAreNotConstructed)
	})

	t.Run("zero value is not constructed", func(t *testing.T) {
		var s shipment.Shipment
		assert.Equal(t, shipment.ErrShipmentIsNotConstructed, s.Validate())
	})
}

func TestNewDetails_Validation(t *testing.T) {
	_, err := shipment.NewDetails("", shipment.Party{}, shipment.Party{Name: "Bob"}, "", "x", decimal.NewFromInt(-1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package name")
	assert.Contains(t, err.Error(), "sender name")
	assert.Contains(t, err.Error(), "from")
	require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
}

func TestNewDetails_Bounds(t *testing.T) {
	sender := shipment.Party{Name: "Alice"}
	receiver := shipment.Party{Name: "Bob"}
	atLimit := strings.Repeat("ü", shipment.MaxPlaceLength)

	tests := []struct {
		name    string
		from    string
		cost    string
		wantErr bool
	}{
		{"largest storable cost", "Berlin", "9999999999.99", false},
		{"cost above column precision", "Berlin", "10000000000", true},
		{"cost rounding up past the limit", "Berlin", "9999999999.995", true},
		{"origin at the label limit", atLimit, "1", false},
		{"origin above the label limit", atLimit + "x", "1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := shipment.NewDetails("Box", sender, receiver, tt.from, "Hamburg", decimal.RequireFromString(tt.cost))
			if tt.wantErr {
				require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
				return
			}
			require.NoError(t, err)
			assert.False(t, d.Cost().GreaterThan(shipment.MaxCost))
		})
	}

	t.Run("origin at the limit is a valid first history label", func(t *testing.T) {
		d, err := shipment.NewDetails("Box", sender, receiver, atLimit, "Hamburg", decimal.Zero)
		require.NoError(t, err)
		_, err = shipment.NewShipment(kernel.NewUUID(), "TRK-1", kernel.NewUUID(), d, now)
		require.NoError(t, err)
	})
}

func TestNewProofOfDelivery_Bounds(t *testing.T) {
	t.Run("accepts a Base64 signature", func(t *testing.T) {
		sig := strings.Repeat("QUJD", 50_000)
		pod, err := shipment.NewProofOfDelivery(sig, "", now)
		require.NoError(t, err)
		assert.Equal(t, sig, pod.Signature())
	})

	t.Run("rejects an oversized signature", func(t *testing.T) {
		_, err := shipment.NewProofOfDelivery(strings.Repeat("a", shipment.MaxProofLength+1), "", now)
		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	})

	t.Run("rejects an oversized photo", func(t *testing.T) {
		_, err := shipment.NewProofOfDelivery("sig", strings.Repeat("a", shipment.MaxProofLength+1), now)
		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	})
}

func TestShipment_AssignAgent(t *testing.T) {
	agent := newPrincipal(t, identity.RoleAgent)

	t.Run("should assign and move to InTransit", func(t *testing.T) {
		s := claimed(t, agent)

		assert.Equal(t, shipment.InTransit, s.Status())
		assert.True(t, s.IsAssignedTo(agent.UserID()))
		history := s.History()
		require.Len(t, history, 2)
		assert.Equal(t, shipment.ClaimLocationLabel, history[1].Location())
		assert.Equal(t, int64(2), s.Version())
	})

	t.Run("should reject a second claim", func(t *testing.T) {
		s := claimed(t, agent)
		entry, err := shipment.NewClaimEntry(now)
		require.NoError(t, err)

		err = s.AssignAgent(kernel.NewUUID(), entry)
		require.ErrorIs(t, err, errs.ErrAlreadyAssigned)
		assert.True(t, s.IsAssignedTo(agent.UserID()))
		assert.Len(t, s.History(), 2)
	})

	t.Run("should reject claim of cancelled shipment", func(t *testing.T) {
		owner := newPrincipal(t, identity.RoleCustomer)
		s := newShipment(t, owner.UserID())
		_, err := s.Transition(owner, shipment.Cancelled, "changed my mind", now)
		require.NoError(t, err)

		entry, err := shipment.NewClaimEntry(now)
		require.NoError(t, err)
		require.ErrorIs(t, s.AssignAgent(agent.UserID(), entry), errs.ErrInvalidTransition)
	})
}

func TestCanClaim(t *testing.T) {
	require.NoError(t, shipment.CanClaim(newPrincipal(t, identity.RoleAgent)))
	require.ErrorIs(t, shipment.CanClaim(newPrincipal(t, identity.RoleCustomer)), errs.ErrUnauthorized)
	require.ErrorIs(t, shipment.CanClaim(newPrincipal(t, identity.RoleAdmin)), errs.ErrUnauthorized)
}

func TestShipment_Transition(t *testing.T) {
	agent := newPrincipal(t, identity.RoleAgent)
	admin := newPrincipal(t, identity.RoleAdmin)
	stranger := newPrincipal(t, identity.RoleAgent)

	t.Run("assigned agent moves to out for delivery", func(t *testing.T) {
		s := claimed(t, agent)

		change, err := s.Transition(agent, shipment.OutForDelivery, "Hub 7", now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, shipment.InTransit, change.From)
		assert.Equal(t, shipment.OutForDelivery, change.To())
		assert.Equal(t, int64(2), change.ExpectedVersion)
		assert.Equal(t, int64(3), s.Version())
		assert.Len(t, s.History(), 3)
	})

	t.Run("administrator may transition", func(t *testing.T) {
		s := claimed(t, agent)
		_, err := s.Transition(admin, shipment.Cancelled, "", now)
		require.NoError(t, err)
		assert.Equal(t, shipment.Cancelled, s.Status())
	})

	t.Run("other agent is unauthorized", func(t *testing.T) {
		s := claimed(t, agent)
		_, err := s.Transition(stranger, shipment.OutForDelivery, "", now)
		require.ErrorIs(t, err, errs.ErrUnauthorized)
		assert.Len(t, s.History(), 2)
	})

	t.Run("owner may cancel only while unassigned", func(t *testing.T) {
		owner := newPrincipal(t, identity.RoleCustomer)
		s := newShipment(t, owner.UserID())
		_, err := s.Transition(owner, shipment.Cancelled, "", now)
		require.NoError(t, err)

		s2 := newShipment(t, owner.UserID())
		entry, err := shipment.NewClaimEntry(now)
		require.NoError(t, err)
		require.NoError(t, s2.AssignAgent(agent.UserID(), entry))
		_, err = s2.Transition(owner, shipment.Cancelled, "", now)
		require.ErrorIs(t, err, errs.ErrUnauthorized)
	})

	t.Run("pending enters in transit only by claim", func(t *testing.T) {
		s := newShipment(t, kernel.NewUUID())
		_, err := s.Transition(admin, shipment.InTransit, "", now)
		require.ErrorIs(t, err, errs.ErrInvalidTransition)
	})

	t.Run("skipping states is invalid", func(t *testing.T) {
		s := claimed(t, agent)
		_, err := s.Transition(agent, shipment.Pending, "", now)
		require.ErrorIs(t, err, errs.ErrInvalidTransition)
	})

	t.Run("delivered requires proof of delivery", func(t *testing.T) {
		s := claimed(t, agent)
		_, err := s.Transition(agent, shipment.OutForDelivery, "", now)
		require.NoError(t, err)
		_, err = s.Transition(agent, shipment.Delivered, "", now)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("terminal states reject every requester", func(t *testing.T) {
		s := claimed(t, agent)
		_, err := s.Transition(admin, shipment.Cancelled, "", now)
		require.NoError(t, err)

		for _, requester := range []identity.Principal{agent, admin, stranger} {
			for _, to := range []shipment.Status{shipment.Pending, shipment.InTransit, shipment.OutForDelivery, shipment.Delivered, shipment.Cancelled} {
				_, err = s.Transition(requester, to, "", now)
				require.ErrorIs(t, err, errs.ErrInvalidTransition)
			}
		}
		assert.Len(t, s.History(), 3)
	})
}

func TestShipment_Deliver(t *testing.T) {
	agent := newPrincipal(t, identity.RoleAgent)
	admin := newPrincipal(t, identity.RoleAdmin)
	pod, err := shipment.NewProofOfDelivery("sig://abc", "", now)
	require.NoError(t, err)

	outForDelivery := func() *shipment.Shipment {
		s := claimed(t, agent)
		_, err := s.Transition(agent, shipment.OutForDelivery, "", now)
		require.NoError(t, err)
		return s
	}

	t.Run("assigned agent delivers with proof", func(t *testing.T) {
		s := outForDelivery()
		change, err := s.Deliver(agent, pod, now.Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, shipment.Delivered, change.To())
		assert.Equal(t, shipment.Delivered, s.Status())
		require.NotNil(t, s.ProofOfDelivery())
		assert.Equal(t, "sig://abc", s.ProofOfDelivery().Signature())
		assert.Empty(t, s.ProofOfDelivery().Photo())
		history := s.History()
		require.Len(t, history, 4)
		assert.Equal(t, shipment.DeliveryLocationLabel, history[3].Location())
	})

	t.Run("administrator cannot deliver", func(t *testing.T) {
		_, err := outForDelivery().Deliver(admin, pod, now)
		require.ErrorIs(t, err, errs.ErrUnauthorized)
	})

	t.Run("missing proof is rejected", func(t *testing.T) {
		_, err := outForDelivery().Deliver(agent, shipment.ProofOfDelivery{}, now)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("cannot deliver straight from in transit", func(t *testing.T) {
		_, err := claimed(t, agent).Deliver(agent, pod, now)
		require.ErrorIs(t, err, errs.ErrInvalidTransition)
	})

	t.Run("signature is required", func(t *testing.T) {
		_, err := shipment.NewProofOfDelivery("  ", "photo://x", now)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})
}

func TestShipment_HistoryLengthInvariant(t *testing.T) {
	agent := newPrincipal(t, identity.RoleAgent)
	s := newShipment(t, kernel.NewUUID())
	applied := 0

	entry, err := shipment.NewClaimEntry(now)
	require.NoError(t, err)
	require.NoError(t, s.AssignAgent(agent.UserID(), entry))
	applied++

	_, err = s.Transition(agent, shipment.OutForDelivery, "", now)
	require.NoError(t, err)
	applied++

	_, err = s.Transition(agent, shipment.InTransit, "", now)
	require.Error(t, err)

	pod, err := shipment.NewProofOfDelivery("sig", "photo", now)
	require.NoError(t, err)
	_, err = s.Deliver(agent, pod, now)
	require.NoError(t, err)
	applied++

	_, err = s.Transition(agent, shipment.Cancelled, "", now)
	require.Error(t, err)

	assert.Len(t, s.History(), applied+1)
}

func TestShipment_ApplyStatusChange(t *testing.T) {
	agent := newPrincipal(t, identity.RoleAgent)
	stored := claimed(t, agent)

	working := stored.Clone()
	change, err := working.Transition(agent, shipment.OutForDelivery, "", now)
	require.NoError(t, err)

	t.Run("applies when version matches", func(t *testing.T) {
		target := stored.Clone()
		require.NoError(t, target.ApplyStatusChange(change))
		assert.Equal(t, shipment.OutForDelivery, target.Status())
		assert.Equal(t, working.Version(), target.Version())
	})

	t.Run("conflicts when another change won", func(t *testing.T) {
		target := stored.Clone()
		require.NoError(t, target.ApplyStatusChange(change))
		require.ErrorIs(t, target.ApplyStatusChange(change), errs.ErrConflict)
	})
}

func TestShipment_UpdateLocation(t *testing.T) {
	s := newShipment(t, kernel.NewUUID())
	point, err := kernel.NewGeoPoint(1.0, 2.0)
	require.NoError(t, err)

	newer, err := shipment.NewLocationSample(point, now.Add(time.Second))
	require.NoError(t, err)
	older, err := shipment.NewLocationSample(point, now)
	require.NoError(t, err)

	assert.True(t, s.UpdateLocation(newer))
	assert.False(t, s.UpdateLocation(older))
	assert.False(t, s.UpdateLocation(newer))
	require.NotNil(t, s.CurrentLocation())
	assert.Equal(t, newer.At(), s.CurrentLocation().At())
	assert.Equal(t, int64(1), s.Version())
}

func TestRestoreShipment(t *testing.T) {
	agent := newPrincipal(t, identity.RoleAgent)

	t.Run("round trips through snapshot", func(t *testing.T) {
		s := claimed(t, agent)
		restored, err := shipment.RestoreShipment(s.Snapshot())
		require.NoError(t, err)
		assert.Equal(t, s.Snapshot(), restored.Snapshot())
	})

	t.Run("rejects in transit without agent", func(t *testing.T) {
		snap := claimed(t, agent).Snapshot()
		snap.Agent = nil
		_, err := shipment.RestoreShipment(snap)
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("rejects history that disagrees with status", func(t *testing.T) {
		snap := claimed(t, agent).Snapshot()
		snap.Status = shipment.OutForDelivery
		_, err := shipment.RestoreShipment(snap)
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("rejects empty history", func(t *testing.T) {
		snap := newShipment(t, kernel.NewUUID()).Snapshot()
		snap.History = nil
		_, err := shipment.RestoreShipment(snap)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("snapshot is a deep copy", func(t *testing.T) {
		s := claimed(t, agent)
		snap := s.Snapshot()
		snap.History[0] = snap.History[1]
		assert.Equal(t, shipment.Pending, s.History()[0].Status())
	})
}

func TestTrackingCode(t *testing.T) {
	t.Run("generated codes are prefixed and distinct", func(t *testing.T) {
		a, err := shipment.NewTrackingCode()
		require.NoError(t, err)
		b, err := shipment.NewTrackingCode()
		require.NoError(t, err)

		assert.Regexp(t, `^TRK-[A-Z2-9]{8}$`, a.String())
		assert.NotEqual(t, a, b)
	})

	t.Run("parse rejects whitespace and empty codes", func(t *testing.T) {
		_, err := shipment.ParseTrackingCode("  ")
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
		_, err = shipment.ParseTrackingCode("TRK 1")
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		code, err := shipment.ParseTrackingCode(" TRK-1 ")
		require.NoError(t, err)
		assert.Equal(t, shipment.TrackingCode("TRK-1"), code)
	})
}
