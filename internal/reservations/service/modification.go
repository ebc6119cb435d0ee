package service

import (
	"context"
	"fmt"
	"time"

	"communa/internal/reservations/fee"
	"communa/internal/reservations/notify"
	apperrors "communa/pkg/errors"
	"communa/pkg/model"
	"communa/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProposeModification records a staff-proposed replacement slot on a
// pending reservation. Only one proposal can be open at a time, and only
// reservations still awaiting first approval can be rescheduled.
func (s *reservationService) ProposeModification(ctx context.Context, actor model.Actor, id string, proposal ModificationProposal) (*model.Reservation, error) {
	if !actor.Staff() {
		return nil, apperrors.Forbidden("Only janitorial or admin staff can propose modifications")
	}

	reservation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if reservation.Status != model.StatusNew {
		return nil, apperrors.InvalidTransition(fmt.Sprintf("Cannot propose a modification for a reservation in status %q", reservation.Status))
	}
	if reservation.Modification != nil && reservation.Modification.Status == model.ModificationStatusPending {
		return nil, apperrors.InvalidTransition("A modification proposal is already pending")
	}

	if err := s.validator.ValidateProposedSlot(proposal.Date, proposal.PartyStart, proposal.PartyEnd); err != nil {
		return nil, apperrors.Validation("Invalid modification proposal", map[string]any{"error": err.Error()})
	}
	reason := sanitizer.NormalizeFreeText(proposal.Reason)

	now := time.Now().UTC().Truncate(time.Millisecond)
	conditions := bson.M{
		"status":              model.StatusNew,
		"modification.status": bson.M{"$ne": model.ModificationStatusPending},
	}
	set := bson.M{
		"modification.status":               model.ModificationStatusPending,
		"modification.proposed_date":        proposal.Date,
		"modification.proposed_party_start": proposal.PartyStart,
		"modification.proposed_party_end":   proposal.PartyEnd,
		"modification.reason":               reason,
		"modification.proposed_by":          actor.UserID,
		"modification.proposed_at":          now,
	}
	if err := s.repo.CompareAndSet(ctx, id, conditions, set); err != nil {
		return nil, casError(err, "propose a modification for")
	}

	if reservation.Modification == nil {
		reservation.Modification = &model.ModificationRecord{}
	}
	reservation.Modification.Status = model.ModificationStatusPending
	reservation.Modification.ProposedDate = proposal.Date
	reservation.Modification.ProposedPartyStart = &proposal.PartyStart
	reservation.Modification.ProposedPartyEnd = &proposal.PartyEnd
	reservation.Modification.Reason = reason
	reservation.Modification.ProposedBy = actor.UserID
	reservation.Modification.ProposedAt = &now

	s.cfg.Log.Info("Modification proposed",
		"id", id,
		"proposed_by", actor.UserID,
		"proposed_date", proposal.Date,
	)

	event := notify.BaseEvent(notify.EventModificationProposed, notify.AudienceResident, reservation)
	event.Reason = reason
	s.dispatcher.Dispatch(ctx, event)

	return reservation, nil
}

// AcceptModification applies the proposed slot. The new slot is checked
// for conflicts under an advisory lock, the change counter increments,
// and the change fee is computed from the amenity's current policy.
func (s *reservationService) AcceptModification(ctx context.Context, actor model.Actor, id string) (*ModificationOutcome, error) {
	reservation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if reservation.UserID != actor.UserID {
		return nil, apperrors.Forbidden("Only the reservation owner can accept a modification")
	}
	mod := reservation.Modification
	if mod == nil || mod.Status != model.ModificationStatusPending {
		return nil, apperrors.InvalidTransition("No modification proposal is pending")
	}
	if reservation.Status != model.StatusNew {
		return nil, apperrors.InvalidTransition(fmt.Sprintf("Cannot modify a reservation in status %q", reservation.Status))
	}

	amenity, err := s.liveAmenity(ctx, actor.CommunityID, reservation.AmenityID)
	if err != nil {
		return nil, err
	}
	var policy *model.ModificationPolicy
	if amenity != nil {
		policy = amenity.ModificationPolicy
	}
	result := fee.Modification(time.Now(), reservation.PartyStart, mod.Count, policy)

	proposedStart := *mod.ProposedPartyStart
	proposedEnd := *mod.ProposedPartyEnd
	proposedDate := mod.ProposedDate

	lockID, err := s.acquireSlotLock(ctx, reservation.AmenityID, proposedDate, proposedStart)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		probe := *reservation
		probe.Date = proposedDate
		probe.SetupStart = proposedStart
		probe.PartyEnd = proposedEnd
		if err := s.verifyAvailability(sessCtx, &probe, id); err != nil {
			return err
		}

		conditions := bson.M{
			"status":              model.StatusNew,
			"modification.status": model.ModificationStatusPending,
		}
		// The setup window collapses to the party interval on the new slot;
		// proposals carry no separate setup times.
		set := bson.M{
			"date":                              proposedDate,
			"setup_start":                       proposedStart,
			"setup_end":                         proposedEnd,
			"party_start":                       proposedStart,
			"party_end":                         proposedEnd,
			"modification.status":               model.ModificationStatusAccepted,
			"modification.count":                mod.Count + 1,
			"modification.last_fee":             result.Fee,
			"modification.proposed_date":        "",
			"modification.proposed_party_start": nil,
			"modification.proposed_party_end":   nil,
			"modification.reason":               "",
		}
		return s.repo.CompareAndSet(sessCtx, id, conditions, set)
	})
	if err != nil {
		return nil, casError(err, "accept the modification for")
	}

	reservation.Date = proposedDate
	reservation.SetupStart = proposedStart
	reservation.SetupEnd = proposedEnd
	reservation.PartyStart = proposedStart
	reservation.PartyEnd = proposedEnd
	mod.Status = model.ModificationStatusAccepted
	mod.Count++
	mod.LastFee = result.Fee
	mod.ProposedDate = ""
	mod.ProposedPartyStart = nil
	mod.ProposedPartyEnd = nil
	mod.Reason = ""

	s.cfg.Log.Info("Modification accepted",
		"id", id,
		"new_date", proposedDate,
		"change_count", mod.Count,
		"fee", result.Fee,
	)

	accepted := notify.BaseEvent(notify.EventModificationAccepted, notify.AudienceResident, reservation)
	accepted.Fee = &result.Fee
	accepted.Reason = result.Reason
	s.dispatcher.Dispatch(ctx, accepted)
	s.dispatcher.Dispatch(ctx, notify.BaseEvent(notify.EventReservationModified, notify.AudienceJanitorial, reservation))

	return &ModificationOutcome{
		Reservation: reservation,
		Fee:         result.Fee,
		Reason:      result.Reason,
	}, nil
}

// RejectModification declines the proposed slot. The resident is telling
// staff the replacement does not work, so the reservation is cancelled
// outright with a full refund.
func (s *reservationService) RejectModification(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	reservation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if reservation.UserID != actor.UserID {
		return nil, apperrors.Forbidden("Only the reservation owner can reject a modification")
	}
	if reservation.Modification == nil || reservation.Modification.Status != model.ModificationStatusPending {
		return nil, apperrors.InvalidTransition("No modification proposal is pending")
	}

	conditions := bson.M{
		"status":              model.StatusNew,
		"modification.status": model.ModificationStatusPending,
	}
	set := bson.M{
		"status":                            model.StatusCancelled,
		"notes":                             appendNote(reservation.Notes, "Cancelled: resident rejected the proposed modification"),
		"modification.status":               model.ModificationStatusRejected,
		"modification.proposed_date":        "",
		"modification.proposed_party_start": nil,
		"modification.proposed_party_end":   nil,
		"modification.reason":               "",
	}
	if err := s.repo.CompareAndSet(ctx, id, conditions, set); err != nil {
		return nil, casError(err, "reject the modification for")
	}

	reservation.Status = model.StatusCancelled
	reservation.Notes = set["notes"].(string)
	reservation.Modification.Status = model.ModificationStatusRejected
	reservation.Modification.ProposedDate = ""
	reservation.Modification.ProposedPartyStart = nil
	reservation.Modification.ProposedPartyEnd = nil
	reservation.Modification.Reason = ""

	s.cfg.Log.Info("Modification rejected, reservation cancelled", "id", id)

	s.dispatcher.Dispatch(ctx, notify.BaseEvent(notify.EventModificationRejected, notify.AudienceJanitorial, reservation))
	s.dispatcher.Dispatch(ctx, notify.BaseEvent(notify.EventReservationCancelled, notify.AudienceResident, reservation))

	return reservation, nil
}

// WithdrawModification retracts an open proposal, leaving the
// reservation's slot and status untouched.
func (s *reservationService) WithdrawModification(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	if !actor.Staff() {
		return nil, apperrors.Forbidden("Only janitorial or admin staff can withdraw a modification proposal")
	}

	reservation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if reservation.Modification == nil || reservation.Modification.Status != model.ModificationStatusPending {
		return nil, apperrors.InvalidTransition("No modification proposal is pending")
	}

	conditions := bson.M{"modification.status": model.ModificationStatusPending}
	set := bson.M{
		"modification.status":               model.ModificationStatusNone,
		"modification.proposed_date":        "",
		"modification.proposed_party_start": nil,
		"modification.proposed_party_end":   nil,
		"modification.reason":               "",
		"modification.proposed_by":          "",
		"modification.proposed_at":          nil,
	}
	if err := s.repo.CompareAndSet(ctx, id, conditions, set); err != nil {
		return nil, casError(err, "withdraw the modification for")
	}

	reservation.Modification.Status = model.ModificationStatusNone
	reservation.Modification.ProposedDate = ""
	reservation.Modification.ProposedPartyStart = nil
	reservation.Modification.ProposedPartyEnd = nil
	reservation.Modification.Reason = ""
	reservation.Modification.ProposedBy = ""
	reservation.Modification.ProposedAt = nil

	s.cfg.Log.Info("Modification proposal withdrawn", "id", id, "withdrawn_by", actor.UserID)

	return reservation, nil
}
