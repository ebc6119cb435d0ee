package service

import (
	"context"
	"fmt"
	"time"

	"communa/internal/reservations/notify"
	apperrors "communa/pkg/errors"
	"communa/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

// AssessDamage records a staff damage charge against a completed
// reservation. Legal only while the completion flagged damages and no
// assessment is awaiting review.
func (s *reservationService) AssessDamage(ctx context.Context, actor model.Actor, id string, assessment DamageAssessment) (*model.Reservation, error) {
	if !actor.Staff() {
		return nil, apperrors.Forbidden("Only janitorial or admin staff can assess damages")
	}

	reservation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if reservation.Status != model.StatusCompleted {
		return nil, apperrors.InvalidTransition(fmt.Sprintf("Cannot assess damages on a reservation in status %q", reservation.Status))
	}
	if reservation.Damage == nil || !reservation.Damage.Pending {
		return nil, apperrors.InvalidTransition("Reservation was completed without damages; nothing to assess")
	}
	if reservation.Damage.Assessed {
		return nil, apperrors.InvalidTransition("A damage assessment is already awaiting review")
	}

	if assessment.Description == "" {
		return nil, apperrors.InvalidInput("Damage description is required")
	}
	maxCharge, err := s.damageCap(ctx, actor.CommunityID, reservation)
	if err != nil {
		return nil, err
	}
	if assessment.Amount <= 0 || assessment.Amount > maxCharge {
		return nil, apperrors.Validation("Damage charge must be positive and within the amenity deposit", map[string]any{
			"amount":  assessment.Amount,
			"deposit": maxCharge,
		})
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	conditions := bson.M{
		"status":          model.StatusCompleted,
		"damage.pending":  true,
		"damage.assessed": false,
	}
	set := bson.M{
		"damage.assessed":        true,
		"damage.status":          model.DamageStatusPending,
		"damage.reported_charge": assessment.Amount,
		"damage.description":     assessment.Description,
		"damage.notes":           assessment.Notes,
		"damage.assessed_by":     actor.UserID,
		"damage.assessed_at":     now,
	}
	if err := s.repo.CompareAndSet(ctx, id, conditions, set); err != nil {
		return nil, casError(err, "assess damages for")
	}

	reservation.Damage.Assessed = true
	reservation.Damage.Status = model.DamageStatusPending
	reservation.Damage.ReportedCharge = assessment.Amount
	reservation.Damage.Description = assessment.Description
	reservation.Damage.Notes = assessment.Notes
	reservation.Damage.AssessedBy = actor.UserID
	reservation.Damage.AssessedAt = &now

	s.cfg.Log.Info("Damage assessment submitted",
		"id", id,
		"amount", assessment.Amount,
		"assessed_by", actor.UserID,
	)

	event := notify.BaseEvent(notify.EventDamageAssessmentRequired, notify.AudienceAdmin, reservation)
	event.Fee = &assessment.Amount
	event.Reason = assessment.Description
	s.dispatcher.Dispatch(ctx, event)

	return reservation, nil
}

// ReviewDamage is the admin verdict on a pending assessment: approve the
// reported charge, adjust it, or deny it entirely.
func (s *reservationService) ReviewDamage(ctx context.Context, actor model.Actor, id string, review DamageReview) (*model.Reservation, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.Forbidden("Only an admin can review damage assessments")
	}

	reservation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if reservation.Damage == nil || reservation.Damage.Status != model.DamageStatusPending {
		return nil, apperrors.InvalidTransition("No damage assessment is awaiting review")
	}

	var status string
	var finalCharge *float64
	switch review.Action {
	case ReviewApprove:
		status = model.DamageStatusApproved
		charge := reservation.Damage.ReportedCharge
		finalCharge = &charge

	case ReviewAdjust:
		if review.Amount == nil {
			return nil, apperrors.InvalidInput("Adjusted damage reviews require an amount")
		}
		maxCharge, capErr := s.damageCap(ctx, actor.CommunityID, reservation)
		if capErr != nil {
			return nil, capErr
		}
		// A zero charge is a denial, not an adjustment.
		if *review.Amount <= 0 || *review.Amount > maxCharge {
			return nil, apperrors.Validation("Adjusted charge must be positive and within the amenity deposit; deny the assessment to charge nothing", map[string]any{
				"amount":  *review.Amount,
				"deposit": maxCharge,
			})
		}
		status = model.DamageStatusAdjusted
		finalCharge = review.Amount

	case ReviewDeny:
		status = model.DamageStatusDenied

	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("Unknown review action %q, must be approve, adjust or deny", review.Action))
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	conditions := bson.M{"damage.status": model.DamageStatusPending}
	set := bson.M{
		"damage.status":       status,
		"damage.pending":      false,
		"damage.final_charge": finalCharge,
		"damage.reviewed_by":  actor.UserID,
		"damage.reviewed_at":  now,
	}
	if review.Notes != "" {
		set["damage.notes"] = appendNote(reservation.Damage.Notes, "Review: "+review.Notes)
	}
	if err := s.repo.CompareAndSet(ctx, id, conditions, set); err != nil {
		return nil, casError(err, "review damages for")
	}

	reservation.Damage.Status = status
	reservation.Damage.Pending = false
	reservation.Damage.FinalCharge = finalCharge
	reservation.Damage.ReviewedBy = actor.UserID
	reservation.Damage.ReviewedAt = &now
	if notes, ok := set["damage.notes"].(string); ok {
		reservation.Damage.Notes = notes
	}

	s.cfg.Log.Info("Damage assessment reviewed",
		"id", id,
		"action", review.Action,
		"status", status,
		"reviewed_by", actor.UserID,
	)

	if finalCharge != nil && *finalCharge > 0 {
		// TODO: capture the final charge against the resident's payment
		// method once the billing integration lands.
		s.cfg.Log.Info("Damage charge recorded, capture deferred to billing",
			"id", id,
			"final_charge", *finalCharge,
		)
	}

	event := notify.BaseEvent(notify.EventDamageAssessmentReviewed, notify.AudienceResident, reservation)
	event.Fee = finalCharge
	event.Reason = review.Action
	s.dispatcher.Dispatch(ctx, event)

	return reservation, nil
}

// damageCap is the maximum chargeable damage amount: the amenity's
// current deposit, falling back to the reservation's deposit snapshot
// when the amenity no longer exists. Lookup failures propagate.
func (s *reservationService) damageCap(ctx context.Context, communityID string, reservation *model.Reservation) (float64, error) {
	amenity, err := s.liveAmenity(ctx, communityID, reservation.AmenityID)
	if err != nil {
		return 0, err
	}
	if amenity == nil {
		return reservation.TotalDeposit, nil
	}
	return amenity.Deposit, nil
}
