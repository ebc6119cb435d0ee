package service

import (
	"context"
	"fmt"
	"time"

	"communa/internal/reservations/fee"
	"communa/internal/reservations/notify"
	apperrors "communa/pkg/errors"
	"communa/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

type action string

const (
	actionApprove  action = "approve"
	actionReject   action = "reject"
	actionCancel   action = "cancel"
	actionComplete action = "complete"
)

// transitions lists the actions legal from each status. Cancelled and
// completed are terminal and allow nothing.
var transitions = map[string]map[action]bool{
	model.StatusNew: {
		actionApprove: true,
		actionReject:  true,
		actionCancel:  true,
	},
	model.StatusJanitorialApproved: {
		actionApprove:  true,
		actionReject:   true,
		actionCancel:   true,
		actionComplete: true,
	},
	model.StatusFullyApproved: {
		actionCancel:   true,
		actionComplete: true,
	},
}

func canTransition(status string, a action) bool {
	return transitions[status][a]
}

func transitionError(status string, a action) error {
	return apperrors.InvalidTransition(fmt.Sprintf("Cannot %s a reservation in status %q", a, status))
}

// Approve advances the reservation one approval stage. From new, a
// janitorial actor must supply a cleaning interval; from
// janitorial_approved only an admin may approve.
func (s *reservationService) Approve(ctx context.Context, actor model.Actor, id string, cleaning *CleaningInterval) (*model.Reservation, error) {
	if !actor.Staff() {
		return nil, apperrors.Forbidden("Only janitorial or admin staff can approve reservations")
	}

	reservation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(reservation.Status, actionApprove) {
		return nil, transitionError(reservation.Status, actionApprove)
	}

	var target string
	switch reservation.Status {
	case model.StatusNew:
		if actor.Role == model.RoleJanitorial && cleaning == nil {
			return nil, apperrors.InvalidInput("Janitorial approval requires a cleaning interval")
		}
		amenity, amenityErr := s.liveAmenity(ctx, actor.CommunityID, reservation.AmenityID)
		if amenityErr != nil {
			return nil, amenityErr
		}
		// A deleted amenity keeps the admin stage; skipping it needs a
		// positive signal from the current policy.
		target = model.StatusJanitorialApproved
		if amenity != nil && !amenity.ApprovalRequired {
			target = model.StatusFullyApproved
		}

	case model.StatusJanitorialApproved:
		if actor.Role != model.RoleAdmin {
			return nil, apperrors.Forbidden("Only an admin can give final approval")
		}
		target = model.StatusFullyApproved
	}

	set := bson.M{"status": target}
	if cleaning != nil {
		if err := s.validator.ValidateCleaningInterval(reservation.PartyEnd, cleaning.Start, cleaning.End, s.cfg.MinCleaningDuration); err != nil {
			return nil, apperrors.Validation("Invalid cleaning interval", map[string]any{"error": err.Error()})
		}
		set["cleaning_start"] = cleaning.Start
		set["cleaning_end"] = cleaning.End
	}

	conditions := bson.M{"status": reservation.Status}
	if err := s.repo.CompareAndSet(ctx, id, conditions, set); err != nil {
		return nil, casError(err, "approve")
	}

	reservation.Status = target
	if cleaning != nil {
		reservation.CleaningStart = &cleaning.Start
		reservation.CleaningEnd = &cleaning.End
	}

	s.cfg.Log.Info("Reservation approved",
		"id", id,
		"status", target,
		"approved_by", actor.UserID,
		"role", actor.Role,
	)

	s.dispatchApprovalEvents(ctx, reservation)
	return reservation, nil
}

// Reject refuses a pending reservation. The resident is refunded in
// full; no cancellation fee applies to staff rejections.
func (s *reservationService) Reject(ctx context.Context, actor model.Actor, id string, reason string) (*model.Reservation, error) {
	if !actor.Staff() {
		return nil, apperrors.Forbidden("Only janitorial or admin staff can reject reservations")
	}

	reservation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(reservation.Status, actionReject) {
		return nil, transitionError(reservation.Status, actionReject)
	}
	if reservation.Status == model.StatusJanitorialApproved && actor.Role != model.RoleAdmin {
		return nil, apperrors.Forbidden("Only an admin can reject a janitorial-approved reservation")
	}

	note := "Rejected by staff"
	if reason != "" {
		note = "Rejected by staff: " + reason
	}

	conditions := bson.M{"status": reservation.Status}
	set := bson.M{
		"status": model.StatusCancelled,
		"notes":  appendNote(reservation.Notes, note),
	}
	if err := s.repo.CompareAndSet(ctx, id, conditions, set); err != nil {
		return nil, casError(err, "reject")
	}

	reservation.Status = model.StatusCancelled
	reservation.Notes = set["notes"].(string)

	s.cfg.Log.Info("Reservation rejected",
		"id", id,
		"rejected_by", actor.UserID,
		"reason", reason,
	)

	event := notify.BaseEvent(notify.EventReservationRejected, notify.AudienceResident, reservation)
	event.Reason = reason
	s.dispatcher.Dispatch(ctx, event)

	return reservation, nil
}

// Cancel lets the owner withdraw the reservation. The fee is computed
// from the amenity's current cancellation policy against the financial
// snapshot taken at creation.
func (s *reservationService) Cancel(ctx context.Context, actor model.Actor, id string) (*CancellationOutcome, error) {
	reservation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if reservation.UserID != actor.UserID {
		return nil, apperrors.Forbidden("Only the reservation owner can cancel it")
	}
	if !canTransition(reservation.Status, actionCancel) {
		return nil, transitionError(reservation.Status, actionCancel)
	}

	amenity, err := s.liveAmenity(ctx, actor.CommunityID, reservation.AmenityID)
	if err != nil {
		return nil, err
	}
	var policy *model.CancellationPolicy
	if amenity != nil {
		policy = amenity.CancellationPolicy
	}

	result := fee.Cancellation(time.Now(), reservation.PartyStart, reservation.TotalFee, reservation.TotalDeposit, policy)

	note := fmt.Sprintf("Cancelled by resident: %s (fee %.2f, refund %.2f)", result.Reason, result.Fee, result.Refund)
	conditions := bson.M{"status": reservation.Status}
	set := bson.M{
		"status": model.StatusCancelled,
		"notes":  appendNote(reservation.Notes, note),
	}
	if err := s.repo.CompareAndSet(ctx, id, conditions, set); err != nil {
		return nil, casError(err, "cancel")
	}

	reservation.Status = model.StatusCancelled
	reservation.Notes = set["notes"].(string)

	s.cfg.Log.Info("Reservation cancelled",
		"id", id,
		"fee", result.Fee,
		"refund", result.Refund,
	)

	event := notify.BaseEvent(notify.EventReservationCancelled, notify.AudienceResident, reservation)
	event.Fee = &result.Fee
	event.Refund = &result.Refund
	event.Reason = result.Reason
	s.dispatcher.Dispatch(ctx, event)

	return &CancellationOutcome{
		Reservation: reservation,
		Fee:         result.Fee,
		Refund:      result.Refund,
		Reason:      result.Reason,
	}, nil
}

// Complete closes out a reservation after the event. When damages were
// found the damage record enters the assessment sub-workflow; otherwise
// it is cleared.
func (s *reservationService) Complete(ctx context.Context, actor model.Actor, id string, damagesFound bool) (*model.Reservation, error) {
	if !actor.Staff() {
		return nil, apperrors.Forbidden("Only janitorial or admin staff can complete reservations")
	}

	reservation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(reservation.Status, actionComplete) {
		return nil, transitionError(reservation.Status, actionComplete)
	}

	damage := &model.DamageRecord{
		Assessed: false,
		Pending:  damagesFound,
	}

	conditions := bson.M{"status": reservation.Status}
	set := bson.M{
		"status": model.StatusCompleted,
		"damage": damage,
	}
	if err := s.repo.CompareAndSet(ctx, id, conditions, set); err != nil {
		return nil, casError(err, "complete")
	}

	reservation.Status = model.StatusCompleted
	reservation.Damage = damage

	s.cfg.Log.Info("Reservation completed",
		"id", id,
		"completed_by", actor.UserID,
		"damages_found", damagesFound,
	)

	s.dispatcher.Dispatch(ctx, notify.BaseEvent(notify.EventReservationCompleted, notify.AudienceResident, reservation))
	if damagesFound {
		s.dispatcher.Dispatch(ctx, notify.BaseEvent(notify.EventDamageAssessmentRequired, notify.AudienceJanitorial, reservation))
	}

	return reservation, nil
}

func (s *reservationService) dispatchApprovalEvents(ctx context.Context, r *model.Reservation) {
	switch r.Status {
	case model.StatusJanitorialApproved:
		s.dispatcher.Dispatch(ctx, notify.BaseEvent(notify.EventReservationPendingAdminApproval, notify.AudienceAdmin, r))

	case model.StatusFullyApproved:
		s.dispatcher.Dispatch(ctx, notify.BaseEvent(notify.EventReservationApproved, notify.AudienceResident, r))
		s.dispatcher.Dispatch(ctx, notify.BaseEvent(notify.EventReservationApprovedStaff, notify.AudienceJanitorial, r))
	}
}
