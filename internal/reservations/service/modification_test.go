package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"communa/internal/reservations/notify"
	apperrors "communa/pkg/errors"
	"communa/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

func proposalIn(days int) ModificationProposal {
	start := time.Now().Add(time.Duration(days)*24*time.Hour + time.Hour).UTC().Truncate(time.Hour)
	return ModificationProposal{
		Date:       start.Format("2006-01-02"),
		PartyStart: start,
		PartyEnd:   start.Add(3 * time.Hour),
		Reason:     "hall maintenance that morning",
	}
}

func withPendingProposal(r *model.Reservation, days, priorChanges int) *model.Reservation {
	p := proposalIn(days)
	r.Modification = &model.ModificationRecord{
		Status:             model.ModificationStatusPending,
		ProposedDate:       p.Date,
		ProposedPartyStart: &p.PartyStart,
		ProposedPartyEnd:   &p.PartyEnd,
		Reason:             p.Reason,
		ProposedBy:         testStaffID,
		Count:              priorChanges,
	}
	return r
}

func TestProposeModification(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(slotIn(10, model.StatusNew))

	got, err := env.svc.ProposeModification(context.Background(), janitorial(), testID, proposalIn(12))
	if err != nil {
		t.Fatalf("ProposeModification() error: %v", err)
	}
	if got.Modification == nil || got.Modification.Status != model.ModificationStatusPending {
		t.Fatalf("modification = %+v, want pending", got.Modification)
	}
	if got.Modification.ProposedBy != testStaffID {
		t.Errorf("proposed_by = %s, want %s", got.Modification.ProposedBy, testStaffID)
	}
	if !env.dispatcher.has(notify.EventModificationProposed) {
		t.Errorf("expected %s event, got %v", notify.EventModificationProposed, env.dispatcher.names())
	}
}

func TestProposeModificationOnlyWhileNew(t *testing.T) {
	for _, status := range []string{model.StatusJanitorialApproved, model.StatusFullyApproved, model.StatusCancelled, model.StatusCompleted} {
		env := newTestEnv(t)
		env.withReservation(slotIn(10, status))

		_, err := env.svc.ProposeModification(context.Background(), admin(), testID, proposalIn(12))
		assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)
	}
}

func TestProposeModificationSecondProposalBlocked(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(withPendingProposal(slotIn(10, model.StatusNew), 12, 0))

	_, err := env.svc.ProposeModification(context.Background(), admin(), testID, proposalIn(14))
	assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)
}

func TestProposeModificationByResidentForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(slotIn(10, model.StatusNew))

	_, err := env.svc.ProposeModification(context.Background(), resident(), testID, proposalIn(12))
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestAcceptModificationFirstChangeFree(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(false, false))
	env.withReservation(withPendingProposal(slotIn(10, model.StatusNew), 12, 0))

	var set bson.M
	env.repo.CompareAndSetFunc = func(ctx context.Context, id string, conditions bson.M, s bson.M) error {
		set = s
		return nil
	}

	outcome, err := env.svc.AcceptModification(context.Background(), resident(), testID)
	if err != nil {
		t.Fatalf("AcceptModification() error: %v", err)
	}
	if outcome.Fee != 0 {
		t.Errorf("fee = %v, want 0 for first change 10 days out", outcome.Fee)
	}
	if outcome.Reservation.Modification.Count != 1 {
		t.Errorf("count = %d, want 1", outcome.Reservation.Modification.Count)
	}
	if set["modification.count"] != 1 {
		t.Errorf("persisted count = %v, want 1", set["modification.count"])
	}
	// Setup window collapses onto the new party interval.
	if !outcome.Reservation.SetupStart.Equal(outcome.Reservation.PartyStart) ||
		!outcome.Reservation.SetupEnd.Equal(outcome.Reservation.PartyEnd) {
		t.Errorf("setup window = [%v, %v], want party interval [%v, %v]",
			outcome.Reservation.SetupStart, outcome.Reservation.SetupEnd,
			outcome.Reservation.PartyStart, outcome.Reservation.PartyEnd)
	}
	if !env.dispatcher.has(notify.EventModificationAccepted) || !env.dispatcher.has(notify.EventReservationModified) {
		t.Errorf("expected accepted and modified events, got %v", env.dispatcher.names())
	}
}

func TestAcceptModificationSecondChangeCharged(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(false, false))
	env.withReservation(withPendingProposal(slotIn(10, model.StatusNew), 12, 1))

	outcome, err := env.svc.AcceptModification(context.Background(), resident(), testID)
	if err != nil {
		t.Fatalf("AcceptModification() error: %v", err)
	}
	if outcome.Fee != 25 {
		t.Errorf("fee = %v, want 25 for second change", outcome.Fee)
	}
	if outcome.Reservation.Modification.Count != 2 {
		t.Errorf("count = %d, want 2", outcome.Reservation.Modification.Count)
	}
}

func TestAcceptModificationCloseToEventCharged(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(false, false))
	env.withReservation(withPendingProposal(slotIn(3, model.StatusNew), 5, 0))

	outcome, err := env.svc.AcceptModification(context.Background(), resident(), testID)
	if err != nil {
		t.Fatalf("AcceptModification() error: %v", err)
	}
	if outcome.Fee != 25 {
		t.Errorf("fee = %v, want 25 for first change within 7 days", outcome.Fee)
	}
}

func TestAcceptModificationConflictOnNewSlot(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(false, false))
	env.withReservation(withPendingProposal(slotIn(10, model.StatusNew), 12, 0))
	env.repo.FindActiveOverlappingFunc = func(ctx context.Context, communityID, amenityID, date string, start, end time.Time, excludeID string) ([]*model.Reservation, error) {
		if excludeID != testID {
			t.Errorf("overlap check must exclude the reservation itself, got %q", excludeID)
		}
		return []*model.Reservation{slotIn(12, model.StatusFullyApproved)}, nil
	}

	_, err := env.svc.AcceptModification(context.Background(), resident(), testID)
	assertAppErrorCode(t, err, apperrors.CodeConflict)
}

func TestAcceptModificationSurfacesAmenityLookupFailure(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(withPendingProposal(slotIn(3, model.StatusNew), 5, 0))
	env.amenities.FindByIDFunc = func(ctx context.Context, communityID, amenityID string) (*model.Amenity, error) {
		return nil, errors.New("network timeout")
	}

	_, err := env.svc.AcceptModification(context.Background(), resident(), testID)
	assertAppErrorCode(t, err, apperrors.CodeInternal)
	if len(env.lockRepo.created) != 0 {
		t.Error("no slot lock may be taken when the policy lookup fails")
	}
}

func TestAcceptModificationNotOwner(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(withPendingProposal(slotIn(10, model.StatusNew), 12, 0))

	_, err := env.svc.AcceptModification(context.Background(), admin(), testID)
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestAcceptModificationWithoutProposal(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(slotIn(10, model.StatusNew))

	_, err := env.svc.AcceptModification(context.Background(), resident(), testID)
	assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)
}

func TestRejectModificationCancelsReservation(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(withPendingProposal(slotIn(10, model.StatusNew), 12, 0))

	got, err := env.svc.RejectModification(context.Background(), resident(), testID)
	if err != nil {
		t.Fatalf("RejectModification() error: %v", err)
	}
	if got.Status != model.StatusCancelled {
		t.Errorf("status = %s, want %s", got.Status, model.StatusCancelled)
	}
	if got.Modification.Status != model.ModificationStatusRejected {
		t.Errorf("modification status = %s, want %s", got.Modification.Status, model.ModificationStatusRejected)
	}
	if !env.dispatcher.has(notify.EventModificationRejected) || !env.dispatcher.has(notify.EventReservationCancelled) {
		t.Errorf("expected rejection and cancellation events, got %v", env.dispatcher.names())
	}
}

func TestWithdrawModification(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(withPendingProposal(slotIn(10, model.StatusNew), 12, 2))

	got, err := env.svc.WithdrawModification(context.Background(), janitorial(), testID)
	if err != nil {
		t.Fatalf("WithdrawModification() error: %v", err)
	}
	if got.Status != model.StatusNew {
		t.Errorf("status = %s, want unchanged %s", got.Status, model.StatusNew)
	}
	if got.Modification.Status != model.ModificationStatusNone {
		t.Errorf("modification status = %s, want %s", got.Modification.Status, model.ModificationStatusNone)
	}
	if got.Modification.Count != 2 {
		t.Errorf("count = %d, change counter must survive withdrawal", got.Modification.Count)
	}
}

func TestWithdrawModificationByResidentForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(withPendingProposal(slotIn(10, model.StatusNew), 12, 0))

	_, err := env.svc.WithdrawModification(context.Background(), resident(), testID)
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}
