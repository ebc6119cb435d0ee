package service

import (
	"context"
	"errors"
	"testing"
	"time"

	reservationserrors "communa/internal/reservations/errors"
	"communa/internal/reservations/notify"
	apperrors "communa/pkg/errors"
	"communa/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

func cleaningAfter(r *model.Reservation) *CleaningInterval {
	return &CleaningInterval{
		Start: r.PartyEnd,
		End:   r.PartyEnd.Add(3 * time.Hour),
	}
}

func TestApproveFromNewByJanitorial(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(true, true))
	r := slotIn(10, model.StatusNew)
	env.withReservation(r)

	var setStatus string
	env.repo.CompareAndSetFunc = func(ctx context.Context, id string, conditions bson.M, set bson.M) error {
		if conditions["status"] != model.StatusNew {
			t.Errorf("CAS condition status = %v, want %s", conditions["status"], model.StatusNew)
		}
		setStatus, _ = set["status"].(string)
		return nil
	}

	got, err := env.svc.Approve(context.Background(), janitorial(), testID, cleaningAfter(r))
	if err != nil {
		t.Fatalf("Approve() error: %v", err)
	}
	if got.Status != model.StatusJanitorialApproved || setStatus != model.StatusJanitorialApproved {
		t.Errorf("status = %s (persisted %s), want %s", got.Status, setStatus, model.StatusJanitorialApproved)
	}
	if got.CleaningStart == nil || got.CleaningEnd == nil {
		t.Error("cleaning interval not recorded")
	}
	if !env.dispatcher.has(notify.EventReservationPendingAdminApproval) {
		t.Errorf("expected %s event, got %v", notify.EventReservationPendingAdminApproval, env.dispatcher.names())
	}
}

func TestApproveFromNewSkipsAdminStageWhenNotRequired(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(true, false))
	r := slotIn(10, model.StatusNew)
	env.withReservation(r)

	got, err := env.svc.Approve(context.Background(), janitorial(), testID, cleaningAfter(r))
	if err != nil {
		t.Fatalf("Approve() error: %v", err)
	}
	if got.Status != model.StatusFullyApproved {
		t.Errorf("status = %s, want %s", got.Status, model.StatusFullyApproved)
	}
	if !env.dispatcher.has(notify.EventReservationApproved) || !env.dispatcher.has(notify.EventReservationApprovedStaff) {
		t.Errorf("expected resident and staff approval events, got %v", env.dispatcher.names())
	}
}

func TestApproveJanitorialRequiresCleaningInterval(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(true, true))
	env.withReservation(slotIn(10, model.StatusNew))

	_, err := env.svc.Approve(context.Background(), janitorial(), testID, nil)
	assertAppErrorCode(t, err, apperrors.CodeInvalidInput)
}

func TestApproveRejectsShortCleaningInterval(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(true, true))
	r := slotIn(10, model.StatusNew)
	env.withReservation(r)

	short := &CleaningInterval{Start: r.PartyEnd, End: r.PartyEnd.Add(time.Hour)}
	_, err := env.svc.Approve(context.Background(), janitorial(), testID, short)
	assertAppErrorCode(t, err, apperrors.CodeValidation)
}

func TestApproveFinalStageRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(true, true))
	env.withReservation(slotIn(10, model.StatusJanitorialApproved))

	_, err := env.svc.Approve(context.Background(), janitorial(), testID, nil)
	assertAppErrorCode(t, err, apperrors.CodeForbidden)

	got, err := env.svc.Approve(context.Background(), admin(), testID, nil)
	if err != nil {
		t.Fatalf("Approve() error: %v", err)
	}
	if got.Status != model.StatusFullyApproved {
		t.Errorf("status = %s, want %s", got.Status, model.StatusFullyApproved)
	}
}

func TestApproveByResidentForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(slotIn(10, model.StatusNew))

	_, err := env.svc.Approve(context.Background(), resident(), testID, nil)
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestApproveTerminalStatus(t *testing.T) {
	for _, status := range []string{model.StatusCancelled, model.StatusCompleted, model.StatusFullyApproved} {
		env := newTestEnv(t)
		env.withReservation(slotIn(10, status))

		_, err := env.svc.Approve(context.Background(), admin(), testID, nil)
		assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)
	}
}

func TestApproveLostRace(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(true, true))
	r := slotIn(10, model.StatusNew)
	env.withReservation(r)
	env.repo.CompareAndSetFunc = func(ctx context.Context, id string, conditions bson.M, set bson.M) error {
		return reservationserrors.ErrStatusChanged
	}

	_, err := env.svc.Approve(context.Background(), janitorial(), testID, cleaningAfter(r))
	assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)
}

func TestRejectRefundsInFull(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(slotIn(10, model.StatusNew))

	got, err := env.svc.Reject(context.Background(), janitorial(), testID, "hall double-booked for maintenance")
	if err != nil {
		t.Fatalf("Reject() error: %v", err)
	}
	if got.Status != model.StatusCancelled {
		t.Errorf("status = %s, want %s", got.Status, model.StatusCancelled)
	}
	if !env.dispatcher.has(notify.EventReservationRejected) {
		t.Errorf("expected %s event, got %v", notify.EventReservationRejected, env.dispatcher.names())
	}
	if env.dispatcher.events[0].Reason != "hall double-booked for maintenance" {
		t.Errorf("reason not propagated: %q", env.dispatcher.events[0].Reason)
	}
}

func TestRejectFullyApprovedIsInvalid(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(slotIn(10, model.StatusFullyApproved))

	_, err := env.svc.Reject(context.Background(), admin(), testID, "too late")
	assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)
}

func TestCancelFeeTiers(t *testing.T) {
	tests := []struct {
		name       string
		daysOut    int
		wantFee    float64
		wantRefund float64
	}{
		{"15 days out is free", 15, 0, 300},
		{"10 days out charges admin fee", 10, 50, 250},
		{"3 days out forfeits", 3, 300, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.withAmenity(testAmenity(false, false))
			env.withReservation(slotIn(tt.daysOut, model.StatusFullyApproved))

			outcome, err := env.svc.Cancel(context.Background(), resident(), testID)
			if err != nil {
				t.Fatalf("Cancel() error: %v", err)
			}
			if outcome.Fee != tt.wantFee || outcome.Refund != tt.wantRefund {
				t.Errorf("fee/refund = %v/%v, want %v/%v", outcome.Fee, outcome.Refund, tt.wantFee, tt.wantRefund)
			}
			if outcome.Reservation.Status != model.StatusCancelled {
				t.Errorf("status = %s, want %s", outcome.Reservation.Status, model.StatusCancelled)
			}
			if !env.dispatcher.has(notify.EventReservationCancelled) {
				t.Errorf("expected %s event, got %v", notify.EventReservationCancelled, env.dispatcher.names())
			}
		})
	}
}

func TestCancelUsesDefaultsWhenAmenityGone(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(slotIn(10, model.StatusNew))

	outcome, err := env.svc.Cancel(context.Background(), resident(), testID)
	if err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if outcome.Fee != 50 {
		t.Errorf("fee = %v, want default admin fee 50", outcome.Fee)
	}
}

func TestCancelSurfacesAmenityLookupFailure(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(slotIn(3, model.StatusFullyApproved))
	env.amenities.FindByIDFunc = func(ctx context.Context, communityID, amenityID string) (*model.Amenity, error) {
		return nil, errors.New("network timeout")
	}
	env.repo.CompareAndSetFunc = func(ctx context.Context, id string, conditions bson.M, set bson.M) error {
		t.Error("no status change may be written when the policy lookup fails")
		return nil
	}

	// 3 days out, a degraded default policy would forfeit the full 300.
	_, err := env.svc.Cancel(context.Background(), resident(), testID)
	assertAppErrorCode(t, err, apperrors.CodeInternal)
	if len(env.dispatcher.events) != 0 {
		t.Errorf("no events expected, got %v", env.dispatcher.names())
	}
}

func TestApproveSurfacesAmenityLookupFailure(t *testing.T) {
	env := newTestEnv(t)
	r := slotIn(10, model.StatusNew)
	env.withReservation(r)
	env.amenities.FindByIDFunc = func(ctx context.Context, communityID, amenityID string) (*model.Amenity, error) {
		return nil, errors.New("network timeout")
	}

	_, err := env.svc.Approve(context.Background(), janitorial(), testID, cleaningAfter(r))
	assertAppErrorCode(t, err, apperrors.CodeInternal)
}

func TestCancelNotOwner(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(slotIn(10, model.StatusNew))

	_, err := env.svc.Cancel(context.Background(), admin(), testID)
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestCancelTerminalStatus(t *testing.T) {
	for _, status := range []string{model.StatusCancelled, model.StatusCompleted} {
		env := newTestEnv(t)
		env.withReservation(slotIn(10, status))

		_, err := env.svc.Cancel(context.Background(), resident(), testID)
		assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)
	}
}

func TestCompleteWithDamages(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(slotIn(0, model.StatusFullyApproved))

	got, err := env.svc.Complete(context.Background(), janitorial(), testID, true)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %s, want %s", got.Status, model.StatusCompleted)
	}
	if got.Damage == nil || !got.Damage.Pending || got.Damage.Assessed {
		t.Errorf("damage record = %+v, want pending unassessed", got.Damage)
	}
	if !env.dispatcher.has(notify.EventReservationCompleted) || !env.dispatcher.has(notify.EventDamageAssessmentRequired) {
		t.Errorf("expected completion and damage events, got %v", env.dispatcher.names())
	}
}

func TestCompleteWithoutDamagesClearsRecord(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(slotIn(0, model.StatusFullyApproved))

	got, err := env.svc.Complete(context.Background(), admin(), testID, false)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got.Damage == nil || got.Damage.Pending || got.Damage.Assessed {
		t.Errorf("damage record = %+v, want cleared", got.Damage)
	}
	if env.dispatcher.has(notify.EventDamageAssessmentRequired) {
		t.Errorf("no damage event expected, got %v", env.dispatcher.names())
	}
}

func TestCompleteFromNewIsInvalid(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(slotIn(0, model.StatusNew))

	_, err := env.svc.Complete(context.Background(), admin(), testID, false)
	assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)
}
