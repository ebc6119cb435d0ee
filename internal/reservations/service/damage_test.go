package service

import (
	"context"
	"testing"

	"communa/internal/reservations/notify"
	apperrors "communa/pkg/errors"
	"communa/pkg/model"
)

func completedWithDamages() *model.Reservation {
	r := slotIn(0, model.StatusCompleted)
	r.Damage = &model.DamageRecord{Assessed: false, Pending: true}
	return r
}

func assessedPendingReview(amount float64) *model.Reservation {
	r := slotIn(0, model.StatusCompleted)
	r.Damage = &model.DamageRecord{
		Assessed:       true,
		Pending:        true,
		Status:         model.DamageStatusPending,
		ReportedCharge: amount,
		Description:    "broken table",
		AssessedBy:     testStaffID,
	}
	return r
}

func TestAssessDamage(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(true, true))
	env.withReservation(completedWithDamages())

	got, err := env.svc.AssessDamage(context.Background(), janitorial(), testID, DamageAssessment{
		Amount:      80,
		Description: "broken table",
	})
	if err != nil {
		t.Fatalf("AssessDamage() error: %v", err)
	}
	if got.Damage.Status != model.DamageStatusPending || !got.Damage.Assessed {
		t.Errorf("damage = %+v, want assessed pending review", got.Damage)
	}
	if got.Damage.ReportedCharge != 80 {
		t.Errorf("reported charge = %v, want 80", got.Damage.ReportedCharge)
	}
	if !env.dispatcher.has(notify.EventDamageAssessmentRequired) {
		t.Errorf("expected admin review event, got %v", env.dispatcher.names())
	}
	if env.dispatcher.events[0].Audience != notify.AudienceAdmin {
		t.Errorf("audience = %s, want %s", env.dispatcher.events[0].Audience, notify.AudienceAdmin)
	}
}

func TestAssessDamageCappedByLiveDeposit(t *testing.T) {
	env := newTestEnv(t)
	amenity := testAmenity(true, true)
	amenity.Deposit = 60
	env.withAmenity(amenity)
	env.withReservation(completedWithDamages())

	_, err := env.svc.AssessDamage(context.Background(), janitorial(), testID, DamageAssessment{
		Amount:      61,
		Description: "broken table",
	})
	assertAppErrorCode(t, err, apperrors.CodeValidation)
}

func TestAssessDamageFallsBackToSnapshotDeposit(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(completedWithDamages())

	// Snapshot deposit is 100; amenity lookup fails.
	if _, err := env.svc.AssessDamage(context.Background(), janitorial(), testID, DamageAssessment{
		Amount:      100,
		Description: "scuffed floor",
	}); err != nil {
		t.Fatalf("AssessDamage() error: %v", err)
	}

	env2 := newTestEnv(t)
	env2.withReservation(completedWithDamages())
	_, err := env2.svc.AssessDamage(context.Background(), janitorial(), testID, DamageAssessment{
		Amount:      101,
		Description: "scuffed floor",
	})
	assertAppErrorCode(t, err, apperrors.CodeValidation)
}

func TestAssessDamageIllegalStates(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(true, true))

	noDamages := slotIn(0, model.StatusCompleted)
	noDamages.Damage = &model.DamageRecord{Assessed: false, Pending: false}
	env.withReservation(noDamages)
	_, err := env.svc.AssessDamage(context.Background(), janitorial(), testID, DamageAssessment{Amount: 10, Description: "x"})
	assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)

	active := slotIn(5, model.StatusFullyApproved)
	env.withReservation(active)
	_, err = env.svc.AssessDamage(context.Background(), janitorial(), testID, DamageAssessment{Amount: 10, Description: "x"})
	assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)

	already := assessedPendingReview(50)
	env.withReservation(already)
	_, err = env.svc.AssessDamage(context.Background(), janitorial(), testID, DamageAssessment{Amount: 10, Description: "x"})
	assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)
}

func TestAssessDamageResidentForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(completedWithDamages())

	_, err := env.svc.AssessDamage(context.Background(), resident(), testID, DamageAssessment{Amount: 10, Description: "x"})
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestReviewDamageApprove(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(true, true))
	env.withReservation(assessedPendingReview(80))

	got, err := env.svc.ReviewDamage(context.Background(), admin(), testID, DamageReview{Action: ReviewApprove})
	if err != nil {
		t.Fatalf("ReviewDamage() error: %v", err)
	}
	if got.Damage.Status != model.DamageStatusApproved || got.Damage.Pending {
		t.Errorf("damage = %+v, want approved and settled", got.Damage)
	}
	if got.Damage.FinalCharge == nil || *got.Damage.FinalCharge != 80 {
		t.Errorf("final charge = %v, want 80", got.Damage.FinalCharge)
	}
	if !env.dispatcher.has(notify.EventDamageAssessmentReviewed) {
		t.Errorf("expected review event, got %v", env.dispatcher.names())
	}
}

func TestReviewDamageAdjust(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(true, true))
	env.withReservation(assessedPendingReview(80))

	amount := 40.0
	got, err := env.svc.ReviewDamage(context.Background(), admin(), testID, DamageReview{Action: ReviewAdjust, Amount: &amount})
	if err != nil {
		t.Fatalf("ReviewDamage() error: %v", err)
	}
	if got.Damage.Status != model.DamageStatusAdjusted {
		t.Errorf("status = %s, want %s", got.Damage.Status, model.DamageStatusAdjusted)
	}
	if got.Damage.FinalCharge == nil || *got.Damage.FinalCharge != 40 {
		t.Errorf("final charge = %v, want 40", got.Damage.FinalCharge)
	}
}

func TestReviewDamageAdjustRequiresAmountWithinDeposit(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(true, true))
	env.withReservation(assessedPendingReview(80))

	_, err := env.svc.ReviewDamage(context.Background(), admin(), testID, DamageReview{Action: ReviewAdjust})
	assertAppErrorCode(t, err, apperrors.CodeInvalidInput)

	over := 101.0
	_, err = env.svc.ReviewDamage(context.Background(), admin(), testID, DamageReview{Action: ReviewAdjust, Amount: &over})
	assertAppErrorCode(t, err, apperrors.CodeValidation)

	// Adjusting to zero is a denial in disguise; reject it.
	zero := 0.0
	_, err = env.svc.ReviewDamage(context.Background(), admin(), testID, DamageReview{Action: ReviewAdjust, Amount: &zero})
	assertAppErrorCode(t, err, apperrors.CodeValidation)
}

func TestReviewDamageDeny(t *testing.T) {
	env := newTestEnv(t)
	env.withAmenity(testAmenity(true, true))
	env.withReservation(assessedPendingReview(80))

	got, err := env.svc.ReviewDamage(context.Background(), admin(), testID, DamageReview{Action: ReviewDeny})
	if err != nil {
		t.Fatalf("ReviewDamage() error: %v", err)
	}
	if got.Damage.Status != model.DamageStatusDenied || got.Damage.FinalCharge != nil {
		t.Errorf("damage = %+v, want denied with no charge", got.Damage)
	}
}

func TestReviewDamageRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(assessedPendingReview(80))

	_, err := env.svc.ReviewDamage(context.Background(), janitorial(), testID, DamageReview{Action: ReviewApprove})
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestReviewDamageWithoutPendingAssessment(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(completedWithDamages())

	_, err := env.svc.ReviewDamage(context.Background(), admin(), testID, DamageReview{Action: ReviewApprove})
	assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)
}

func TestReviewDamageUnknownAction(t *testing.T) {
	env := newTestEnv(t)
	env.withReservation(assessedPendingReview(80))

	_, err := env.svc.ReviewDamage(context.Background(), admin(), testID, DamageReview{Action: "waive"})
	assertAppErrorCode(t, err, apperrors.CodeInvalidInput)
}
