package validator

import (
	"strings"
	"testing"
	"time"

	"communa/pkg/logger"
	"communa/pkg/model"
)

func newTestValidator() *ReservationValidator {
	log := logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT})
	return NewReservationValidator(log)
}

func validReservation() *model.Reservation {
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Hour)
	return &model.Reservation{
		CommunityID: "507f1f77bcf86cd799439011",
		AmenityID:   "507f1f77bcf86cd799439012",
		UserID:      "507f1f77bcf86cd799439013",
		Date:        start.Format("2006-01-02"),
		SetupStart:  start.Add(-time.Hour),
		SetupEnd:    start.Add(5 * time.Hour),
		PartyStart:  start,
		PartyEnd:    start.Add(4 * time.Hour),
		GuestCount:  25,
		EventName:   "Birthday party",
		Status:      model.StatusNew,
	}
}

func TestValidateAcceptsWellFormedReservation(t *testing.T) {
	v := newTestValidator()

	if err := v.Validate(validReservation()); err != nil {
		t.Fatalf("Validate() returned error for valid reservation: %v", err)
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	v := newTestValidator()

	r := validReservation()
	r.AmenityID = ""
	r.EventName = ""

	err := v.Validate(r)
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}

	var verrs ValidationErrors
	if !asValidationErrors(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 2 {
		t.Errorf("expected 2 validation errors, got %d: %v", len(verrs), verrs)
	}
}

func TestValidateRejectsMalformedIDs(t *testing.T) {
	v := newTestValidator()

	r := validReservation()
	r.UserID = "not-an-object-id"

	err := v.Validate(r)
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "ObjectID") {
		t.Errorf("expected ObjectID message, got: %v", err)
	}
}

func TestValidateRejectsPartyOutsideSetupWindow(t *testing.T) {
	v := newTestValidator()

	before := validReservation()
	before.PartyStart = before.SetupStart.Add(-time.Minute)
	if err := v.Validate(before); err == nil {
		t.Error("expected error for party_start before setup_start")
	}

	after := validReservation()
	after.PartyEnd = after.SetupEnd.Add(time.Minute)
	if err := v.Validate(after); err == nil {
		t.Error("expected error for party_end after setup_end")
	}
}

func TestValidateRejectsPastSlot(t *testing.T) {
	v := newTestValidator()

	r := validReservation()
	shift := -72 * time.Hour
	r.SetupStart = r.SetupStart.Add(shift)
	r.SetupEnd = r.SetupEnd.Add(shift)
	r.PartyStart = r.PartyStart.Add(shift)
	r.PartyEnd = r.PartyEnd.Add(shift)
	r.Date = r.PartyStart.UTC().Format("2006-01-02")

	if err := v.Validate(r); err == nil {
		t.Error("expected error for slot in the past")
	}
}

func TestValidateRejectsDateMismatch(t *testing.T) {
	v := newTestValidator()

	r := validReservation()
	r.Date = r.PartyStart.UTC().AddDate(0, 0, 1).Format("2006-01-02")

	if err := v.Validate(r); err == nil {
		t.Error("expected error when date does not match party_start")
	}
}

func TestValidateProposedSlot(t *testing.T) {
	v := newTestValidator()

	start := time.Now().Add(96 * time.Hour).UTC().Truncate(time.Hour)
	date := start.Format("2006-01-02")

	if err := v.ValidateProposedSlot(date, start, start.Add(3*time.Hour)); err != nil {
		t.Errorf("expected valid proposal, got: %v", err)
	}

	if err := v.ValidateProposedSlot("06/15/2025", start, start.Add(3*time.Hour)); err == nil {
		t.Error("expected error for malformed proposed date")
	}

	if err := v.ValidateProposedSlot(date, start, start); err == nil {
		t.Error("expected error for empty proposed interval")
	}

	past := time.Now().Add(-24 * time.Hour).UTC()
	if err := v.ValidateProposedSlot(past.Format("2006-01-02"), past, past.Add(time.Hour)); err == nil {
		t.Error("expected error for proposed slot in the past")
	}
}

func TestValidateCleaningInterval(t *testing.T) {
	v := newTestValidator()

	partyEnd := time.Now().Add(72 * time.Hour).UTC()
	minDuration := 2 * time.Hour

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr bool
	}{
		{"starts right at party end", partyEnd, partyEnd.Add(2 * time.Hour), false},
		{"starts an hour after party end", partyEnd.Add(time.Hour), partyEnd.Add(4 * time.Hour), false},
		{"starts before party end", partyEnd.Add(-time.Minute), partyEnd.Add(3 * time.Hour), true},
		{"shorter than minimum", partyEnd, partyEnd.Add(time.Hour), true},
		{"end before start", partyEnd.Add(2 * time.Hour), partyEnd.Add(time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateCleaningInterval(partyEnd, tt.start, tt.end, minDuration)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCleaningInterval() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func asValidationErrors(err error, target *ValidationErrors) bool {
	verrs, ok := err.(ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}
