package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"communa/pkg/logger"
	"communa/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	v := validator.New()

	log.Info("Reservation validator initialized successfully")

	return &ReservationValidator{
		validate: v,
		logger:   log,
	}
}

// Validate checks struct tags plus the interval invariants: the setup
// window must contain the party window, and the slot cannot start in
// the past.
func (v *ReservationValidator) Validate(reservation *model.Reservation) error {
	if err := v.validate.Struct(reservation); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if reservation.PartyStart.Before(reservation.SetupStart) {
		return ValidationErrors{
			ValidationError{
				Field:   "PartyStart",
				Message: "party_start cannot be before setup_start",
			},
		}
	}

	if reservation.PartyEnd.After(reservation.SetupEnd) {
		return ValidationErrors{
			ValidationError{
				Field:   "PartyEnd",
				Message: "party_end cannot be after setup_end",
			},
		}
	}

	if reservation.SetupStart.Before(time.Now()) {
		return ValidationErrors{
			ValidationError{
				Field:   "SetupStart",
				Message: "setup_start cannot be in the past",
			},
		}
	}

	if err := v.validateSlotDate(reservation.Date, reservation.PartyStart); err != nil {
		return err
	}

	return nil
}

// ValidateProposedSlot checks a modification proposal's replacement slot.
func (v *ReservationValidator) ValidateProposedSlot(date string, partyStart, partyEnd time.Time) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return ValidationErrors{
			ValidationError{
				Field:   "ProposedDate",
				Message: "proposed_date must be in YYYY-MM-DD format",
			},
		}
	}

	if !partyEnd.After(partyStart) {
		return ValidationErrors{
			ValidationError{
				Field:   "ProposedPartyEnd",
				Message: "proposed_party_end must be after proposed_party_start",
			},
		}
	}

	if partyStart.Before(time.Now()) {
		return ValidationErrors{
			ValidationError{
				Field:   "ProposedPartyStart",
				Message: "proposed_party_start cannot be in the past",
			},
		}
	}

	if err := v.validateSlotDate(date, partyStart); err != nil {
		return err
	}

	return nil
}

// ValidateCleaningInterval checks a janitorial cleaning window: it must
// begin at or after the party ends and run at least minDuration.
func (v *ReservationValidator) ValidateCleaningInterval(partyEnd, start, end time.Time, minDuration time.Duration) error {
	if start.Before(partyEnd) {
		return ValidationErrors{
			ValidationError{
				Field:   "CleaningStart",
				Message: "cleaning_start cannot be before party_end",
			},
		}
	}

	if !end.After(start) {
		return ValidationErrors{
			ValidationError{
				Field:   "CleaningEnd",
				Message: "cleaning_end must be after cleaning_start",
			},
		}
	}

	if end.Sub(start) < minDuration {
		return ValidationErrors{
			ValidationError{
				Field:   "CleaningEnd",
				Message: fmt.Sprintf("cleaning interval must be at least %s", minDuration),
			},
		}
	}

	return nil
}

// validateSlotDate requires the party to start on the reservation's
// calendar date, compared in UTC.
func (v *ReservationValidator) validateSlotDate(date string, partyStart time.Time) error {
	if partyStart.UTC().Format("2006-01-02") != date {
		return ValidationErrors{
			ValidationError{
				Field:   "Date",
				Message: "date must match the party_start calendar date (UTC)",
			},
		}
	}
	return nil
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must be in YYYY-MM-DD format", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
