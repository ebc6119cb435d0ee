package model

import (
	"time"
)

// Reservation statuses. Cancelled and completed are terminal; everything
// else occupies the amenity's time slot.
const (
	StatusNew                = "new"
	StatusJanitorialApproved = "janitorial_approved"
	StatusFullyApproved      = "fully_approved"
	StatusCancelled          = "cancelled"
	StatusCompleted          = "completed"
)

// ActiveStatuses lists the statuses considered when checking slot conflicts.
var ActiveStatuses = []string{StatusNew, StatusJanitorialApproved, StatusFullyApproved}

// Damage assessment statuses.
const (
	DamageStatusPending  = "pending"
	DamageStatusApproved = "approved"
	DamageStatusAdjusted = "adjusted"
	DamageStatusDenied   = "denied"
)

// Modification proposal statuses.
const (
	ModificationStatusNone     = "none"
	ModificationStatusPending  = "pending"
	ModificationStatusAccepted = "accepted"
	ModificationStatusRejected = "rejected"
)

type Reservation struct {
	ID          string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	CommunityID string `json:"community_id" bson:"community_id" validate:"required,mongodb"`
	AmenityID   string `json:"amenity_id" bson:"amenity_id" validate:"required,mongodb"`
	UserID      string `json:"user_id" bson:"user_id" validate:"required,mongodb"`

	Date          string     `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	SetupStart    time.Time  `json:"setup_start" bson:"setup_start" validate:"required"`
	SetupEnd      time.Time  `json:"setup_end" bson:"setup_end" validate:"required,gtfield=SetupStart"`
	PartyStart    time.Time  `json:"party_start" bson:"party_start" validate:"required"`
	PartyEnd      time.Time  `json:"party_end" bson:"party_end" validate:"required,gtfield=PartyStart"`
	CleaningStart *time.Time `json:"cleaning_start,omitempty" bson:"cleaning_start,omitempty"`
	CleaningEnd   *time.Time `json:"cleaning_end,omitempty" bson:"cleaning_end,omitempty"`

	GuestCount          int    `json:"guest_count" bson:"guest_count" validate:"required,min=1"`
	EventName           string `json:"event_name" bson:"event_name" validate:"required,min=2,max=100"`
	Private             bool   `json:"private" bson:"private"`
	SpecialRequirements string `json:"special_requirements,omitempty" bson:"special_requirements,omitempty" validate:"omitempty,max=1000"`

	// Financial snapshot captured from the amenity at creation time.
	// Never recomputed afterwards, even if the amenity's fees change.
	TotalFee     float64 `json:"total_fee" bson:"total_fee" validate:"min=0"`
	TotalDeposit float64 `json:"total_deposit" bson:"total_deposit" validate:"min=0"`

	Status string `json:"status" bson:"status" validate:"required,oneof=new janitorial_approved fully_approved cancelled completed"`
	Notes  string `json:"notes,omitempty" bson:"notes,omitempty"`

	Damage       *DamageRecord       `json:"damage,omitempty" bson:"damage,omitempty"`
	Modification *ModificationRecord `json:"modification,omitempty" bson:"modification,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// DamageRecord tracks a staff-submitted damage charge awaiting admin review.
type DamageRecord struct {
	Assessed       bool       `json:"assessed" bson:"assessed"`
	Pending        bool       `json:"pending" bson:"pending"`
	Status         string     `json:"status,omitempty" bson:"status,omitempty"`
	ReportedCharge float64    `json:"reported_charge,omitempty" bson:"reported_charge,omitempty"`
	FinalCharge    *float64   `json:"final_charge,omitempty" bson:"final_charge,omitempty"`
	Description    string     `json:"description,omitempty" bson:"description,omitempty"`
	Notes          string     `json:"notes,omitempty" bson:"notes,omitempty"`
	AssessedBy     string     `json:"assessed_by,omitempty" bson:"assessed_by,omitempty"`
	AssessedAt     *time.Time `json:"assessed_at,omitempty" bson:"assessed_at,omitempty"`
	ReviewedBy     string     `json:"reviewed_by,omitempty" bson:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty" bson:"reviewed_at,omitempty"`
}

// ModificationRecord tracks a staff-proposed date/time change. Count is
// cumulative across the reservation's lifetime and survives proposal
// clearing; it drives the first-change-free fee rule.
type ModificationRecord struct {
	Status             string     `json:"status" bson:"status"`
	ProposedDate       string     `json:"proposed_date,omitempty" bson:"proposed_date,omitempty"`
	ProposedPartyStart *time.Time `json:"proposed_party_start,omitempty" bson:"proposed_party_start,omitempty"`
	ProposedPartyEnd   *time.Time `json:"proposed_party_end,omitempty" bson:"proposed_party_end,omitempty"`
	Reason             string     `json:"reason,omitempty" bson:"reason,omitempty"`
	ProposedBy         string     `json:"proposed_by,omitempty" bson:"proposed_by,omitempty"`
	ProposedAt         *time.Time `json:"proposed_at,omitempty" bson:"proposed_at,omitempty"`
	Count              int        `json:"count" bson:"count"`
	LastFee            float64    `json:"last_fee,omitempty" bson:"last_fee,omitempty"`
}
