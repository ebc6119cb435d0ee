package model

// Late-cancellation charge types. Forfeit keeps the full fee and deposit;
// fixed charges the policy's LateFee and refunds the remainder.
const (
	LateFeeForfeit = "forfeit"
	LateFeeFixed   = "fixed"
)

// Amenity is a bookable shared facility. The reservation service reads
// amenities but never writes them; ownership lives with community admin.
type Amenity struct {
	ID          string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	CommunityID string `json:"community_id" bson:"community_id" validate:"required,mongodb"`
	Name        string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Capacity    int    `json:"capacity" bson:"capacity" validate:"required,min=1"`

	Fee     float64 `json:"fee" bson:"fee" validate:"min=0"`
	Deposit float64 `json:"deposit" bson:"deposit" validate:"min=0"`

	JanitorialRequired bool `json:"janitorial_required" bson:"janitorial_required"`
	ApprovalRequired   bool `json:"approval_required" bson:"approval_required"`

	// Policies are optional on the document; a missing or undecodable
	// policy falls back to the fee engine's defaults.
	CancellationPolicy *CancellationPolicy `json:"cancellation_policy,omitempty" bson:"cancellation_policy,omitempty"`
	ModificationPolicy *ModificationPolicy `json:"modification_policy,omitempty" bson:"modification_policy,omitempty"`
}

// CancellationPolicy is tiered by whole days until the event: free above
// 14 days, AdminFee between 7 and 14, and below 7 days either full
// forfeiture or a fixed late fee depending on LateFeeType.
type CancellationPolicy struct {
	Enabled     bool    `json:"enabled" bson:"enabled"`
	AdminFee    float64 `json:"admin_fee" bson:"admin_fee" validate:"min=0"`
	LateFeeType string  `json:"late_fee_type,omitempty" bson:"late_fee_type,omitempty" validate:"omitempty,oneof=forfeit fixed"`
	LateFee     float64 `json:"late_fee,omitempty" bson:"late_fee,omitempty" validate:"min=0"`
}

// ModificationPolicy charges nothing for the first change requested more
// than 7 days out; every other change costs AdditionalChangeFee.
type ModificationPolicy struct {
	Enabled             bool    `json:"enabled" bson:"enabled"`
	AdditionalChangeFee float64 `json:"additional_change_fee" bson:"additional_change_fee" validate:"min=0"`
}
