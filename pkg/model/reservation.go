package model

import "time"

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
	StatusNoShow    ReservationStatus = "no_show"
)

// ActiveStatuses block the slot they occupy.
var ActiveStatuses = []ReservationStatus{StatusPending, StatusConfirmed}

func (s ReservationStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s ReservationStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

type ReservationSource string

const (
	SourceMember     ReservationSource = "member"
	SourceTournament ReservationSource = "tournament"
	SourceSeasonPass ReservationSource = "season_pass"
)

const (
	CancelReasonRequested   = "requested"
	CancelReasonHoldExpired = "hold_expired"
	CancelReasonReleased    = "released"
)

type Reservation struct {
	ID          string `json:"id" bson:"_id" db:"id"`
	ClubID      string `json:"club_id" bson:"club_id" db:"club_id"`
	RequesterID string `json:"requester_id" bson:"requester_id" db:"requester_id"`

	TimeSlot `bson:",inline"`

	StartsAt time.Time `json:"starts_at" bson:"starts_at" db:"starts_at"`
	EndsAt   time.Time `json:"ends_at" bson:"ends_at" db:"ends_at"`

	Status ReservationStatus `json:"status" bson:"status" db:"status"`
	Source ReservationSource `json:"source" bson:"source" db:"source"`

	RequestKey      string `json:"request_key,omitempty" bson:"request_key,omitempty" db:"request_key"`
	EntitlementID   string `json:"entitlement_id,omitempty" bson:"entitlement_id,omitempty" db:"entitlement_id"`
	DiscountPercent int    `json:"discount_percent,omitempty" bson:"discount_percent,omitempty" db:"discount_percent"`
	TournamentID    string `json:"tournament_id,omitempty" bson:"tournament_id,omitempty" db:"tournament_id"`
	SeasonPassID    string `json:"season_pass_id,omitempty" bson:"season_pass_id,omitempty" db:"season_pass_id"`

	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty" bson:"hold_expires_at,omitempty" db:"hold_expires_at"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at" db:"updated_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty" db:"confirmed_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelledBy   string     `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty" db:"cancelled_by"`
	CancelReason  string     `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty" db:"cancel_reason"`
}

func (r *Reservation) Key() string {
	return SlotKey(r.ClubID, r.ResourceID, r.Date)
}

// HoldExpired reports whether a pending reservation outlived its payment hold.
func (r *Reservation) HoldExpired(now time.Time) bool {
	return r.Status == StatusPending && r.HoldExpiresAt != nil && !now.Before(*r.HoldExpiresAt)
}

// Transition describes a compare-and-set status change applied by a store.
type Transition struct {
	From   []ReservationStatus
	To     ReservationStatus
	At     time.Time
	By     string
	Reason string
}

// ReservationClaim is what callers hand to the conflict guard.
type ReservationClaim struct {
	Slot        TimeSlot
	RequesterID string
	RequestKey  string
	Source      ReservationSource

	// BookableUntil extends the advance window to this date (YYYY-MM-DD).
	// Empty means the club's advance_booking_days applies.
	BookableUntil string

	EntitlementID   string
	DiscountPercent int
	TournamentID    string
	SeasonPassID    string
}

// BookingRequest is the caller's ask for one slot. RequestKey comes from the
// Idempotency-Key header, not the body.
type BookingRequest struct {
	TimeSlot
	RequestKey string `json:"-" validate:"max=128"`
}

type ReservationEventType string

const (
	EventReservationCreated   ReservationEventType = "reservation.created"
	EventReservationConfirmed ReservationEventType = "reservation.confirmed"
	EventReservationCancelled ReservationEventType = "reservation.cancelled"
	EventReservationExpired   ReservationEventType = "reservation.expired"
	EventReservationCompleted ReservationEventType = "reservation.completed"
	EventReservationNoShow    ReservationEventType = "reservation.no_show"
)

type ReservationEvent struct {
	EventType   ReservationEventType `json:"event_type"`
	Reservation *Reservation         `json:"reservation"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

// PaymentCaptured is consumed from the payments topic.
type PaymentCaptured struct {
	PaymentID     string    `json:"payment_id"`
	ReservationID string    `json:"reservation_id"`
	ClubID        string    `json:"club_id"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	CapturedAt    time.Time `json:"captured_at"`
}
