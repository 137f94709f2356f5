package model

import (
	"errors"
	"time"
)

type TournamentFormatKind string

const (
	FormatKnockout   TournamentFormatKind = "knockout"
	FormatRoundRobin TournamentFormatKind = "round_robin"
)

type KnockoutSettings struct {
	DrawSize        int  `json:"draw_size" bson:"draw_size" validate:"oneof=4 8 16 32 64 128"`
	ThirdPlaceMatch bool `json:"third_place_match" bson:"third_place_match"`
}

type RoundRobinSettings struct {
	Groups int `json:"groups" bson:"groups" validate:"min=1,max=16"`
	Rounds int `json:"rounds" bson:"rounds" validate:"min=1,max=10"`
}

// TournamentFormat carries exactly one settings variant matching Kind.
type TournamentFormat struct {
	Kind       TournamentFormatKind `json:"kind" bson:"kind" validate:"required,oneof=knockout round_robin"`
	Knockout   *KnockoutSettings    `json:"knockout,omitempty" bson:"knockout,omitempty" validate:"omitempty"`
	RoundRobin *RoundRobinSettings  `json:"round_robin,omitempty" bson:"round_robin,omitempty" validate:"omitempty"`
}

var (
	ErrFormatSettingsMissing  = errors.New("format settings missing for the selected kind")
	ErrFormatSettingsMismatch = errors.New("format settings present for a different kind")
)

func (f TournamentFormat) Check() error {
	switch f.Kind {
	case FormatKnockout:
		if f.Knockout == nil {
			return ErrFormatSettingsMissing
		}
		if f.RoundRobin != nil {
			return ErrFormatSettingsMismatch
		}
	case FormatRoundRobin:
		if f.RoundRobin == nil {
			return ErrFormatSettingsMissing
		}
		if f.Knockout != nil {
			return ErrFormatSettingsMismatch
		}
	}
	return nil
}

type TournamentStatus string

const (
	TournamentDraft     TournamentStatus = "draft"
	TournamentScheduled TournamentStatus = "scheduled"
	TournamentCancelled TournamentStatus = "cancelled"
)

type Tournament struct {
	ID             string           `json:"id" bson:"_id"`
	ClubID         string           `json:"club_id" bson:"club_id"`
	Name           string           `json:"name" bson:"name" validate:"required,min=2,max=120"`
	OrganizerID    string           `json:"organizer_id" bson:"organizer_id"`
	Format         TournamentFormat `json:"format" bson:"format"`
	Blocks         []TimeSlot       `json:"blocks" bson:"blocks" validate:"required,min=1,max=200,dive"`
	Status         TournamentStatus `json:"status" bson:"status"`
	ReservationIDs []string         `json:"reservation_ids,omitempty" bson:"reservation_ids,omitempty"`
	CreatedAt      time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" bson:"updated_at"`
}

// LastDate is the latest block date, used as the booking horizon.
func (t *Tournament) LastDate() string {
	last := ""
	for _, b := range t.Blocks {
		if b.Date > last {
			last = b.Date
		}
	}
	return last
}
