package validator

import (
	"courtkeeper/pkg/model"
	"courtkeeper/pkg/validation"
)

type ReservationValidator struct {
	validator *validation.Validator
}

func NewReservationValidator(v *validation.Validator) *ReservationValidator {
	return &ReservationValidator{validator: v}
}

func (v *ReservationValidator) ValidateRequest(req *model.BookingRequest) error {
	return v.validator.Struct(req)
}

func (v *ReservationValidator) ValidateRequester(requester model.Requester) error {
	return v.validator.Struct(&requester)
}
