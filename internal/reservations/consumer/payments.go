package consumer

import (
	"context"
	"courtkeeper/internal/reservations/service"
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/kafka"
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/model"
	"errors"
	"fmt"
)

// Confirmer is the booking operation a captured payment triggers.
type Confirmer interface {
	ConfirmBooking(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error)
}

// PaymentHandler confirms the reservation a captured payment belongs to.
// Redelivery of a payment for an already confirmed reservation succeeds.
type PaymentHandler struct {
	bookings Confirmer
	log      *logger.Logger
}

func NewPaymentHandler(bookings Confirmer, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		bookings: bookings,
		log:      log.Component("payment_consumer"),
	}
}

func (h *PaymentHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var payment model.PaymentCaptured
	if err := msg.DecodeValue(&payment); err != nil {
		return kafka.NewPermanentError("decode payment", err)
	}
	if payment.ReservationID == "" || payment.ClubID == "" {
		return kafka.NewPermanentError("payment without reservation", fmt.Errorf("payment %s", payment.PaymentID))
	}

	r, err := h.bookings.ConfirmBooking(ctx, payment.ClubID, payment.ReservationID, service.SystemRequester)
	if err == nil {
		h.log.Info("Reservation confirmed by payment",
			"id", r.ID,
			"payment_id", payment.PaymentID,
			"amount_cents", payment.AmountCents,
			"currency", payment.Currency,
		)
		return nil
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return kafka.NewTransientError("confirm reservation", err)
	}

	switch {
	case appErr.Retryable():
		return kafka.NewTransientError("confirm reservation", err)
	case appErr.Code == apperrors.CodeInvalidState && alreadyConfirmed(appErr):
		h.log.Info("Payment redelivered for confirmed reservation",
			"id", payment.ReservationID,
			"payment_id", payment.PaymentID,
		)
		return nil
	default:
		// The money was captured but the slot is gone: someone has to refund.
		h.log.Warn("Captured payment could not confirm reservation",
			"id", payment.ReservationID,
			"payment_id", payment.PaymentID,
			"code", appErr.Code,
		)
		return kafka.NewPermanentError("confirm reservation", err)
	}
}

func alreadyConfirmed(err *apperrors.AppError) bool {
	return fmt.Sprint(err.Details["status"]) == string(model.StatusConfirmed)
}
