package notification

import (
	"fmt"
	"strings"
)

const (
	TypeBookingConfirmation = "booking.confirmation"

	confirmationSubject = "Booking Confirmation"
)

// BookingConfirmation is the payload carried from the API to whichever
// worker ends up sending the email.
type BookingConfirmation struct {
	Type      string `json:"type"`
	To        string `json:"to"`
	BookingID int64  `json:"booking_id"`
	Summary   string `json:"summary"`
}

type Email struct {
	To      []string
	Subject string
	Body    string
}

func NewBookingConfirmation(to string, bookingID int64, summary string) BookingConfirmation {
	return BookingConfirmation{
		Type:      TypeBookingConfirmation,
		To:        strings.TrimSpace(to),
		BookingID: bookingID,
		Summary:   summary,
	}
}

func (m BookingConfirmation) Email() Email {
	return Email{
		To:      []string{m.To},
		Subject: confirmationSubject,
		Body:    "Thank you for your booking. Here are your booking details:\n" + m.Summary,
	}
}

func (m BookingConfirmation) validate() error {
	if m.To == "" {
		return fmt.Errorf("booking %d: no recipient", m.BookingID)
	}
	return nil
}
