package booking

import (
	"fmt"
	"time"

	"staybook/internal/domain"
	"staybook/internal/pkg/validator"
)

const (
	msgCheckOutOrder = "Check-out date must be after check-in date."
	msgUnavailable   = "This listing is not currently available for booking."
)

// Validate checks a new stay against the listing. Every failing field is
// reported; a nil error means the stay is acceptable.
func Validate(l *domain.Listing, checkIn, checkOut time.Time, guests int) error {
	return check(l, checkIn, checkOut, guests, true)
}

// ValidateChange is Validate for an existing booking: availability of the
// listing is not re-checked.
func ValidateChange(l *domain.Listing, checkIn, checkOut time.Time, guests int) error {
	return check(l, checkIn, checkOut, guests, false)
}

func check(l *domain.Listing, checkIn, checkOut time.Time, guests int, requireAvailable bool) error {
	errs := validator.FieldErrors{}

	if !domain.TruncateDate(checkOut).After(domain.TruncateDate(checkIn)) {
		errs.Add("check_out", msgCheckOutOrder)
	}
	if guests > l.MaxGuests {
		errs.Add("number_of_guests", fmt.Sprintf(
			"Number of guests (%d) exceeds maximum guests allowed (%d) for this listing.",
			guests, l.MaxGuests))
	}
	if requireAvailable && !l.IsAvailable {
		errs.Add("listing_id", msgUnavailable)
	}

	return errs.Err()
}
