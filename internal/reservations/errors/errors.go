package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	ErrAmenityNotFound = errors.New("amenity not found")

	// ErrStatusChanged signals that the compare-and-set filter matched no
	// document: the reservation moved to another status (or sub-status)
	// between the read and the write.
	ErrStatusChanged = errors.New("reservation status changed concurrently")

	// ErrSlotConflict signals the advisory lock for a slot is already
	// held by another in-flight request.
	ErrSlotConflict = errors.New("slot lock already held")
)
