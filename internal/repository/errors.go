// Package repository provides Postgres-backed persistence for lots, spots,
// reservations and users. The sentinel errors declared here are shared with
// the service layer so that handlers can distinguish failure scenarios
// without string matching.
package repository

import "errors"

var (
	// ErrNotFound is returned when a lot, spot, reservation or user does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoAvailableSpot is returned by an allocation attempt against a
	// lot with zero free spots.
	ErrNoAvailableSpot = errors.New("no available spot")

	// ErrLotInactive is returned when allocating against a disabled lot.
	ErrLotInactive = errors.New("lot inactive")

	// ErrInvalidSpotState is returned when a spot transition does not
	// match the spot's current state, e.g. releasing a free spot.
	ErrInvalidSpotState = errors.New("invalid spot state")

	// ErrAlreadyClosed is returned when closing a reservation twice.
	ErrAlreadyClosed = errors.New("reservation already closed")

	// ErrInsufficientFreeCapacity is returned when a shrink would need to
	// remove more spots than are currently free.
	ErrInsufficientFreeCapacity = errors.New("insufficient free capacity")

	// ErrLotHasOccupiedSpots is returned when disabling a lot that still
	// has reserved spots.
	ErrLotHasOccupiedSpots = errors.New("lot has occupied spots")

	// ErrNoOpRejected is returned when disabling an already-disabled lot
	// or restoring an already-active one.
	ErrNoOpRejected = errors.New("redundant lot state transition")

	// ErrInvalidDuration is returned when pricing a negative elapsed time.
	ErrInvalidDuration = errors.New("end time before start time")

	// ErrValidation is returned for malformed input such as a negative
	// target capacity.
	ErrValidation = errors.New("invalid input")
)
