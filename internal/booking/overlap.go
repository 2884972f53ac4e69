package booking

import (
    "fmt"

    "github.com/hyeonwoo/studycafe-server/internal/model"
)

// ConflictKind classifies how an existing reservation intersects a
// candidate slot.  All kinds are equally fatal; the distinction exists
// only for diagnostics, since no partial booking is ever allowed.
type ConflictKind int

const (
    // ConflictCovered: the existing reservation fully contains the candidate.
    ConflictCovered ConflictKind = iota
    // ConflictCovers: the candidate fully contains the existing reservation.
    ConflictCovers
    // ConflictStartEdge: the existing reservation overlaps the candidate's start.
    ConflictStartEdge
    // ConflictEndEdge: the existing reservation overlaps the candidate's end.
    ConflictEndEdge
)

func (k ConflictKind) String() string {
    switch k {
    case ConflictCovered:
        return "existing booking covers the requested time"
    case ConflictCovers:
        return "requested time covers an existing booking"
    case ConflictStartEdge:
        return "existing booking overlaps the requested start"
    case ConflictEndEdge:
        return "existing booking overlaps the requested end"
    }
    return "overlapping booking"
}

// ConflictError reports an overlap between a candidate slot and one live
// reservation.  It records both slots so error messages and audit rows can
// show the exact collision.
type ConflictError struct {
    Kind      ConflictKind
    Existing  model.TimeSlot
    Candidate model.TimeSlot
}

func (e *ConflictError) Error() string {
    return fmt.Sprintf("%s (%s vs %s)", e.Kind, e.Existing, e.Candidate)
}

// CheckOverlap tests the candidate slot against every live reservation and
// returns a ConflictError for the first genuine intersection found.
// Canceled rows are skipped; blocked and temporary rows count.  Adjacency
// (existing.End == candidate.Start) is not an overlap.  Iteration order
// does not affect correctness since any single overlap is fatal.
func CheckOverlap(existing []model.Reservation, candidate model.TimeSlot) error {
    for i := range existing {
        rb := &existing[i]
        if !rb.Live() {
            continue
        }
        if !rb.Slot.Overlaps(candidate) {
            continue
        }
        kind := classify(rb.Slot, candidate)
        return &ConflictError{Kind: kind, Existing: rb.Slot, Candidate: candidate}
    }
    return nil
}

// classify maps an intersecting pair to its ConflictKind.  The four cases
// are mutually exclusive and exhaustive for genuinely overlapping
// half-open intervals.
func classify(existing, candidate model.TimeSlot) ConflictKind {
    switch {
    case existing.Start < candidate.Start && existing.End > candidate.End:
        return ConflictCovered
    case existing.Start >= candidate.Start && existing.End <= candidate.End:
        return ConflictCovers
    case existing.Start < candidate.Start:
        return ConflictStartEdge
    default:
        return ConflictEndEdge
    }
}
