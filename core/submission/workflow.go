package submission

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/spmb/core"
)

var errInvalidTransition = errors.New("invalid status transition")

// transitions lists the statuses reachable from each status.
// approved & rejected are terminal.
var transitions = map[string][]string{
	StatusPending:  {StatusReviewed, StatusApproved, StatusRejected},
	StatusReviewed: {StatusApproved, StatusRejected},
}

// CanTransition reports whether a submission in status `from` may move to status `to`.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func isValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// applyUpdate applies uu to sub following the review workflow.
// Moving into reviewed, approved or rejected stamps ReviewedAt & ReviewedBy;
// setting the current status again and updating notes leave the stamps alone.
func applyUpdate(sub Submission, uu UpdateSubmission, now time.Time) (Submission, error) {
	if uu.Status != nil && *uu.Status != sub.Status {
		to := *uu.Status
		if !isValidStatus(to) || !CanTransition(sub.Status, to) {
			return Submission{}, core.NewValidationError(
				errInvalidTransition,
				core.FieldError{Field: "status", Error: "cannot change status from " + sub.Status + " to " + to},
			)
		}
		reviewer := DefaultReviewer
		if uu.ReviewedBy != nil && *uu.ReviewedBy != "" {
			reviewer = *uu.ReviewedBy
		}
		stamp := now.UTC()
		sub.Status = to
		sub.ReviewedAt = &stamp
		sub.ReviewedBy = &reviewer
	}
	if uu.Notes != nil {
		sub.Notes = *uu.Notes
	}
	sub.UpdatedAt = now.UTC()
	return sub, nil
}
