package submission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/spmb/core"
)

func strPtr(s string) *string { return &s }

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusReviewed, true},
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusReviewed, StatusApproved, true},
		{StatusReviewed, StatusRejected, true},
		{StatusReviewed, StatusPending, false},
		{StatusApproved, StatusRejected, false},
		{StatusApproved, StatusPending, false},
		{StatusRejected, StatusApproved, false},
		{StatusPending, "archived", false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_applyUpdate(t *testing.T) {
	created := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 2, 9, 30, 0, 0, time.FixedZone("WIB", 7*60*60))
	earlier := created.Add(time.Hour)
	reviewer := "bu.rina"

	pending := Submission{ID: "1", Status: StatusPending, CreatedAt: created, UpdatedAt: created}
	reviewed := Submission{
		ID:         "2",
		Status:     StatusReviewed,
		Notes:      "berkas lengkap",
		ReviewedAt: &earlier,
		ReviewedBy: &reviewer,
		CreatedAt:  created,
		UpdatedAt:  earlier,
	}

	tests := []struct {
		name           string
		sub            Submission
		uu             UpdateSubmission
		wantStatus     string
		wantNotes      string
		wantReviewer   string
		wantReviewedAt time.Time
		wantErr        bool
	}{
		{
			name:           "approve pending with default reviewer",
			sub:            pending,
			uu:             UpdateSubmission{Status: strPtr(StatusApproved)},
			wantStatus:     StatusApproved,
			wantReviewer:   DefaultReviewer,
			wantReviewedAt: now.UTC(),
		},
		{
			name:           "mark reviewed with named reviewer",
			sub:            pending,
			uu:             UpdateSubmission{Status: strPtr(StatusReviewed), ReviewedBy: strPtr("pak.budi")},
			wantStatus:     StatusReviewed,
			wantReviewer:   "pak.budi",
			wantReviewedAt: now.UTC(),
		},
		{
			name:           "notes only keeps the review stamp",
			sub:            reviewed,
			uu:             UpdateSubmission{Notes: strPtr("menunggu verifikasi")},
			wantStatus:     StatusReviewed,
			wantNotes:      "menunggu verifikasi",
			wantReviewer:   reviewer,
			wantReviewedAt: earlier,
		},
		{
			name:           "same status is a no-op",
			sub:            reviewed,
			uu:             UpdateSubmission{Status: strPtr(StatusReviewed)},
			wantStatus:     StatusReviewed,
			wantNotes:      "berkas lengkap",
			wantReviewer:   reviewer,
			wantReviewedAt: earlier,
		},
		{
			name:    "reviewed cannot go back to pending",
			sub:     reviewed,
			uu:      UpdateSubmission{Status: strPtr(StatusPending)},
			wantErr: true,
		},
		{
			name:    "unknown status",
			sub:     pending,
			uu:      UpdateSubmission{Status: strPtr("archived")},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyUpdate(tt.sub, tt.uu, now)
			if tt.wantErr {
				if _, ok := err.(*core.ValidationError); !ok {
					t.Fatalf("applyUpdate() error = %v, want *core.ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("applyUpdate() unexpected error: %v", err)
			}
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantNotes, got.Notes)
			if assert.NotNil(t, got.ReviewedBy) && assert.NotNil(t, got.ReviewedAt) {
				assert.Equal(t, tt.wantReviewer, *got.ReviewedBy)
				assert.True(t, tt.wantReviewedAt.Equal(*got.ReviewedAt))
			}
			assert.True(t, now.Equal(got.UpdatedAt))
			assert.Equal(t, tt.sub.CreatedAt, got.CreatedAt)
		})
	}
}
