package boiledrepos

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/submission"
	"github.com/trezcool/spmb/tests"
)

func TestPostgres_submissions(t *testing.T) {
	conf := core.NewTestConfig()
	db := testutil.PrepareDB(t, conf)
	ctx := context.Background()

	schRepo := NewSchoolRepository(db)
	subRepo := NewSubmissionRepository(db)
	sch := testutil.CreateSchool(t, schRepo, "SMA Negeri 1")

	t.Run("registration number is unique under concurrency", func(t *testing.T) {
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			taken int
			ok    int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sub := newTestSubmission(submission.StatusPending)
				sub.ID = uuid.New().String()
				sub.SchoolID = sch.ID
				sub.RegistrationNumber = "SPMB-2025-1111"
				_, err := subRepo.CreateSubmission(ctx, sub)

				mu.Lock()
				defer mu.Unlock()
				switch err {
				case nil:
					ok++
				case submission.ErrRegistrationNumberTaken:
					taken++
				default:
					t.Errorf("CreateSubmission() unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, ok)
		assert.Equal(t, 9, taken)
	})

	t.Run("conditional update", func(t *testing.T) {
		sub := testutil.CreateSubmission(t, subRepo, sch.ID, "SPMB-2025-2222", "Budi", "budi@example.com", "zonasi", submission.StatusPending)

		now := time.Now().UTC()
		reviewer := "admin"
		sub.Status = submission.StatusApproved
		sub.ReviewedAt = &now
		sub.ReviewedBy = &reviewer
		sub.UpdatedAt = now

		got, err := subRepo.UpdateSubmission(ctx, sub, submission.StatusPending)
		require.NoError(t, err)
		assert.Equal(t, submission.StatusApproved, got.Status)
		assert.NotNil(t, got.ReviewedAt)

		// a second writer still expecting "pending" loses
		sub.Status = submission.StatusRejected
		_, err = subRepo.UpdateSubmission(ctx, sub, submission.StatusPending)
		assert.Equal(t, submission.ErrStaleStatus, err)
	})

	t.Run("search & stats", func(t *testing.T) {
		testutil.CreateSubmission(t, subRepo, sch.ID, "SPMB-2025-3333", "Citra Lestari", "citra@example.com", "afirmasi", submission.StatusRejected)

		subs, err := subRepo.QuerySubmissions(ctx, &submission.QueryFilter{Search: "LESTARI"}, nil)
		require.NoError(t, err)
		if assert.Len(t, subs, 1) {
			assert.Equal(t, "SPMB-2025-3333", subs[0].RegistrationNumber)
		}

		stats, err := subRepo.CountSubmissionsByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, stats.Pending+stats.Reviewed+stats.Approved+stats.Rejected, stats.Total)
		assert.Equal(t, 1, stats.Rejected)
	})
}
