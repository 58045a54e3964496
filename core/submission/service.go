package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/school"
)

var (
	// errors
	ErrNotFound                = core.NewNotFoundError("submission")
	ErrRegistrationNumberTaken = errors.New("registration number already taken")
	ErrStaleStatus             = errors.New("submission status was changed by another reviewer")
	ErrRetriesExhausted        = errors.New("no free registration number found")
)

type (
	Repository interface {
		// RegistrationNumberExists is a cheap pre-check; CreateSubmission is the authoritative guard.
		RegistrationNumberExists(ctx context.Context, number string, exec ...core.DBExecutor) (bool, error)
		// CreateSubmission inserts sub in a single conditional statement.
		// It returns ErrRegistrationNumberTaken when sub.RegistrationNumber is already in use.
		CreateSubmission(ctx context.Context, sub Submission, exec ...core.DBExecutor) (Submission, error)
		GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (Submission, error)
		GetSubmissionByNumber(ctx context.Context, number string, exec ...core.DBExecutor) (Submission, error)
		// QuerySubmissions applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of the full name, email,
		// registration number or parent phone.
		QuerySubmissions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Submission, error)
		CountSubmissionsByStatus(ctx context.Context, exec ...core.DBExecutor) (Stats, error)
		// UpdateSubmission saves the review fields of sub if its stored status is still expectedStatus.
		// It returns ErrStaleStatus otherwise.
		UpdateSubmission(ctx context.Context, sub Submission, expectedStatus string, exec ...core.DBExecutor) (Submission, error)
		DeleteSubmission(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		// Submit registers a new pending submission under a freshly allocated registration number.
		// raw is stored verbatim as the submission's raw data.
		Submit(ctx context.Context, ns NewSubmission, raw []byte) (Receipt, error)
		Get(ctx context.Context, id string) (Submission, error)
		GetByNumber(ctx context.Context, number string) (Submission, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Submission, error)
		Stats(ctx context.Context) (Stats, error)
		// Update applies the review workflow to the submission identified by id.
		Update(ctx context.Context, id string, uu UpdateSubmission) (Submission, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		conf      *core.Config
		repo      Repository
		schoolSvc school.Service
		gen       *Generator
		mailSvc   core.EmailService
		logger    core.Logger
		now       func() time.Time
	}
)

var _ Service = (*service)(nil)

func NewService(
	conf *core.Config,
	repo Repository,
	schoolSvc school.Service,
	gen *Generator,
	mailSvc core.EmailService,
	logger core.Logger,
) Service {
	return &service{
		conf:      conf,
		repo:      repo,
		schoolSvc: schoolSvc,
		gen:       gen,
		mailSvc:   mailSvc,
		logger:    logger,
		now:       time.Now,
	}
}

func (svc *service) maxAttempts() int {
	if svc.conf.Intake.MaxAttempts < 1 {
		return 1
	}
	return svc.conf.Intake.MaxAttempts
}

func (svc *service) Submit(ctx context.Context, ns NewSubmission, raw []byte) (Receipt, error) {
	sch, err := svc.schoolSvc.Resolve(ctx, ns.SchoolID)
	if err != nil {
		return Receipt{}, errors.Wrap(err, "resolving school")
	}

	if len(raw) == 0 || !json.Valid(raw) {
		if raw, err = json.Marshal(ns); err != nil {
			return Receipt{}, errors.Wrap(err, "marshalling raw data")
		}
	}
	files := ns.UploadedFiles
	if files == nil {
		files = []UploadedFile{}
	}

	now := svc.now().UTC()
	sub := Submission{
		SchoolID:      sch.ID,
		Applicant:     ns.Applicant,
		UploadedFiles: files,
		RawData:       raw,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	year := svc.gen.Year()
	attempts := svc.maxAttempts()
	for i := 0; i < attempts; i++ {
		if err = ctx.Err(); err != nil {
			return Receipt{}, errors.Wrap(err, "allocating registration number")
		}

		candidate := svc.gen.Generate(year)
		exists, err := svc.repo.RegistrationNumberExists(ctx, candidate)
		if err != nil {
			return Receipt{}, errors.Wrap(err, "checking registration number")
		}
		if exists {
			regNumCollisions.Inc()
			continue
		}

		sub.ID = uuid.New().String()
		sub.RegistrationNumber = candidate
		created, err := svc.repo.CreateSubmission(ctx, sub)
		if err != nil {
			if errors.Cause(err) == ErrRegistrationNumberTaken { // lost the race to a concurrent submission
				regNumCollisions.Inc()
				continue
			}
			return Receipt{}, errors.Wrap(err, "creating submission")
		}

		recordSubmission(created.Track)
		svc.sendReceivedMail(created)
		return Receipt{ID: created.ID, RegistrationNumber: created.RegistrationNumber}, nil
	}

	retriesExhausted.Inc()
	return Receipt{}, errors.Wrap(ErrRetriesExhausted, fmt.Sprintf("allocating registration number after %d attempts", attempts))
}

func (svc *service) Get(ctx context.Context, id string) (Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Submission{}, ErrNotFound
	}
	sub, err := svc.repo.GetSubmission(ctx, id)
	return sub, errors.Wrap(err, "getting submission")
}

func (svc *service) GetByNumber(ctx context.Context, number string) (Submission, error) {
	if !IsRegistrationNumber(number) {
		return Submission{}, ErrNotFound
	}
	sub, err := svc.repo.GetSubmissionByNumber(ctx, number)
	return sub, errors.Wrap(err, "getting submission by registration number")
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Submission, error) {
	subs, err := svc.repo.QuerySubmissions(ctx, filter, CleanOrdering(ordering))
	return subs, errors.Wrap(err, "querying submissions")
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	stats, err := svc.repo.CountSubmissionsByStatus(ctx)
	return stats, errors.Wrap(err, "counting submissions")
}

func (svc *service) Update(ctx context.Context, id string, uu UpdateSubmission) (Submission, error) {
	for i := 0; i < svc.maxAttempts(); i++ {
		sub, err := svc.Get(ctx, id)
		if err != nil {
			return Submission{}, err
		}

		updated, err := applyUpdate(sub, uu, svc.now())
		if err != nil {
			return Submission{}, err
		}

		saved, err := svc.repo.UpdateSubmission(ctx, updated, sub.Status)
		if err != nil {
			if errors.Cause(err) == ErrStaleStatus {
				svc.logger.Debug(fmt.Sprintf("submission %s changed concurrently, retrying", id))
				continue
			}
			return Submission{}, errors.Wrap(err, "updating submission")
		}

		if saved.Status != sub.Status {
			reviewsTotal.With(prometheus.Labels{"status": saved.Status}).Inc()
			svc.sendReviewedMail(saved)
		}
		return saved, nil
	}
	return Submission{}, errors.Wrap(ErrStaleStatus, "updating submission")
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return errors.Wrap(svc.repo.DeleteSubmission(ctx, id), "deleting submission")
}
