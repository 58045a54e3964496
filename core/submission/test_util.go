package submission

import (
	"sync"
	"time"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/school"
)

// NewServiceMock returns a Service with a controllable clock.
func NewServiceMock(
	conf *core.Config,
	repo Repository,
	schoolSvc school.Service,
	gen *Generator,
	mailSvc core.EmailService,
	logger core.Logger,
	now func() time.Time,
) Service {
	svc := NewService(conf, repo, schoolSvc, gen, mailSvc, logger).(*service)
	if now != nil {
		svc.now = now
	}
	return svc
}

// SequenceSource replays nums in a loop.
type SequenceSource struct {
	mu   sync.Mutex
	nums []int
	pos  int
}

var _ Source = (*SequenceSource)(nil)

func NewSequenceSource(nums ...int) *SequenceSource {
	return &SequenceSource{nums: nums}
}

func (s *SequenceSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.nums) == 0 {
		return 0
	}
	v := s.nums[s.pos%len(s.nums)]
	s.pos++
	return v % n
}
