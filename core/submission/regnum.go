package submission

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/spmb/core"
)

const (
	RegistrationPrefix = "SPMB"
	regNumSpace        = 10000 // NNNN in [0000, 9999]
)

var regNumRegex = regexp.MustCompile(`^` + RegistrationPrefix + `-\d{4}-\d{4}$`)

// Source draws the numeric part of registration numbers.
type Source interface {
	IntN(n int) int
}

// Generator produces candidate registration numbers: `SPMB-{YYYY}-{NNNN}`.
// It does not guarantee uniqueness; the store does.
type Generator struct {
	loc *time.Location
	now func() time.Time

	mu  sync.Mutex
	rnd Source
}

func NewGenerator(timezone string) (*Generator, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "loading timezone %q", timezone)
	}
	seed := uint64(time.Now().UnixNano())
	return &Generator{
		loc: loc,
		now: time.Now,
		rnd: rand.New(rand.NewPCG(seed, seed>>1|1)),
	}, nil
}

// NewGeneratorWithSource returns a Generator drawing numbers from src.
// It is not safe to share src with other goroutines.
func NewGeneratorWithSource(loc *time.Location, src Source, now func() time.Time) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{loc: loc, now: now, rnd: src}
}

// NewConfigGenerator returns the Generator described by the intake configuration.
func NewConfigGenerator(conf *core.Config) (*Generator, error) {
	return NewGenerator(conf.Intake.Timezone)
}

// Year returns the current intake year.
func (g *Generator) Year() int {
	return g.now().In(g.loc).Year()
}

func (g *Generator) Generate(year int) string {
	g.mu.Lock()
	n := g.rnd.IntN(regNumSpace)
	g.mu.Unlock()
	return fmt.Sprintf("%s-%04d-%04d", RegistrationPrefix, year, n)
}

// IsRegistrationNumber reports whether s has the registration number wire format.
func IsRegistrationNumber(s string) bool {
	return regNumRegex.MatchString(s)
}
