// Package trackingid generates and normalises the citizen-facing grievance
// reference, e.g. GRV-LQ2X9K1M-7F3A.
package trackingid

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	Prefix      = "GRV"
	suffixLen   = 4
	suffixChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var pattern = regexp.MustCompile(`^GRV-[0-9A-Z]+-[0-9A-Z]{4}$`)

// Generator produces tracking IDs from a clock and a random source.
type Generator struct {
	mu   sync.Mutex
	now  func() time.Time
	rand *rand.Rand
}

// NewGenerator seeds a generator from the wall clock.
func NewGenerator() *Generator {
	return NewGeneratorWith(time.Now, rand.NewSource(time.Now().UnixNano()))
}

// NewGeneratorWith builds a deterministic generator.
func NewGeneratorWith(now func() time.Time, src rand.Source) *Generator {
	return &Generator{now: now, rand: rand.New(src)}
}

// Next returns GRV-<base36 unix millis>-<4 random base36 chars>.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	b.WriteString(Prefix)
	b.WriteByte('-')
	b.WriteString(strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36)))
	b.WriteByte('-')
	for i := 0; i < suffixLen; i++ {
		b.WriteByte(suffixChars[g.rand.Intn(len(suffixChars))])
	}
	return b.String()
}

// Normalize trims and upper-cases raw. ok is false when the result is not a
// well-formed tracking ID.
func Normalize(raw string) (id string, ok bool) {
	id = strings.ToUpper(strings.TrimSpace(raw))
	return id, pattern.MatchString(id)
}

// Valid reports whether id is already in canonical form.
func Valid(id string) bool {
	return pattern.MatchString(id)
}
