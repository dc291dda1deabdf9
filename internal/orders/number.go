package orders

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

// numberAlphabet omits 0, O, 1 and I. Its length divides 256 so byte
// sampling is unbiased.
const numberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const numberSuffixLen = 6

// NumberGenerator produces order numbers of the form LB-YYYYMMDD-XXXXXX.
type NumberGenerator struct {
	now    func() time.Time
	random io.Reader
}

// NewNumberGenerator returns a generator backed by the given clock and
// entropy source. Nil arguments select time.Now and crypto/rand.
func NewNumberGenerator(now func() time.Time, random io.Reader) *NumberGenerator {
	if now == nil {
		now = time.Now
	}
	if random == nil {
		random = rand.Reader
	}
	return &NumberGenerator{now: now, random: random}
}

// Next returns a new order number.
func (g *NumberGenerator) Next() (string, error) {
	buf := make([]byte, numberSuffixLen)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("orders: read entropy: %w", err)
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return "LB-" + g.now().UTC().Format("20060102") + "-" + string(buf), nil
}
