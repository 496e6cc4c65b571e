// Package receipt はレシート番号 PREFIX-YYYYMMDD-XXXXXX を発行する。
// 一意性の確認（既存番号との照合）は呼び出し側が行う。
package receipt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultPrefix = "DRIP"
	suffixLength  = 6
	alphabet      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	dateLayout    = "20060102"
)

var (
	ErrInvalidPrefix = errors.New("receipt prefix must be 1-10 uppercase letters or digits")

	prefixPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)
	numberPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}-\d{8}-[0-9A-Z]{6}$`)
)

type Clock interface {
	Now() time.Time
}

type Generator struct {
	prefix string
	clock  Clock
	rnd    io.Reader
	loc    *time.Location
}

type Option func(*Generator)

// WithRandom は乱数源を差し替える（テスト用）。
func WithRandom(r io.Reader) Option {
	return func(g *Generator) { g.rnd = r }
}

// WithLocation は日付部分を計算するタイムゾーン。既定はUTC
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) { g.loc = loc }
}

func NewGenerator(prefix string, clock Clock, opts ...Option) (*Generator, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !prefixPattern.MatchString(prefix) {
		return nil, ErrInvalidPrefix
	}

	g := &Generator{
		prefix: prefix,
		clock:  clock,
		rnd:    rand.Reader,
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Next は候補番号を1つ返す。
func (g *Generator) Next() (string, error) {
	var sb strings.Builder
	sb.Grow(len(g.prefix) + 1 + len(dateLayout) + 1 + suffixLength)

	sb.WriteString(g.prefix)
	sb.WriteByte('-')
	sb.WriteString(g.clock.Now().In(g.loc).Format(dateLayout))
	sb.WriteByte('-')

	base := big.NewInt(int64(len(alphabet)))
	for i := 0; i < suffixLength; i++ {
		n, err := rand.Int(g.rnd, base)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String(), nil
}

// Valid は書式だけを確認する。
func Valid(number string) bool {
	return numberPattern.MatchString(number)
}
