package universe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/pkg/logger"
)

// Config holds the candidate filter criteria.
type Config struct {
	MinPrice     float64 // exclusive lower price bound, yuan
	MaxPrice     float64 // exclusive upper price bound, yuan
	MinChangePct float64 // exclusive lower intraday change bound, percent
	MaxChangePct float64 // exclusive upper intraday change bound, percent
}

// Universe is one day's filtered candidate set.
type Universe struct {
	Date        time.Time
	Instruments []contracts.Instrument
	Excluded    map[string]string // code -> reason
}

// Builder filters a provider's raw hot-rank candidates down to the
// instruments worth scanning: mainboard listings, not ST-flagged, inside the
// price and intraday-change bands.
type Builder struct {
	provider contracts.UniverseProvider
	config   Config
	logger   *logger.Logger
}

// NewBuilder creates a universe builder over the given candidate provider.
func NewBuilder(provider contracts.UniverseProvider, config Config, log *logger.Logger) *Builder {
	return &Builder{
		provider: provider,
		config:   config,
		logger:   log,
	}
}

// Build fetches today's candidates and applies the exclusion rules. Every
// excluded code is recorded with its first matching reason.
func (b *Builder) Build(ctx context.Context) (*Universe, error) {
	candidates, err := b.provider.FetchCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	u := &Universe{
		Date:     time.Now(),
		Excluded: make(map[string]string),
	}

	for _, c := range candidates {
		reason := b.checkExclusion(c)
		if reason != "" {
			u.Excluded[c.Code] = reason
			continue
		}
		u.Instruments = append(u.Instruments, contracts.Instrument{Code: c.Code, Name: c.Name})
	}

	b.logger.WithFields(map[string]interface{}{
		"candidates": len(candidates),
		"selected":   len(u.Instruments),
		"excluded":   len(u.Excluded),
	}).Info("Built scan universe")

	return u, nil
}

// checkExclusion returns the first matching exclusion reason, or "" when the
// candidate qualifies. Checks run in priority order.
func (b *Builder) checkExclusion(c contracts.Candidate) string {
	// 1. Mainboard only: Shanghai 60x or Shenzhen 00x listings.
	if !isMainboard(c.Code) {
		return boardReason(c.Code)
	}

	// 2. ST-flagged names trade under special-treatment restrictions.
	if strings.Contains(strings.ToUpper(c.Name), "ST") {
		return "ST designation"
	}

	// 3. Price band.
	if c.Price <= b.config.MinPrice {
		return fmt.Sprintf("price too low %.2f", c.Price)
	}
	if c.Price >= b.config.MaxPrice {
		return fmt.Sprintf("price too high %.2f", c.Price)
	}

	// 4. Intraday change band.
	if c.ChangePct <= b.config.MinChangePct {
		return fmt.Sprintf("fallen too far %.2f%%", c.ChangePct)
	}
	if c.ChangePct >= b.config.MaxChangePct {
		return fmt.Sprintf("risen too far %.2f%%", c.ChangePct)
	}

	return ""
}

func isMainboard(code string) bool {
	upper := strings.ToUpper(code)
	return strings.HasPrefix(upper, "SH60") || strings.HasPrefix(upper, "SZ00")
}

// boardReason distinguishes growth boards from the rest for the exclusion
// log.
func boardReason(code string) string {
	upper := strings.ToUpper(code)
	switch {
	case strings.HasPrefix(upper, "SH68"), strings.HasPrefix(upper, "SZ30"):
		return "STAR/ChiNext board"
	case strings.HasPrefix(upper, "BJ"), strings.HasPrefix(upper, "SZ20"):
		return "Beijing exchange/NEEQ"
	default:
		return "not mainboard"
	}
}
