package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"asset-catalog/internal/storage"
)

type ReferenceChecker interface {
	ReferencedFiles(ctx context.Context, names []string) (map[string]struct{}, error)
}

type SweepReport struct {
	Scanned int `json:"scanned"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

// OrphanSweeper removes stored files that no asset references. Files younger
// than the grace period are skipped so in-flight uploads survive.
type OrphanSweeper struct {
	store    *storage.Store
	refs     ReferenceChecker
	grace    time.Duration
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrphanSweeper(store *storage.Store, refs ReferenceChecker, grace, interval time.Duration, log zerolog.Logger) *OrphanSweeper {
	return &OrphanSweeper{
		store:    store,
		refs:     refs,
		grace:    grace,
		interval: interval,
		log:      log.With().Str("worker", "orphan_sweeper").Logger(),
		now:      time.Now,
	}
}

// SweepOnce runs a single pass with the given grace period.
func (s *OrphanSweeper) SweepOnce(ctx context.Context, grace time.Duration) (SweepReport, error) {
	var report SweepReport

	objects, err := s.store.List(ctx)
	if err != nil {
		return report, err
	}
	report.Scanned = len(objects)

	cutoff := s.now().Add(-grace)
	candidates := make([]string, 0, len(objects))
	for _, obj := range objects {
		if obj.ModTime.After(cutoff) {
			continue
		}
		candidates = append(candidates, obj.Name)
	}
	if len(candidates) == 0 {
		return report, nil
	}

	referenced, err := s.refs.ReferencedFiles(ctx, candidates)
	if err != nil {
		return report, err
	}

	for _, name := range candidates {
		if _, ok := referenced[name]; ok {
			continue
		}
		if err := s.store.Remove(ctx, name); err != nil {
			s.log.Warn().Err(err).Str("file", name).Msg("remove orphan failed")
			report.Failed++
			continue
		}
		report.Removed++
	}
	return report, nil
}

// Start runs a pass every interval until Close. A non-positive interval
// disables the sweeper.
func (s *OrphanSweeper) Start(ctx context.Context) {
	if s.cancel != nil || s.interval <= 0 {
		return
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				report, err := s.SweepOnce(sweepCtx, s.grace)
				if err != nil {
					s.log.Error().Err(err).Msg("orphan sweep failed")
					continue
				}
				s.log.Info().
					Int("scanned", report.Scanned).
					Int("removed", report.Removed).
					Int("failed", report.Failed).
					Msg("orphan sweep finished")
			}
		}
	}()
}

func (s *OrphanSweeper) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
