package services

import (
	"context"
	"fmt"
	"time"

	"github.com/akinalp/authgate/pkg/metrics"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// sweepTimeout, tek bir temizlik çalışmasının üst süresi.
const sweepTimeout = 30 * time.Second

// Sweeper, süresi dolmuş refresh token kayıtlarını periyodik olarak siler.
// Süresi dolmuş kayıtlar zaten doğrulanmaz; bu sadece tabloyu küçük tutar.
type Sweeper struct {
	auth    AuthService
	cron    *cron.Cron
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

// NewSweeper, schedule (cron ifadesi veya "@every 1h") ile bir Sweeper kurar.
// m nil olabilir.
func NewSweeper(auth AuthService, schedule string, m *metrics.Metrics, logger logrus.FieldLogger) (*Sweeper, error) {
	s := &Sweeper{
		auth:    auth,
		cron:    cron.New(),
		metrics: m,
		log:     logger.WithField("component", "sweeper"),
	}

	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	return s, nil
}

// RunOnce, temizliği hemen çalıştırır.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.auth.SweepExpired(ctx)
	if err != nil {
		s.log.WithError(err).Error("[sweeper] failed to delete expired refresh tokens")
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.SweptTokensTotal.Add(float64(n))
	}
	if n > 0 {
		s.log.WithField("deleted", n).Info("[sweeper] expired refresh tokens deleted")
	}
	return n, nil
}

// Start, zamanlayıcıyı arka planda başlatır.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop, zamanlayıcıyı durdurur ve çalışan iş varsa bitmesini bekler
// (ctx dolana kadar).
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("[sweeper] stop timed out while a sweep was running")
	}
}
