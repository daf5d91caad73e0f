// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/offergrid/offergrid/app/dto"
	businessflow "github.com/offergrid/offergrid/business_flow"
	"github.com/offergrid/offergrid/config"
)

var (
	// Scheduler seed runs partitioned by outcome
	seedRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seed_runs_total",
			Help: "Total number of scheduled seed runs",
		},
		[]string{"status"},
	)

	// Rows written by scheduled seed runs
	seededOffersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seeded_offers_total",
			Help: "Total number of offers written by scheduled seed runs",
		},
	)

	seededNotificationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seeded_notifications_total",
			Help: "Total number of notifications written by scheduled seed runs",
		},
	)
)

// SeedScheduler periodically regenerates the demo dataset for the configured city
type SeedScheduler struct {
	flow     businessflow.SeedFlow
	cfg      config.SeederConfig
	logCfg   config.LoggingConfig
	logger   *log.Logger
	interval time.Duration
}

func NewSeedScheduler(flow businessflow.SeedFlow, cfg config.SeederConfig, logCfg config.LoggingConfig) *SeedScheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	s := &SeedScheduler{
		flow:     flow,
		cfg:      cfg,
		logCfg:   logCfg,
		interval: interval,
	}
	s.initSchedulerLogger()

	return s
}

// initSchedulerLogger configures a logger that writes to stdout and, when a file
// path is configured, a size-rotated log file
func (s *SeedScheduler) initSchedulerLogger() {
	var w io.Writer = os.Stdout
	if s.logCfg.FilePath != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   s.logCfg.FilePath,
			MaxSize:    s.logCfg.MaxSize,
			MaxBackups: s.logCfg.MaxBackups,
			MaxAge:     s.logCfg.MaxAge,
			Compress:   s.logCfg.Compress,
		})
	}
	// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
	s.logger = log.New(w, "seeder ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *SeedScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		if s.cfg.RunOnStart {
			s.runOnce(ctx)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *SeedScheduler) runOnce(ctx context.Context) {
	// A full reseed rewrites tens of thousands of rows; cap it well below the interval
	runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	req := &dto.ReseedRequest{
		CityName:              s.cfg.DefaultCity,
		OfferCount:            s.cfg.OffersPerRun,
		NotificationsPerOffer: s.cfg.NotificationsPerOffer,
	}
	metadata := businessflow.NewClientMetadata("127.0.0.1", "offergrid-scheduler")

	started := time.Now()
	resp, err := s.flow.ReseedCity(runCtx, req, metadata)
	if err != nil {
		if businessflow.IsSeedAlreadyActive(err) {
			s.logger.Printf("seeder: skipped run, another reseed holds the lock")
			seedRunsTotal.WithLabelValues("skipped").Inc()
			return
		}
		s.logger.Printf("seeder: reseed of %s failed: %v", s.cfg.DefaultCity, err)
		seedRunsTotal.WithLabelValues("failed").Inc()
		return
	}

	seedRunsTotal.WithLabelValues("succeeded").Inc()
	seededOffersTotal.Add(float64(resp.Run.OfferCount))
	seededNotificationsTotal.Add(float64(resp.Run.NotificationCount))
	s.logger.Printf("seeder: reseeded %s offers=%d notifications=%d flushes=%d took=%s",
		s.cfg.DefaultCity,
		resp.Run.OfferCount,
		resp.Run.NotificationCount,
		resp.Run.FlushCount,
		time.Since(started).Round(time.Millisecond),
	)
}
