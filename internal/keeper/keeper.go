// Package keeper keeps the passkey registry alive by extending its lease
// periodically.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// LeaseExtender extends the lease of the registry data.
type LeaseExtender interface {
	ExtendLease(ctx context.Context) error
}

// Prm groups Keeper parameters.
type Prm struct {
	// Required.
	Extender LeaseExtender
	// Period between extensions, required.
	Interval time.Duration
	// Timeout of the single extension, required.
	Timeout time.Duration

	// Optional.
	Logger *zap.Logger
	// Optional, metrics are not exported if nil.
	Registerer prometheus.Registerer
}

// Keeper calls LeaseExtender periodically. Failures are logged and retried on
// the next tick.
type Keeper struct {
	ext      LeaseExtender
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger

	runs        *prometheus.CounterVec
	lastSuccess prometheus.Gauge
}

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// New constructs Keeper.
func New(prm Prm) (*Keeper, error) {
	switch {
	case prm.Extender == nil:
		return nil, errors.New("missing lease extender")
	case prm.Interval <= 0:
		return nil, fmt.Errorf("non-positive interval %s", prm.Interval)
	case prm.Timeout <= 0:
		return nil, fmt.Errorf("non-positive timeout %s", prm.Timeout)
	}

	k := &Keeper{
		ext:      prm.Extender,
		interval: prm.Interval,
		timeout:  prm.Timeout,
		log:      prm.Logger,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passkey",
			Subsystem: "keeper",
			Name:      "extensions_total",
			Help:      "Number of lease extension attempts by result",
		}, []string{"result"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "passkey",
			Subsystem: "keeper",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful lease extension",
		}),
	}

	if k.log == nil {
		k.log = zap.NewNop()
	}

	if prm.Registerer != nil {
		for _, c := range []prometheus.Collector{k.runs, k.lastSuccess} {
			if err := prm.Registerer.Register(c); err != nil {
				return nil, fmt.Errorf("register metrics: %w", err)
			}
		}
	}

	return k, nil
}

// Run extends the lease immediately and then every interval until ctx is done.
// Returns ctx.Err().
func (k *Keeper) Run(ctx context.Context) error {
	t := time.NewTicker(k.interval)
	defer t.Stop()

	k.log.Info("lease keeper started", zap.Duration("interval", k.interval))

	for {
		if err := ctx.Err(); err != nil {
			k.log.Info("lease keeper stopped", zap.Error(err))
			return err
		}

		k.extend(ctx)

		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
}

func (k *Keeper) extend(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	if err := k.ext.ExtendLease(ctx); err != nil {
		k.runs.WithLabelValues(resultFailure).Inc()
		k.log.Error("failed to extend lease", zap.Error(err))
		return
	}

	k.runs.WithLabelValues(resultSuccess).Inc()
	k.lastSuccess.SetToCurrentTime()
	k.log.Debug("lease extended")
}
