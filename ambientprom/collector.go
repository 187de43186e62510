// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package ambientprom exports the activity counters of an ambient Store as
// Prometheus metrics.
package ambientprom

import (
	"github.com/petenewcomb/ambient-go"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ambient"

// Collector is a prometheus.Collector that reads [ambient.Store.Stats] on
// every scrape.
type Collector struct {
	store        *ambient.Store
	binds        *prometheus.Desc
	restores     *prometheus.Desc
	lostRestores *prometheus.Desc
	live         *prometheus.Desc
	closed       *prometheus.Desc
}

// NewCollector returns a collector for store. A nil store means the
// process-wide store current at each scrape. constLabels are attached to
// every metric, which allows several stores to be registered side by side.
func NewCollector(store *ambient.Store, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, constLabels)
	}
	return &Collector{
		store:        store,
		binds:        desc("binds_total", "Contexts bound to goroutines."),
		restores:     desc("restores_total", "Guard releases that restored a previous context."),
		lostRestores: desc("lost_restores_total", "Guard releases that found the store closed."),
		live:         desc("live_goroutines", "Goroutines with a non-empty context bound."),
		closed:       desc("store_closed", "1 if the store has been closed, else 0."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.binds
	ch <- c.restores
	ch <- c.lostRestores
	ch <- c.live
	ch <- c.closed
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	store := c.store
	if store == nil {
		store = ambient.Default()
	}
	stats := store.Stats()
	closed := 0.0
	if store.Closed() {
		closed = 1
	}
	ch <- prometheus.MustNewConstMetric(c.binds, prometheus.CounterValue, float64(stats.Binds))
	ch <- prometheus.MustNewConstMetric(c.restores, prometheus.CounterValue, float64(stats.Restores))
	ch <- prometheus.MustNewConstMetric(c.lostRestores, prometheus.CounterValue, float64(stats.LostRestores))
	ch <- prometheus.MustNewConstMetric(c.live, prometheus.GaugeValue, float64(stats.Live))
	ch <- prometheus.MustNewConstMetric(c.closed, prometheus.GaugeValue, closed)
}
