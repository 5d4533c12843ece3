/*
 * metrics.go, part of gopenff.
 *
 * Copyright 2026 The gopenff authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package foreign

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

//Metrics are the prometheus collectors of an Interpreter.
type Metrics struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

//NewMetrics creates the collectors and registers them in reg, if reg is not nil.
//Collectors already registered in reg are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gopenff",
			Subsystem: "foreign",
			Name:      "calls_total",
			Help:      "Operations sent to the foreign runtime, by operation, name and outcome.",
		}, []string{"op", "name", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gopenff",
			Subsystem: "foreign",
			Name:      "call_seconds",
			Help:      "Time spent in the foreign runtime, lock included.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 12),
		}, []string{"op"}),
	}
	if reg == nil {
		return m
	}
	if err := reg.Register(m.Calls); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			m.Calls = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	if err := reg.Register(m.Duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			m.Duration = are.ExistingCollector.(*prometheus.HistogramVec)
		}
	}
	return m
}

func (m *Metrics) observe(op, name, outcome string, elapsed time.Duration) {
	m.Calls.WithLabelValues(op, name, outcome).Inc()
	m.Duration.WithLabelValues(op).Observe(elapsed.Seconds())
}
