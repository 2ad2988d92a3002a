// Copyright 2025 Arcentra Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
)

// ProviderSet is a Wire provider set for metrics.
var ProviderSet = wire.NewSet(
	NewCollector,
)

// Sizer reports the current occupancy of whatever it is sampling.
// *ringbuffer.Buffer[T] satisfies this for any T without pkg/metrics ever
// needing to import pkg/ringbuffer or take on a generic type parameter of
// its own.
type Sizer interface {
	Size() int
}

// Collector holds the prometheus series that describe a ring buffer's
// runtime behavior: one gauge sampled on demand from a live Sizer, and
// counters the owning code increments directly as events occur.
type Collector struct {
	registry *prometheus.Registry
	target   Sizer

	size          prometheus.GaugeFunc
	putsTotal     prometheus.Counter
	overrunsTotal prometheus.Counter
	helpedTotal   prometheus.Counter
	getsTotal     *prometheus.CounterVec
}

// NewCollector builds a Collector sampling target's occupancy and registers
// every series with a fresh registry.
func NewCollector(target Sizer) (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		target:   target,
		putsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringbuffer_puts_total",
			Help: "Total number of successful Put calls.",
		}),
		overrunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringbuffer_overruns_total",
			Help: "Total number of Put calls that observed a full buffer.",
		}),
		helpedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringbuffer_helped_total",
			Help: "Total number of times a producer advanced wcount on behalf of another producer's win.",
		}),
		getsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ringbuffer_gets_total",
			Help: "Total number of Get calls by result.",
		}, []string{"result"}),
	}
	c.size = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ringbuffer_size",
		Help: "Current lower-bound occupancy of the ring buffer.",
	}, func() float64 { return float64(target.Size()) })

	for _, collector := range []prometheus.Collector{
		c.size, c.putsTotal, c.overrunsTotal, c.helpedTotal, c.getsTotal,
	} {
		if err := c.registry.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Registry returns the prometheus registry every series was registered
// against, for callers that want to expose it over HTTP themselves.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObservePut records the outcome of one Put call.
func (c *Collector) ObservePut(err error) {
	if err != nil {
		c.overrunsTotal.Inc()
		return
	}
	c.putsTotal.Inc()
}

// ObserveHelped records one successful helping advance of wcount; the
// caller only calls this when it helped on behalf of a rival's publish
// rather than its own.
func (c *Collector) ObserveHelped() {
	c.helpedTotal.Inc()
}

// ObserveGet records the outcome of one Get call.
func (c *Collector) ObserveGet(ok bool) {
	if ok {
		c.getsTotal.WithLabelValues("hit").Inc()
		return
	}
	c.getsTotal.WithLabelValues("empty").Inc()
}
