// Copyright 2024 sorl authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes a sparseset.Set's size and growth as
// Prometheus collectors, the way semihalev-sdns's middleware/cache
// package exposes its LRU's size and hit rate: gauges backed by
// GaugeFunc closures over the live set rather than by a second set of
// counters the set itself has to keep in sync.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Source is the subset of sparseset's instrumentation surface the
// collectors read from.
type Source interface {
	Len() int
	DirectorySize() uint32
	Growths() uint64
}

// Collectors holds the Prometheus collectors for one Set. Register them
// with a prometheus.Registerer (or prometheus.DefaultRegisterer) to
// make them scrapeable.
type Collectors struct {
	liveKeys      prometheus.GaugeFunc
	directorySize prometheus.GaugeFunc
	growthsTotal  prometheus.GaugeFunc
}

// New builds the collectors for src. It does not register them.
func New(src Source) *Collectors {
	return &Collectors{
		liveKeys: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sparseset_live_keys",
			Help: "Approximate number of keys currently in the set.",
		}, func() float64 { return float64(src.Len()) }),

		directorySize: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sparseset_directory_size",
			Help: "Current number of slots in the bucket directory.",
		}, func() float64 { return float64(src.DirectorySize()) }),

		growthsTotal: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sparseset_directory_growths_total",
			Help: "Number of times the bucket directory has doubled.",
		}, func() float64 { return float64(src.Growths()) }),
	}
}

// MustRegister registers every collector with reg, panicking if any
// collector is already registered (same failure mode as the top-level
// prometheus.MustRegister the teacher pack's cache/prometheus.go uses).
func (c *Collectors) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(c.liveKeys, c.directorySize, c.growthsTotal)
}
