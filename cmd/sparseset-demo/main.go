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

// Command sparseset-demo runs the scripted walkthrough of
// original_source/hash.c's main(), and optionally a concurrent
// workload, against a sparseset.Set.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/semihalev/zlog/v2"
	"golang.org/x/sync/errgroup"

	"github.com/sorl/sparseset"
	"github.com/sorl/sparseset/metrics"
)

var (
	initialSize uint32
	workers     int
	keysPer     int
	metricsAddr string
)

func init() {
	flag.Func("initial-size", "initial directory size, power of two >= 2 (default 16)", func(v string) error {
		var n uint32
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
			return err
		}
		initialSize = n
		return nil
	})
	flag.IntVar(&workers, "workers", 0, "if > 0, run a concurrent workload with this many goroutines after the scripted scenario")
	flag.IntVar(&keysPer, "keys", 1000, "keys each concurrent worker inserts and removes")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090) until the demo exits")
	flag.Usage = usage
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "OPTIONS:")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	opts := []sparseset.Option{}
	if initialSize != 0 {
		opts = append(opts, sparseset.WithInitialSize(initialSize))
	}
	s := sparseset.New(opts...)

	if metricsAddr != "" {
		if src, ok := s.(metrics.Source); ok {
			collectors := metrics.New(src)
			collectors.MustRegister(prometheus.DefaultRegisterer)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			go func() {
				zlog.Info("serving metrics", "addr", metricsAddr)
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					zlog.Error("metrics server stopped", "error", err.Error())
				}
			}()
		}
	}

	runScriptedScenario(s)

	if workers > 0 {
		if err := runConcurrentWorkload(s, workers, keysPer); err != nil {
			zlog.Error("concurrent workload failed", "error", err.Error())
			s.Close()
			os.Exit(1)
		}
	}

	s.Close()
}

// runScriptedScenario reproduces original_source/hash.c's main(): the
// exact find/insert/remove sequence spec.md §8 names as its literal
// end-to-end scenarios.
func runScriptedScenario(s sparseset.Set) {
	zlog.Info("find", "0", s.Contains(0), "10", s.Contains(10))

	s.Insert(0)
	s.Insert(26)
	zlog.Info("find", "0", s.Contains(0), "10", s.Contains(10))

	s.Remove(0)
	zlog.Info("find", "0", s.Contains(0), "10", s.Contains(10))

	zlog.Info("insert(5) three times",
		"1st", s.Insert(5),
		"2nd", s.Insert(5),
		"3rd", s.Insert(5),
		"len", s.Len(),
	)

	for i := uint32(0); i < 50; i++ {
		s.Insert(i)
	}
	zlog.Info("inserted 0..49", "len", s.Len())
	if src, ok := s.(metrics.Source); ok {
		zlog.Info("directory grew", "size", src.DirectorySize(), "growths", src.Growths())
	}
}

// runConcurrentWorkload exercises spec.md §8's concurrency tests live:
// each worker inserts, checks, then removes its own disjoint key range.
func runConcurrentWorkload(s sparseset.Set, workers, keysPer int) error {
	var g errgroup.Group

	for w := 0; w < workers; w++ {
		base := uint32(w * keysPer)
		g.Go(func() error {
			for i := uint32(0); i < uint32(keysPer); i++ {
				s.Insert(base + i)
			}
			for i := uint32(0); i < uint32(keysPer); i++ {
				if !s.Contains(base + i) {
					return fmt.Errorf("key %d missing after insert", base+i)
				}
			}
			for i := uint32(0); i < uint32(keysPer); i++ {
				s.Remove(base + i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	zlog.Info("concurrent workload complete", "workers", workers, "keysPerWorker", keysPer, "finalLen", s.Len())
	return nil
}
