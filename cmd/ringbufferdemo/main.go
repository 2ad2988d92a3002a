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

package main

import (
	"context"
	"fmt"

	"github.com/arcentrix/lfring/pkg/allocator"
	"github.com/arcentrix/lfring/pkg/logger"
	"github.com/arcentrix/lfring/pkg/metrics"
	"github.com/arcentrix/lfring/pkg/ringbuffer"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ringbufferdemo",
	Short: "ringbufferdemo exercises pkg/ringbuffer with concurrent producers",
	Long:  "ringbufferdemo exercises pkg/ringbuffer with concurrent producers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to an optional YAML config file")
	rootCmd.AddCommand(runCmd)
}

// payload is what producers publish: the producer number, a sequential value
// and a UUID, all of which are logged with each put and get. The demo itself
// does not compare drained order against published order.
type payload struct {
	producer int
	value    int
	id       uuid.UUID
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run a fixed-size MPSC exchange and report how many payloads were exchanged",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if err := logger.InitMulti(&logger.MultiConf{
			Default: &logger.Conf{Output: "file", Path: conf.LogPath, Filename: "ringbufferdemo.log", Level: "INFO"},
			Channels: map[string]*logger.Conf{
				"producer": {Output: "file", Path: conf.LogPath, Filename: "producer.log", Level: "INFO"},
				"consumer": {Output: "file", Path: conf.LogPath, Filename: "consumer.log", Level: "INFO"},
			},
		}); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		buf := ringbuffer.New[payload](conf.SizeMagnitude)
		collector, err := metrics.NewCollector(buf)
		if err != nil {
			return fmt.Errorf("init metrics collector: %w", err)
		}
		buf.OnHelp = func() {
			collector.ObserveHelped()
			logger.Channel("producer").Debugw("helped a rival producer advance wcount")
		}

		total := conf.Producers * conf.ValuesPerWriter
		pool := allocator.New[payload](total)

		return runExchange(cmd.Context(), buf, pool, collector, conf)
	},
}

// runExchange starts conf.Producers producer goroutines, each claiming a
// slot from pool and publishing it, and drains every one of them on one
// dedicated consumer goroutine (the single consumer), logging overrun
// retries, feeding collector, and reporting a final summary.
func runExchange(ctx context.Context, buf *ringbuffer.Buffer[payload], pool *allocator.Pool[payload], collector *metrics.Collector, conf *RunConfig) error {
	total := conf.Producers * conf.ValuesPerWriter
	eg, egCtx := errgroup.WithContext(ctx)

	for p := 0; p < conf.Producers; p++ {
		p := p
		eg.Go(func() error {
			producerLog := logger.Channel("producer")
			for v := 0; v < conf.ValuesPerWriter; v++ {
				item, ok := pool.AllocateOne()
				if !ok {
					return fmt.Errorf("allocator pool exhausted after %d/%d claims", p*conf.ValuesPerWriter+v, total)
				}
				item.producer = p
				item.value = v
				item.id = uuid.New()

				for {
					if egCtx.Err() != nil {
						return egCtx.Err()
					}
					idx, err := buf.Put(item)
					collector.ObservePut(err)
					if err == nil {
						producerLog.Debugw("put succeeded", "producer", p, "value", v, "index", idx, "id", item.id)
						break
					}
					producerLog.Debugw("put overran, retrying", "producer", p, "value", v)
				}
			}
			return nil
		})
	}

	drained := make([]payload, 0, total)
	eg.Go(func() error {
		consumerLog := logger.Channel("consumer")
		for len(drained) < total {
			if egCtx.Err() != nil {
				return egCtx.Err()
			}
			v, ok := buf.Get()
			collector.ObserveGet(ok)
			if !ok {
				continue
			}
			drained = append(drained, *v)
			consumerLog.Debugw("get succeeded", "producer", v.producer, "value", v.value, "id", v.id)
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return err
	}

	fmt.Printf("exchanged %d payloads across %d producers (buffer capacity %d)\n", len(drained), conf.Producers, buf.Cap())
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
	}
}
