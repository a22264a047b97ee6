// Copyright 2021 - 2022 Matrix Origin
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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matrixorigin/agrosense/pkg/common/heap"
	"github.com/matrixorigin/agrosense/pkg/common/quota"
	"github.com/matrixorigin/agrosense/pkg/common/report"
	"github.com/matrixorigin/agrosense/pkg/common/stopper"
	"github.com/matrixorigin/agrosense/pkg/config"
	"github.com/matrixorigin/agrosense/pkg/logutil"
	"github.com/matrixorigin/agrosense/pkg/units"
	"github.com/matrixorigin/agrosense/pkg/util/metric"
	"go.uber.org/zap"
)

func main() {
	// the node has no flag surface; an optional config file is the
	// only deployment knob
	path := ""
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		logutil.Fatal("load configuration failed", zap.Error(err))
	}
	logutil.SetupLogger(&cfg.Log)
	logutil.Info("node starting", zap.String("node", cfg.NodeName))

	arena, err := heap.NewFixedHeap(cfg.HeapCapacity)
	if err != nil {
		logutil.Fatal("create heap failed", zap.Error(err))
	}
	allocator := quota.NewAllocator(arena)
	registry := units.NewRegistry(allocator)

	sink, err := report.NewLogSink(cfg.ReportWorkers)
	if err != nil {
		logutil.Fatal("create report sink failed", zap.Error(err))
	}

	sensor := registry.Register("sensor", cfg.Sensor.Quota, cfg.Sensor.StackBudget)
	comm := registry.Register("comm", cfg.Comm.Quota, cfg.Comm.StackBudget)

	seed := time.Now().UnixNano()
	s := stopper.NewStopper(cfg.NodeName)
	mustRun(s, "sensor",
		units.NewWorkload(sensor, allocator, cfg.Sensor.WorkloadConfig(), seed).Run)
	mustRun(s, "comm",
		units.NewWorkload(comm, allocator, cfg.Comm.WorkloadConfig(), seed+1).Run)
	mustRun(s, "heap-monitor",
		units.NewHeapMonitor(arena, allocator.Stats(), cfg.HeapMonitorInterval.Duration, sink).Run)
	mustRun(s, "stack-monitor",
		units.NewStackMonitor(registry, cfg.StackMonitorInterval.Duration, sink).Run)
	if err := metric.StartMetricsServer(s, cfg.MetricsAddress); err != nil {
		logutil.Fatal("start metrics server failed", zap.Error(err))
	}

	waitSignal()
	logutil.Info("node shutting down")
	s.Stop()
	sink.Close()

	stats := allocator.Stats()
	logutil.Info("final allocator stats",
		zap.Int64("alloc", stats.NumAlloc.Load()),
		zap.Int64("free", stats.NumFree.Load()),
		zap.Int64("quota_reject", stats.NumQuotaReject.Load()),
		zap.Int64("oom", stats.NumOOM.Load()),
		zap.Int64("dropped_reports", sink.Dropped()))
	if err := arena.Close(); err != nil {
		logutil.Error("close heap failed", zap.Error(err))
	}
}

func mustRun(s *stopper.Stopper, name string, task func(ctx context.Context)) {
	if err := s.RunNamedTask(name, task); err != nil {
		logutil.Fatal("start task failed",
			zap.String("task", name), zap.Error(err))
	}
}

func waitSignal() {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGTERM, syscall.SIGINT)
	<-sigchan
}
