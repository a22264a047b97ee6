// Copyright 2022 Matrix Origin
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

package metric

import (
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "agrosense"

const LblUnitConst = "unit"

var (
	HeapFreeGauge = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Subsystem: "heap",
		Name:      "free_bytes",
		Help:      "Current free bytes of the shared heap arena.",
	})

	HeapMinEverFreeGauge = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Subsystem: "heap",
		Name:      "min_ever_free_bytes",
		Help:      "Minimum free bytes ever observed on the shared heap arena.",
	})

	UnitMemUsedGauge = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Subsystem: "mem",
		Name:      "used_bytes",
		Help:      "Bytes currently charged against the unit's quota.",
	}, []string{LblUnitConst})

	UnitMemQuotaGauge = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Subsystem: "mem",
		Name:      "quota_bytes",
		Help:      "Fixed byte quota of the unit.",
	}, []string{LblUnitConst})

	UnitStackMinFreeGauge = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stack",
		Name:      "min_free_bytes",
		Help:      "Minimum remaining stack ever observed for the unit.",
	}, []string{LblUnitConst})

	QuotaOpGauge = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Subsystem: "quota",
		Name:      "ops_total",
		Help:      "Process-lifetime allocator operation counters, exported by the heap monitor.",
	}, []string{"op"})
)

var registerOnce sync.Once

// Register installs all node collectors on the default registerer.
func Register() {
	registerOnce.Do(func() {
		prom.MustRegister(
			HeapFreeGauge,
			HeapMinEverFreeGauge,
			UnitMemUsedGauge,
			UnitMemQuotaGauge,
			UnitStackMinFreeGauge,
			QuotaOpGauge,
		)
	})
}
