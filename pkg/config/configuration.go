// Copyright 2021 Matrix Origin
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

package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/matrixorigin/agrosense/pkg/common/moerr"
	"github.com/matrixorigin/agrosense/pkg/logutil"
	"github.com/matrixorigin/agrosense/pkg/units"
)

const (
	KB = 1024

	defaultNodeName             = "agrosense-node"
	defaultHeapCapacity         = 256 * KB
	defaultReportWorkers        = 2
	defaultHeapMonitorInterval  = 3 * time.Second
	defaultStackMonitorInterval = 5 * time.Second
)

// Duration wraps time.Duration for toml text values like "800ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// UnitConfig holds one workload unit's fixed constants.  Defaults are
// the original firmware values.
type UnitConfig struct {
	// quota is the fixed upper bound on bytes the unit may hold
	// allocated at once. default: 2048
	Quota uint64 `toml:"quota"`

	// stack budget the unit's task is created with. default: 2048
	StackBudget uint64 `toml:"stack-budget"`

	// allocation size range, [min-alloc, max-alloc)
	MinAlloc int `toml:"min-alloc"`
	MaxAlloc int `toml:"max-alloc"`

	HoldInterval  Duration `toml:"hold-interval"`
	SleepInterval Duration `toml:"sleep-interval"`

	// stress probe recursion depth range, inclusive
	MinStressDepth int `toml:"min-stress-depth"`
	MaxStressDepth int `toml:"max-stress-depth"`
}

func (c *UnitConfig) WorkloadConfig() units.WorkloadConfig {
	return units.WorkloadConfig{
		MinAlloc:       c.MinAlloc,
		MaxAlloc:       c.MaxAlloc,
		HoldInterval:   c.HoldInterval.Duration,
		SleepInterval:  c.SleepInterval.Duration,
		MinStressDepth: c.MinStressDepth,
		MaxStressDepth: c.MaxStressDepth,
	}
}

type Config struct {
	NodeName string `toml:"node-name"`

	// heap-capacity is the size of the shared arena in bytes.
	// default: 262144
	HeapCapacity int64 `toml:"heap-capacity"`

	// report sink worker count. default: 2
	ReportWorkers int `toml:"report-workers"`

	// metrics-address enables the prometheus listener when non-empty.
	// default: disabled
	MetricsAddress string `toml:"metrics-address"`

	HeapMonitorInterval  Duration `toml:"heap-monitor-interval"`
	StackMonitorInterval Duration `toml:"stack-monitor-interval"`

	Log logutil.LogConfig `toml:"log"`

	Sensor UnitConfig `toml:"sensor"`
	Comm   UnitConfig `toml:"comm"`
}

// Load reads cfg from path, or returns the defaults when path is
// empty.  There is no command-line surface; everything is fixed at
// process start.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if len(path) != 0 {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, moerr.NewInvalidInput("parse config %s: %v", path, err)
		}
	}
	cfg.Adjust()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Adjust() {
	if len(c.NodeName) == 0 {
		c.NodeName = defaultNodeName
	}
	if c.HeapCapacity == 0 {
		c.HeapCapacity = defaultHeapCapacity
	}
	if c.ReportWorkers == 0 {
		c.ReportWorkers = defaultReportWorkers
	}
	if c.HeapMonitorInterval.Duration == 0 {
		c.HeapMonitorInterval.Duration = defaultHeapMonitorInterval
	}
	if c.StackMonitorInterval.Duration == 0 {
		c.StackMonitorInterval.Duration = defaultStackMonitorInterval
	}
	c.Log.Adjust()
	adjustUnit(&c.Sensor, UnitConfig{
		Quota:          2048,
		StackBudget:    2048,
		MinAlloc:       256,
		MaxAlloc:       1280,
		HoldInterval:   Duration{1000 * time.Millisecond},
		SleepInterval:  Duration{2000 * time.Millisecond},
		MinStressDepth: 4,
		MaxStressDepth: 7,
	})
	adjustUnit(&c.Comm, UnitConfig{
		Quota:          2048,
		StackBudget:    2048,
		MinAlloc:       512,
		MaxAlloc:       2560,
		HoldInterval:   Duration{800 * time.Millisecond},
		SleepInterval:  Duration{2500 * time.Millisecond},
		MinStressDepth: 6,
		MaxStressDepth: 8,
	})
}

func adjustUnit(c *UnitConfig, def UnitConfig) {
	if c.Quota == 0 {
		c.Quota = def.Quota
	}
	if c.StackBudget == 0 {
		c.StackBudget = def.StackBudget
	}
	if c.MinAlloc == 0 {
		c.MinAlloc = def.MinAlloc
	}
	if c.MaxAlloc == 0 {
		c.MaxAlloc = def.MaxAlloc
	}
	if c.HoldInterval.Duration == 0 {
		c.HoldInterval = def.HoldInterval
	}
	if c.SleepInterval.Duration == 0 {
		c.SleepInterval = def.SleepInterval
	}
	if c.MinStressDepth == 0 {
		c.MinStressDepth = def.MinStressDepth
	}
	if c.MaxStressDepth == 0 {
		c.MaxStressDepth = def.MaxStressDepth
	}
}

func (c *Config) Validate() error {
	if c.HeapCapacity <= 0 {
		return moerr.NewInvalidInput("heap-capacity %d", c.HeapCapacity)
	}
	for _, u := range []struct {
		name string
		cfg  *UnitConfig
	}{
		{"sensor", &c.Sensor},
		{"comm", &c.Comm},
	} {
		if u.cfg.MaxAlloc <= u.cfg.MinAlloc {
			return moerr.NewInvalidInput("%s alloc range [%d, %d)", u.name, u.cfg.MinAlloc, u.cfg.MaxAlloc)
		}
		if u.cfg.MaxStressDepth < u.cfg.MinStressDepth {
			return moerr.NewInvalidInput("%s stress depth range [%d, %d]", u.name, u.cfg.MinStressDepth, u.cfg.MaxStressDepth)
		}
		if u.cfg.Quota == 0 {
			return moerr.NewInvalidInput("%s quota must be positive", u.name)
		}
	}
	return nil
}
