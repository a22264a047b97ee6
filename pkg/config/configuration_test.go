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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matrixorigin/agrosense/pkg/common/moerr"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigDefaults(t *testing.T) {
	convey.Convey("empty path yields firmware defaults", t, func() {
		cfg, err := Load("")
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.NodeName, convey.ShouldEqual, defaultNodeName)
		convey.So(cfg.HeapCapacity, convey.ShouldEqual, int64(256*KB))
		convey.So(cfg.MetricsAddress, convey.ShouldEqual, "")
		convey.So(cfg.HeapMonitorInterval.Duration, convey.ShouldEqual, 3*time.Second)
		convey.So(cfg.StackMonitorInterval.Duration, convey.ShouldEqual, 5*time.Second)

		convey.So(cfg.Sensor.Quota, convey.ShouldEqual, uint64(2048))
		convey.So(cfg.Sensor.MinAlloc, convey.ShouldEqual, 256)
		convey.So(cfg.Sensor.MaxAlloc, convey.ShouldEqual, 1280)
		convey.So(cfg.Sensor.SleepInterval.Duration, convey.ShouldEqual, 2*time.Second)

		convey.So(cfg.Comm.Quota, convey.ShouldEqual, uint64(2048))
		convey.So(cfg.Comm.MinAlloc, convey.ShouldEqual, 512)
		convey.So(cfg.Comm.MaxAlloc, convey.ShouldEqual, 2560)
		convey.So(cfg.Comm.HoldInterval.Duration, convey.ShouldEqual, 800*time.Millisecond)
	})
}

func TestConfigLoadFile(t *testing.T) {
	convey.Convey("a partial file overrides only what it sets", t, func() {
		path := filepath.Join(t.TempDir(), "agrosense.toml")
		content := `
node-name = "bench-node"
heap-capacity = 32768

[sensor]
quota = 4096
hold-interval = "10ms"
`
		convey.So(os.WriteFile(path, []byte(content), 0o644), convey.ShouldBeNil)

		cfg, err := Load(path)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.NodeName, convey.ShouldEqual, "bench-node")
		convey.So(cfg.HeapCapacity, convey.ShouldEqual, int64(32768))
		convey.So(cfg.Sensor.Quota, convey.ShouldEqual, uint64(4096))
		convey.So(cfg.Sensor.HoldInterval.Duration, convey.ShouldEqual, 10*time.Millisecond)
		// untouched fields keep their defaults
		convey.So(cfg.Sensor.MinAlloc, convey.ShouldEqual, 256)
		convey.So(cfg.Comm.SleepInterval.Duration, convey.ShouldEqual, 2500*time.Millisecond)
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("a backwards alloc range is rejected", t, func() {
		cfg := &Config{}
		cfg.Adjust()
		cfg.Sensor.MinAlloc = 1280
		cfg.Sensor.MaxAlloc = 256
		err := cfg.Validate()
		convey.So(moerr.IsMoErrCode(err, moerr.ErrInvalidInput), convey.ShouldBeTrue)
	})
}

func TestWorkloadConfigConversion(t *testing.T) {
	convey.Convey("toml constants map onto the workload", t, func() {
		cfg := &Config{}
		cfg.Adjust()
		wc := cfg.Comm.WorkloadConfig()
		convey.So(wc.MinAlloc, convey.ShouldEqual, 512)
		convey.So(wc.MaxAlloc, convey.ShouldEqual, 2560)
		convey.So(wc.HoldInterval, convey.ShouldEqual, 800*time.Millisecond)
		convey.So(wc.MinStressDepth, convey.ShouldEqual, 6)
		convey.So(wc.MaxStressDepth, convey.ShouldEqual, 8)
	})
}
