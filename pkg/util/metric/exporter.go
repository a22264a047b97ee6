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
	"context"
	"net/http"
	"time"

	"github.com/matrixorigin/agrosense/pkg/common/stopper"
	"github.com/matrixorigin/agrosense/pkg/logutil"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// StartMetricsServer exposes /metrics on addr under the stopper's
// lifecycle.  An empty addr disables the listener entirely; the node
// has no other network surface.
func StartMetricsServer(s *stopper.Stopper, addr string) error {
	if len(addr) == 0 {
		return nil
	}
	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	return s.RunNamedTask("metrics-server", func(ctx context.Context) {
		errC := make(chan error, 1)
		go func() {
			errC <- srv.ListenAndServe()
		}()
		logutil.Info("metrics server started", zap.String("address", addr))

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logutil.Error("metrics server shutdown failed", zap.Error(err))
			}
		case err := <-errC:
			if err != nil && err != http.ErrServerClosed {
				logutil.Error("metrics server failed", zap.Error(err))
			}
		}
	})
}
