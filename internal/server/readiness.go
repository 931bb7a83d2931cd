package server

import (
	"sync/atomic"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the gRPC health service reported for the analyzer.
const HealthServiceName = "emotion.Analyzer"

// Readiness flips to ready once the classifier has been warmed up. It
// mirrors its state into the gRPC health server when one is attached.
type Readiness struct {
	ready  atomic.Bool
	health *health.Server
}

func NewReadiness(h *health.Server) *Readiness {
	r := &Readiness{health: h}
	r.SetReady(false)
	return r
}

func (r *Readiness) SetReady(ready bool) {
	r.ready.Store(ready)
	if r.health == nil {
		return
	}
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	r.health.SetServingStatus("", status)
	r.health.SetServingStatus(HealthServiceName, status)
}

func (r *Readiness) Ready() bool {
	return r.ready.Load()
}

// Shutdown marks every service NOT_SERVING so load balancers drain first.
func (r *Readiness) Shutdown() {
	r.ready.Store(false)
	if r.health != nil {
		r.health.Shutdown()
	}
}
