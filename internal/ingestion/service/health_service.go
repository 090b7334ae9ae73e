package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"golang-trade-clearinghouse/internal/ingestion/dto"
	"golang-trade-clearinghouse/internal/ingestion/repository"
	"golang-trade-clearinghouse/pkg/common"
)

const healthCheckTimeout = 3 * time.Second

// HealthService defines the interface for dependency health checks.
type HealthService interface {
	Check(ctx context.Context) (dto.HealthResponse, bool)
}

type healthService struct {
	store repository.Store
	redis redis.UniversalClient
}

// NewHealthService creates a new HealthService. rdb may be nil when Redis is disabled.
func NewHealthService(store repository.Store, rdb redis.UniversalClient) HealthService {
	return &healthService{store: store, redis: rdb}
}

// Check pings the database and, when configured, Redis. The bool is false when any dependency is down.
func (s *healthService) Check(ctx context.Context) (dto.HealthResponse, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		return dto.HealthResponse{Status: "ERROR", Error: err.Error()}, false
	}
	resp := dto.HealthResponse{Status: "OK", Database: "connected", Service: common.ServiceName}

	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return dto.HealthResponse{Status: "ERROR", Database: "connected", Redis: "unreachable", Error: err.Error()}, false
		}
		resp.Redis = "connected"
	}
	return resp, true
}
