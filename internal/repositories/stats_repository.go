package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// StatsRepository reads the aggregates broadcast by the presence tracker.
// Jobs, events and users live in tables owned by other services; this
// service only counts them.
type StatsRepository interface {
	TotalJobs(ctx context.Context) (int, error)
	TotalEvents(ctx context.Context) (int, error)
	TotalUsers(ctx context.Context) (int, error)
}

// StatsRepo is a sqlx implementation of StatsRepository.
type StatsRepo struct {
	db *sqlx.DB
}

// NewStatsRepo constructs a StatsRepo.
func NewStatsRepo(db *sqlx.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) TotalJobs(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COALESCE(COUNT(*), 0) FROM jobs`)
}

func (r *StatsRepo) TotalEvents(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COALESCE(COUNT(*), 0) FROM events`)
}

func (r *StatsRepo) TotalUsers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COALESCE(COUNT(*), 0) FROM users`)
}

func (r *StatsRepo) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, query); err != nil {
		return 0, err
	}
	return n, nil
}
