package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/1128026Go/Arconte-sub000/internal/domain/notification"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
)

// RuleRepository implements notification.RuleRepository on a pgx pool.
type RuleRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

func NewRuleRepository(pool *pgxpool.Pool, log logging.Logger) *RuleRepository {
	return &RuleRepository{pool: pool, logger: log.Named("rule_repo")}
}

func (r *RuleRepository) Create(ctx context.Context, rule *notification.Rule) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_rules (
			id, owner_id, rule_type, rule_value, priority_boost, enabled, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rule.ID, rule.OwnerID, rule.Type, []byte(rule.Value),
		rule.Boost, rule.Enabled, rule.CreatedAt,
	)
	return mapError(err, "notification rule")
}

func (r *RuleRepository) ListEnabled(ctx context.Context, ownerID string) ([]notification.Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, rule_type, rule_value, priority_boost, enabled, created_at
		FROM notification_rules
		WHERE owner_id = $1 AND enabled ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, mapError(err, "notification rules")
	}
	defer rows.Close()

	var rules []notification.Rule
	for rows.Next() {
		var rule notification.Rule
		var value []byte
		if err := rows.Scan(&rule.ID, &rule.OwnerID, &rule.Type, &value,
			&rule.Boost, &rule.Enabled, &rule.CreatedAt); err != nil {
			return nil, mapError(err, "notification rule")
		}
		rule.Value = value
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "notification rules")
	}
	return rules, nil
}
