package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/goccy/go-json"

	"card_recommend/logger"
	"card_recommend/models"
)

// 建表语句，payload 保存完整结果JSON
const createHistoryTableSQL = `
CREATE TABLE IF NOT EXISTS recommendation_history (
	id BIGINT NOT NULL PRIMARY KEY,
	item_count INT NOT NULL,
	payload JSON NOT NULL,
	created_at DATETIME(6) NOT NULL,
	KEY idx_created_at (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// MySQLHistoryStore 基于MySQL的历史存储，进程重启后结果仍可查询
type MySQLHistoryStore struct {
	db *sql.DB
}

// NewMySQLHistoryStore 创建MySQL历史存储
func NewMySQLHistoryStore(db *sql.DB) *MySQLHistoryStore {
	return &MySQLHistoryStore{db: db}
}

// EnsureSchema 不存在时创建表
func (s *MySQLHistoryStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createHistoryTableSQL); err != nil {
		return fmt.Errorf("create recommendation_history: %w", err)
	}
	return nil
}

func (s *MySQLHistoryStore) Append(ctx context.Context, result *models.RecommendationResult) error {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result %d: %w", result.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recommendation_history (id, item_count, payload, created_at)
		VALUES (?, ?, CAST(? AS JSON), ?)
	`, result.ID, result.Count, string(b), result.CreatedAt)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == 1062 {
			return ErrDuplicateResult
		}
		return fmt.Errorf("insert result %d: %w", result.ID, err)
	}
	return nil
}

func (s *MySQLHistoryStore) Get(ctx context.Context, id int64) (*models.RecommendationResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM recommendation_history WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query result %d: %w", id, err)
	}

	var result models.RecommendationResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("decode result %d: %w", id, err)
	}
	return &result, nil
}

func (s *MySQLHistoryStore) Recent(ctx context.Context, limit int) ([]models.RecommendationResult, error) {
	if limit <= 0 {
		return []models.RecommendationResult{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload
		FROM recommendation_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent results: %w", err)
	}
	defer rows.Close()

	out := make([]models.RecommendationResult, 0, limit)
	for rows.Next() {
		var (
			id      int64
			payload string
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var result models.RecommendationResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			// 单条损坏的记录不影响列表
			logger.Warn("历史记录解码失败，已跳过", "id", id, "error", err)
			continue
		}
		out = append(out, result)
	}
	return out, rows.Err()
}

func (s *MySQLHistoryStore) LastID(ctx context.Context) (int64, error) {
	var last sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM recommendation_history`).Scan(&last); err != nil {
		return 0, fmt.Errorf("query max id: %w", err)
	}
	return last.Int64, nil
}
