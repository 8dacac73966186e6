package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sahanas/mailsense/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) GetDefaultUser(ctx context.Context) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, created_at, updated_at FROM users WHERE email = 'demo@mailsense.local' LIMIT 1`,
	).Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get default user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Email, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`, id, userID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Analysis Records ---

// UpsertAnalysis writes the email row and its extracted entities in one
// transaction. A re-analysis of the same message ID replaces both; the
// entity rows are deleted and reinserted rather than diffed.
func (s *PostgresStore) UpsertAnalysis(ctx context.Context, a *models.Analysis) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert analysis: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO emails (id, user_id, subject, sender, date, snippet, body, summary, priority, sentiment, sentiment_score, category, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO UPDATE SET
		   user_id = EXCLUDED.user_id,
		   subject = EXCLUDED.subject,
		   sender = EXCLUDED.sender,
		   date = EXCLUDED.date,
		   snippet = EXCLUDED.snippet,
		   body = EXCLUDED.body,
		   summary = EXCLUDED.summary,
		   priority = EXCLUDED.priority,
		   sentiment = EXCLUDED.sentiment,
		   sentiment_score = EXCLUDED.sentiment_score,
		   category = EXCLUDED.category,
		   processed_at = EXCLUDED.processed_at`,
		a.ID, a.UserID, a.Subject, a.Sender, a.Date, a.Snippet, a.Body, a.Summary,
		a.Priority, a.Sentiment, a.SentimentScore, a.Category, a.ProcessedAt)
	if err != nil {
		return fmt.Errorf("upsert email: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM extracted_info WHERE email_id = $1`, a.ID); err != nil {
		return fmt.Errorf("clear extracted info: %w", err)
	}

	entities := []struct {
		infoType string
		values   []string
	}{
		{"email", a.ExtractedInfo.Emails},
		{"phone", a.ExtractedInfo.Phones},
		{"date", a.ExtractedInfo.Dates},
		{"action_item", a.ExtractedInfo.ActionItems},
	}
	for _, e := range entities {
		for _, v := range e.values {
			if _, err := tx.Exec(ctx,
				`INSERT INTO extracted_info (email_id, info_type, info_value) VALUES ($1, $2, $3)`,
				a.ID, e.infoType, v); err != nil {
				return fmt.Errorf("insert extracted info: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert analysis: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string, userID uuid.UUID) (*models.Analysis, error) {
	var a models.Analysis
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, subject, sender, date, snippet, body, summary, priority, sentiment, sentiment_score, category, processed_at
		 FROM emails WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&a.ID, &a.UserID, &a.Subject, &a.Sender, &a.Date, &a.Snippet, &a.Body,
		&a.Summary, &a.Priority, &a.Sentiment, &a.SentimentScore, &a.Category, &a.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}

	info, err := s.extractedInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	a.ExtractedInfo = info
	return &a, nil
}

func (s *PostgresStore) extractedInfo(ctx context.Context, emailID string) (models.ExtractedInfo, error) {
	info := models.ExtractedInfo{
		Emails:      []string{},
		Phones:      []string{},
		Dates:       []string{},
		ActionItems: []string{},
	}

	rows, err := s.pool.Query(ctx,
		`SELECT info_type, info_value FROM extracted_info WHERE email_id = $1 ORDER BY id`, emailID)
	if err != nil {
		return info, fmt.Errorf("get extracted info: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var infoType, value string
		if err := rows.Scan(&infoType, &value); err != nil {
			return info, fmt.Errorf("scan extracted info: %w", err)
		}
		switch infoType {
		case "email":
			info.Emails = append(info.Emails, value)
		case "phone":
			info.Phones = append(info.Phones, value)
		case "date":
			info.Dates = append(info.Dates, value)
		case "action_item":
			info.ActionItems = append(info.ActionItems, value)
		}
	}
	return info, rows.Err()
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]*models.Analysis, int, error) {
	conditions := []string{"user_id = $1"}
	args := []any{filter.UserID}
	argIdx := 2

	if filter.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("priority = $%d", argIdx))
		args = append(args, filter.Priority)
		argIdx++
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, filter.Category)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM emails WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count analyses: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT id, user_id, subject, sender, date, snippet, body, summary, priority, sentiment, sentiment_score, category, processed_at
		 FROM emails WHERE %s ORDER BY processed_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var results []*models.Analysis
	for rows.Next() {
		var a models.Analysis
		if err := rows.Scan(&a.ID, &a.UserID, &a.Subject, &a.Sender, &a.Date, &a.Snippet, &a.Body,
			&a.Summary, &a.Priority, &a.Sentiment, &a.SentimentScore, &a.Category, &a.ProcessedAt); err != nil {
			return nil, 0, fmt.Errorf("scan analysis: %w", err)
		}
		results = append(results, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, a := range results {
		info, err := s.extractedInfo(ctx, a.ID)
		if err != nil {
			return nil, 0, err
		}
		a.ExtractedInfo = info
	}
	return results, total, nil
}

// Analytics aggregates the stored records into the dashboard summary.
func (s *PostgresStore) Analytics(ctx context.Context, userID uuid.UUID, recentLimit int) (*models.AnalyticsSummary, error) {
	summary := &models.AnalyticsSummary{
		PriorityDistribution:  map[string]int{},
		SentimentDistribution: map[string]int{},
		CategoryDistribution:  map[string]int{},
		RecentEmails:          []models.RecentAnalysis{},
	}

	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM emails WHERE user_id = $1`, userID).Scan(&summary.TotalEmails); err != nil {
		return nil, fmt.Errorf("count emails: %w", err)
	}

	for _, agg := range []struct {
		column string
		dest   map[string]int
	}{
		{"priority", summary.PriorityDistribution},
		{"sentiment", summary.SentimentDistribution},
		{"category", summary.CategoryDistribution},
	} {
		if err := s.countByColumn(ctx, userID, agg.column, agg.dest); err != nil {
			return nil, err
		}
	}

	if recentLimit <= 0 {
		recentLimit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, subject, sender, priority, sentiment, category, processed_at
		 FROM emails WHERE user_id = $1 ORDER BY processed_at DESC LIMIT $2`, userID, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent emails: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.RecentAnalysis
		if err := rows.Scan(&r.ID, &r.Subject, &r.Sender, &r.Priority, &r.Sentiment, &r.Category, &r.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan recent email: %w", err)
		}
		summary.RecentEmails = append(summary.RecentEmails, r)
	}
	return summary, rows.Err()
}

func (s *PostgresStore) countByColumn(ctx context.Context, userID uuid.UUID, column string, dest map[string]int) error {
	// column comes from a fixed caller-side list, never user input.
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s, COUNT(*) FROM emails WHERE user_id = $1 GROUP BY %s`, column, column), userID)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return fmt.Errorf("scan %s aggregate: %w", column, err)
		}
		dest[label] = count
	}
	return rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
