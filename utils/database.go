package utils

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"feeddigest/models"
)

// ErrInvalidRating 反馈评分只能是 up 或 down
var ErrInvalidRating = errors.New("rating must be up or down")

// Store 历史、分类缓存与反馈的 sqlite 存储
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore 打开（必要时创建）数据库
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	s := &Store{db: db, path: path}
	if err = s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("创建表结构失败: %w", err)
	}
	return s, nil
}

// Path 数据库文件路径
func (s *Store) Path() string { return s.path }

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"classify_cache", `
			CREATE TABLE IF NOT EXISTS classify_cache (
				link TEXT PRIMARY KEY,
				category TEXT NOT NULL
			)`},
		{"history", `
			CREATE TABLE IF NOT EXISTS history (
				run_date TEXT NOT NULL,
				position INTEGER NOT NULL,
				run_id TEXT,
				article TEXT NOT NULL,
				PRIMARY KEY (run_date, position)
			)`},
		{"feedback", `
			CREATE TABLE IF NOT EXISTS feedback (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				section TEXT NOT NULL,
				rating TEXT NOT NULL,
				created_at INTEGER NOT NULL
			)`},
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st.sql); err != nil {
			return fmt.Errorf("创建 %s 表失败: %w", st.name, err)
		}
	}
	return nil
}

// ===== 分类缓存操作 =====

// LookupCategory 读取链接的缓存类别
func (s *Store) LookupCategory(ctx context.Context, link string) (string, bool, error) {
	var category string
	err := s.db.QueryRowContext(ctx, "SELECT category FROM classify_cache WHERE link = ?", link).Scan(&category)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return category, true, nil
}

// RememberCategory 保存分类结果
func (s *Store) RememberCategory(ctx context.Context, link, category string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO classify_cache (link, category) VALUES (?, ?)",
		link, category,
	)
	return err
}

// ClearClassifyCache 清空分类缓存
func (s *Store) ClearClassifyCache(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM classify_cache")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ===== 历史快照 =====

// SaveHistory 覆盖写入某日的文章快照
func (s *Store) SaveHistory(ctx context.Context, runDate, runID string, articles []models.Article) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM history WHERE run_date = ?", runDate); err != nil {
		return fmt.Errorf("清理历史失败: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO history (run_date, position, run_id, article) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, a := range articles {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("序列化文章失败: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runDate, i, runID, string(data)); err != nil {
			return fmt.Errorf("写入历史失败: %w", err)
		}
	}
	return tx.Commit()
}

// LoadHistory 按给定日期顺序读取快照，缺失的日期跳过
func (s *Store) LoadHistory(ctx context.Context, dates []string) ([]models.Article, error) {
	var out []models.Article
	for _, d := range dates {
		rows, err := s.db.QueryContext(ctx, "SELECT article FROM history WHERE run_date = ? ORDER BY position", d)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				rows.Close()
				return nil, err
			}
			var a models.Article
			if err := json.Unmarshal([]byte(raw), &a); err != nil {
				rows.Close()
				return nil, fmt.Errorf("解析历史文章失败 (%s): %w", d, err)
			}
			out = append(out, a)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// HistoryDates 已保存快照的日期，新的在前
func (s *Store) HistoryDates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT run_date FROM history ORDER BY run_date DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// ===== 读者反馈 =====

// AddFeedback 记录一条反馈
func (s *Store) AddFeedback(ctx context.Context, section, rating string) (models.FeedbackEntry, error) {
	if rating != "up" && rating != "down" {
		return models.FeedbackEntry{}, ErrInvalidRating
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO feedback (section, rating, created_at) VALUES (?, ?, ?)",
		section, rating, now.Unix(),
	)
	if err != nil {
		return models.FeedbackEntry{}, err
	}
	id, _ := res.LastInsertId()
	return models.FeedbackEntry{ID: id, Section: section, Rating: rating, CreatedAt: now.Truncate(time.Second)}, nil
}

// ListFeedback 最近的反馈，新的在前
func (s *Store) ListFeedback(ctx context.Context, limit int) ([]models.FeedbackEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, section, rating, created_at FROM feedback ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FeedbackEntry
	for rows.Next() {
		var e models.FeedbackEntry
		var ts int64
		if err := rows.Scan(&e.ID, &e.Section, &e.Rating, &ts); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
