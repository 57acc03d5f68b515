package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	ref      TEXT    NOT NULL,
	position INTEGER NOT NULL,
	id       TEXT    NOT NULL,
	data     TEXT    NOT NULL,
	PRIMARY KEY (ref, position)
);
CREATE INDEX IF NOT EXISTS idx_products_ref_id ON products(ref, id);
`

// SQLiteStore 基于SQLite的目录存储
// 每条记录一行,按position保持目录顺序;保存时删除该ref的全部行后重新写入
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore 打开(或创建)SQLite目录库
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	// 单写入者,一个连接即可;内存库也需要所有查询落在同一连接上
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("设置数据库参数失败 [%s]: %w", p, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化数据库表失败: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load 实现Store接口
func (s *SQLiteStore) Load(ctx context.Context, ref string) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM products WHERE ref = ? ORDER BY position`, ref)
	if err != nil {
		return nil, fmt.Errorf("查询目录失败 [%s]: %w", ref, err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("读取记录失败 [%s]: %w", ref, err)
		}
		var p models.Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("解析记录失败 [%s]: %w", ref, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历记录失败 [%s]: %w", ref, err)
	}
	return products, nil
}

// Save 实现Store接口
func (s *SQLiteStore) Save(ctx context.Context, ref string, products []models.Product) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM products WHERE ref = ?`, ref); err != nil {
		return fmt.Errorf("清空目录失败 [%s]: %w", ref, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO products (ref, position, id, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("准备插入语句失败: %w", err)
	}
	defer stmt.Close()

	for i := range products {
		data, mErr := json.Marshal(&products[i])
		if mErr != nil {
			err = fmt.Errorf("序列化记录失败: %w", mErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, ref, i, products[i].ID, string(data)); err != nil {
			return fmt.Errorf("写入记录失败 [%s]: %w", ref, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// Close 实现Store接口
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
