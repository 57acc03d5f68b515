package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
)

// Store 目录存储
// 每个ref保存一个完整目录快照;同一ref同时只能有一个写入者
type Store interface {
	// Load 读取目录,不存在时返回空集合而非错误
	Load(ctx context.Context, ref string) ([]models.Product, error)

	// Save 整体替换ref对应的目录
	Save(ctx context.Context, ref string, products []models.Product) error

	Close() error
}

// JSONStore 基于JSON文件的目录存储,每个ref对应目录下的一个文件
type JSONStore struct {
	dir string
}

// NewJSONStore 创建JSON文件存储
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

// Path 返回ref对应的文件路径
func (s *JSONStore) Path(ref string) string {
	return filepath.Join(s.dir, ref)
}

// Load 实现Store接口
func (s *JSONStore) Load(_ context.Context, ref string) ([]models.Product, error) {
	data, err := os.ReadFile(s.Path(ref))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Product{}, nil
		}
		return nil, fmt.Errorf("读取目录文件失败 [%s]: %w", ref, err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("解析目录文件失败 [%s]: %w", ref, err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// Save 实现Store接口
func (s *JSONStore) Save(_ context.Context, ref string, products []models.Product) error {
	if products == nil {
		products = []models.Product{}
	}

	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化目录失败: %w", err)
	}

	path := s.Path(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	// 先写临时文件再重命名,中途崩溃不会留下半个目录文件
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("写入目录文件失败 [%s]: %w", ref, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("替换目录文件失败 [%s]: %w", ref, err)
	}
	return nil
}

// Close 实现Store接口
func (s *JSONStore) Close() error {
	return nil
}
