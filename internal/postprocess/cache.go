package postprocess

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Cache 源图片URL到处理结果的旁路缓存,以JSON对象存储
type Cache struct {
	path string

	mu      sync.RWMutex
	entries map[string]string
}

// LoadCache 加载缓存文件,文件不存在时返回空缓存
func LoadCache(path string) (*Cache, error) {
	c := &Cache{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("读取图片缓存失败: %w", err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("解析图片缓存失败 [%s]: %w", path, err)
	}
	if c.entries == nil {
		c.entries = make(map[string]string)
	}
	return c, nil
}

// Get 查询缓存
func (c *Cache) Get(source string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[source]
	return v, ok
}

// Set 写入缓存
func (c *Cache) Set(source, processed string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[source] = processed
}

// Len 返回缓存条目数
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Save 写回缓存文件,先写临时文件再重命名
func (c *Cache) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("序列化图片缓存失败: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("创建缓存目录失败: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("写入图片缓存失败: %w", err)
	}
	return os.Rename(tmp, c.path)
}
