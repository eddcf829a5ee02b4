package storage

import (
	"sync"
	"time"

	"GamesMarketDash/src/processor"
)

// Dataset 保存当前数据表, 提供线程安全访问
// 数据表本身只读, 重新加载时整体替换
type Dataset struct {
	table    processor.Table
	source   string
	loadedAt time.Time
	mu       sync.RWMutex
}

// NewDataset 创建数据集
func NewDataset(source string, table processor.Table) *Dataset {
	return &Dataset{
		table:    table,
		source:   source,
		loadedAt: time.Now(),
	}
}

// Get 获取当前数据表(线程安全)
func (d *Dataset) Get() processor.Table {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.table
}

// Set 替换数据表(线程安全)
func (d *Dataset) Set(table processor.Table) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table = table
	d.loadedAt = time.Now()
}

// Source 数据来源
func (d *Dataset) Source() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.source
}

// LoadedAt 最近一次加载时间
func (d *Dataset) LoadedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loadedAt
}
