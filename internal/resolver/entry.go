package resolver

import "time"

// entry 是单个源站 URL 的缓存条目。content/contentType/etag 只会被整体替换，
// 成功的 revalidate 仅前移 expiresAt。
type entry struct {
	content     []byte
	contentType string
	etag        string
	expiresAt   time.Time
}

// EntryInfo 是诊断接口可见的条目快照，不暴露正文内容。
type EntryInfo struct {
	Identifier string    `json:"identifier"`
	SizeBytes  int       `json:"size_bytes"`
	ETag       string    `json:"etag,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// peek 返回条目的浅拷贝，避免调用方读到写入一半的字段组合。
func (e *Engine) peek(identifier string) (entry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	stored, ok := e.entries[identifier]
	if !ok {
		return entry{}, false
	}
	return *stored, true
}

// storeEntry 整体替换 identifier 对应的条目。
func (e *Engine) storeEntry(identifier string, ent entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	stored := ent
	e.entries[identifier] = &stored
}

// touchEntry 在 revalidate 成功后仅前移过期时间，正文与校验器保持原样。
// 条目在请求期间被并发替换时放弃更新，以最后一次完整写入为准。
func (e *Engine) touchEntry(identifier string, expiresAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if stored, ok := e.entries[identifier]; ok {
		stored.expiresAt = expiresAt
	}
}

// Snapshot 返回当前缓存条目的只读视图，供诊断路由输出。
func (e *Engine) Snapshot() []EntryInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make([]EntryInfo, 0, len(e.entries))
	for identifier, stored := range e.entries {
		result = append(result, EntryInfo{
			Identifier: identifier,
			SizeBytes:  len(stored.content),
			ETag:       stored.etag,
			ExpiresAt:  stored.expiresAt,
		})
	}
	return result
}

// Len 返回缓存条目数量。
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}
