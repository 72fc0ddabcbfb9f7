package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LinkKey MAVLink 链路标识：源 system_id + component_id
type LinkKey struct {
	SystemID    uint8
	ComponentID uint8
}

// Link 单条链路的会话状态
type Link struct {
	SessionID   string    `json:"session_id"`
	SystemID    uint8     `json:"system_id"`
	ComponentID uint8     `json:"component_id"`
	Version     uint8     `json:"version"` // 最近一帧的协议版本
	Signed      bool      `json:"signed"`  // 最近一帧是否带签名
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Frames      uint64    `json:"frames"`
	Lost        uint64    `json:"lost"` // 按序号跳变推算的丢帧数

	lastSeq uint8
	hasSeq  bool
}

// FrameMeta 一帧的会话相关元数据
type FrameMeta struct {
	Version  uint8
	Sequence uint8
	Signed   bool
	At       time.Time
}

// Manager 链路会话管理：记录每条链路最近活动时间与帧统计，判断是否在线
type Manager struct {
	mu      sync.RWMutex
	links   map[LinkKey]*Link
	timeout time.Duration
}

func New(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Manager{links: make(map[LinkKey]*Link), timeout: timeout}
}

// OnFrame 记录一帧：刷新最近活动时间、累计帧数，并按序号间隙推算丢帧。
// 返回本帧相对上一帧的丢帧数（首帧为 0）。
func (m *Manager) OnFrame(key LinkKey, meta FrameMeta) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.links[key]
	if !ok {
		l = &Link{
			SessionID:   uuid.NewString(),
			SystemID:    key.SystemID,
			ComponentID: key.ComponentID,
			FirstSeen:   meta.At,
		}
		m.links[key] = l
	}

	var lost uint64
	if l.hasSeq {
		// 序号为 uint8 自然回绕，间隙按模256计算
		gap := meta.Sequence - l.lastSeq
		if gap > 1 {
			lost = uint64(gap - 1)
		}
	}
	l.lastSeq = meta.Sequence
	l.hasSeq = true
	l.Lost += lost
	l.Frames++
	l.LastSeen = meta.At
	l.Version = meta.Version
	l.Signed = meta.Signed
	return lost
}

// IsOnline 判断链路是否在线
func (m *Manager) IsOnline(key LinkKey, now time.Time) bool {
	m.mu.RLock()
	l, ok := m.links[key]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return now.Sub(l.LastSeen) <= m.timeout
}

// OnlineCount 返回当前在线链路数量
func (m *Manager) OnlineCount(now time.Time) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, l := range m.links {
		if now.Sub(l.LastSeen) <= m.timeout {
			count++
		}
	}
	return count
}

// Snapshot 返回全部链路状态的副本，按 system_id/component_id 排序
func (m *Manager) Snapshot() []Link {
	m.mu.RLock()
	out := make([]Link, 0, len(m.links))
	for _, l := range m.links {
		out = append(out, *l)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SystemID != out[j].SystemID {
			return out[i].SystemID < out[j].SystemID
		}
		return out[i].ComponentID < out[j].ComponentID
	})
	return out
}
