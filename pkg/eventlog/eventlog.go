// Package eventlog 提供实例生命周期事件的内存环形缓冲
//
// 事件仅用于运维排查，不落库；缓冲写满后覆盖最旧的事件。
// 所有方法并发安全。
package eventlog

import (
	"sync"
	"time"
)

// EventKind 生命周期事件类型
type EventKind string

const (
	KindCreating    EventKind = "creating"
	KindStarting    EventKind = "starting"
	KindStopping    EventKind = "stopping"
	KindTerminating EventKind = "terminating"
	KindError       EventKind = "error"
	KindHealthCheck EventKind = "health-check"
)

// Event 一条生命周期事件
type Event struct {
	VMID      string    `json:"vmID"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail"`
}

// Log 固定容量的环形事件缓冲
type Log struct {
	mu     sync.RWMutex
	events []Event
	next   int // 下一个写入位置
	full   bool
}

// New 创建容量为 capacity 的事件缓冲
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = 256
	}
	return &Log{
		events: make([]Event, capacity),
	}
}

// Record 追加一条事件，缓冲写满后覆盖最旧的事件
func (l *Log) Record(vmID string, kind EventKind, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events[l.next] = Event{
		VMID:      vmID,
		Kind:      kind,
		Timestamp: time.Now(),
		Detail:    detail,
	}
	l.next++
	if l.next == len(l.events) {
		l.next = 0
		l.full = true
	}
}

// ListByVM 按时间顺序返回指定实例的事件
func (l *Log) ListByVM(vmID string) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []Event
	for _, event := range l.snapshot() {
		if event.VMID == vmID {
			result = append(result, event)
		}
	}
	return result
}

// List 按时间顺序返回缓冲中的全部事件
func (l *Log) List() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot()
}

// snapshot 按写入顺序展开环形缓冲，调用方必须持有读锁
func (l *Log) snapshot() []Event {
	if !l.full {
		result := make([]Event, l.next)
		copy(result, l.events[:l.next])
		return result
	}
	result := make([]Event, 0, len(l.events))
	result = append(result, l.events[l.next:]...)
	result = append(result, l.events[:l.next]...)
	return result
}
