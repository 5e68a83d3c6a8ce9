package auth

import (
	"sync"

	"github.com/hitoshi/cropview/internal/model"
)

// subscriberBuffer は購読チャネルのバッファサイズ。
// 受信が追いつかない購読者がいてもpublishをブロックしない。
const subscriberBuffer = 8

// eventHub はアイデンティティ変化イベントの単一の配信点。
// プロセス内にハブは1つだけ存在し、何人購読してもバックエンド側の
// リスナーは増えない。closeは1回だけ有効（セットアップと対称）。
type eventHub struct {
	mu          sync.Mutex
	subscribers map[int]chan model.IdentityEvent
	nextID      int
	closed      bool
	closeOnce   sync.Once
}

func newEventHub() *eventHub {
	return &eventHub{
		subscribers: make(map[int]chan model.IdentityEvent),
	}
}

// subscribe は新しい購読チャネルと解除関数を返す。
// ハブがclose済みの場合は即座に閉じたチャネルを返す。
func (h *eventHub) subscribe() (<-chan model.IdentityEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan model.IdentityEvent, subscriberBuffer)

	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(sub)
		}
	}

	return ch, unsubscribe
}

// publish は全購読者へイベントをファンアウトする。
// バッファが満杯の購読者はスキップする（配信は best effort）。
func (h *eventHub) publish(ev model.IdentityEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	for _, ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// close はハブを停止し、全購読チャネルを閉じる。冪等。
func (h *eventHub) close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.closed = true
		for id, ch := range h.subscribers {
			delete(h.subscribers, id)
			close(ch)
		}
	})
}
