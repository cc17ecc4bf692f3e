package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	reloadMessage = "reload"
	writeWait     = 5 * time.Second
)

// liveReloadScript 注入到 HTML 页面末尾
const liveReloadScript = `<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws/reload");
  ws.onmessage = function (e) { if (e.data === "reload") { location.reload(); } };
})();
</script>
`

// reloadHub 持有所有预览页面的 websocket 连接
type reloadHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
	// 每个已登记连接的读循环
	active sync.WaitGroup
}

func newReloadHub() *reloadHub {
	return &reloadHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *reloadHub) add(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[conn] = struct{}{}
	h.active.Add(1)
	return true
}

// remove 每个 add 成功的连接调用一次
func (h *reloadHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	h.active.Done()
}

func (h *reloadHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast 写失败的连接直接关闭，由读循环清理
func (h *reloadHub) broadcast(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	sent := 0
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			conn.Close()
			continue
		}
		sent++
	}
	return sent
}

// close 关闭所有连接并等待读循环退出
func (h *reloadHub) close() {
	h.mu.Lock()
	h.closed = true
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
		conn.Close()
	}
	h.mu.Unlock()
	h.active.Wait()
}
