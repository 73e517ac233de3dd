package websocket

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Прототип: разрешаем все origins
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler обрабатывает WebSocket подключения
type Handler struct {
	manager *Manager
	initial func() []Message
}

// NewHandler создает новый WebSocket handler.
// initial (может быть nil) - сообщения, которые новый клиент получает сразу,
// например текущий статус камеры.
func NewHandler(manager *Manager, initial func() []Message) *Handler {
	return &Handler{
		manager: manager,
		initial: initial,
	}
}

// HandleWebSocket обрабатывает WebSocket подключение
func (h *Handler) HandleWebSocket(c *gin.Context) {
	// Получаем taskID из query параметра
	taskID := c.Query("task_id")

	// Апгрейдим HTTP соединение до WebSocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		ID:     uuid.New().String(),
		Conn:   conn,
		Send:   make(chan Message, 256),
		TaskID: taskID,
	}

	if h.initial != nil {
		for _, msg := range h.initial() {
			client.Send <- msg
		}
	}

	h.manager.RegisterClient(client)

	// Запускаем горутины для чтения и записи
	go client.WritePump()
	go client.ReadPump(h.manager)
}

// GetManager возвращает менеджер (для использования в других handlers)
func (h *Handler) GetManager() *Manager {
	return h.manager
}
