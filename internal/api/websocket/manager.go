package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message типы сообщений для WebSocket
type MessageType string

const (
	MessageTypeCameraStatus MessageType = "camera_status"
	MessageTypeCaptureState MessageType = "capture_state"
	MessageTypeTaskUpdate   MessageType = "task_update"
	MessageTypeTaskProgress MessageType = "task_progress"
	MessageTypeStatsUpdate  MessageType = "stats_update"
)

const writeWait = 10 * time.Second

// Message структура WebSocket сообщения
type Message struct {
	Type    MessageType `json:"type"`
	TaskID  string      `json:"task_id,omitempty"`
	Payload interface{} `json:"payload"`
}

// Client представляет WebSocket клиента
type Client struct {
	ID     string
	Conn   *websocket.Conn
	Send   chan Message
	TaskID string // ID задачи, которую отслеживает клиент
}

// Manager управляет WebSocket соединениями
type Manager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	done       chan struct{}
	mu         sync.RWMutex
}

// NewManager создает новый WebSocket manager
func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 256),
		done:       make(chan struct{}),
	}
}

// Run запускает менеджер (должен работать в отдельной горутине)
func (m *Manager) Run() {
	for {
		select {
		case <-m.done:
			m.mu.Lock()
			for id, client := range m.clients {
				close(client.Send)
				delete(m.clients, id)
			}
			m.mu.Unlock()
			return

		case client := <-m.register:
			m.mu.Lock()
			m.clients[client.ID] = client
			m.mu.Unlock()
			log.Printf("WebSocket: клиент %s подключен (задача: %s)", client.ID, client.TaskID)

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client.ID]; ok {
				delete(m.clients, client.ID)
				close(client.Send)
				log.Printf("WebSocket: клиент %s отключен", client.ID)
			}
			m.mu.Unlock()

		case message := <-m.broadcast:
			m.mu.Lock()
			for _, client := range m.clients {
				// Сообщение по задаче получают только подписанные на неё клиенты
				if message.TaskID != "" && client.TaskID != "" && client.TaskID != message.TaskID {
					continue
				}

				select {
				case client.Send <- message:
				default:
					// Если канал переполнен - отключаем клиента
					close(client.Send)
					delete(m.clients, client.ID)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Stop останавливает Run и закрывает все соединения
func (m *Manager) Stop() {
	close(m.done)
}

// ClientCount - сколько клиентов подключено
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// RegisterClient регистрирует нового клиента
func (m *Manager) RegisterClient(client *Client) {
	select {
	case m.register <- client:
	case <-m.done:
	}
}

// UnregisterClient отключает клиента
func (m *Manager) UnregisterClient(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// Broadcast отправляет сообщение всем клиентам.
// Если очередь переполнена, сообщение отбрасывается: статус не должен тормозить камеру.
func (m *Manager) Broadcast(message Message) {
	select {
	case m.broadcast <- message:
	default:
		log.Printf("⚠️  WebSocket: очередь переполнена, сообщение %s отброшено", message.Type)
	}
}

// BroadcastCameraStatus отправляет изменение статуса камеры
func (m *Manager) BroadcastCameraStatus(status interface{}) {
	m.Broadcast(Message{
		Type:    MessageTypeCameraStatus,
		Payload: status,
	})
}

// BroadcastCaptureState отправляет новое состояние сценария съёмки
func (m *Manager) BroadcastCaptureState(state interface{}) {
	m.Broadcast(Message{
		Type:    MessageTypeCaptureState,
		Payload: state,
	})
}

// BroadcastTaskUpdate отправляет обновление по задаче
func (m *Manager) BroadcastTaskUpdate(taskID, status string, payload interface{}) {
	m.Broadcast(Message{
		Type:   MessageTypeTaskUpdate,
		TaskID: taskID,
		Payload: map[string]interface{}{
			"status": status,
			"data":   payload,
		},
	})
}

// BroadcastTaskProgress отправляет прогресс генерации
func (m *Manager) BroadcastTaskProgress(taskID string, current, total int, stage string) {
	percent := 0.0
	if total > 0 {
		percent = float64(current) / float64(total) * 100
	}
	m.Broadcast(Message{
		Type:   MessageTypeTaskProgress,
		TaskID: taskID,
		Payload: map[string]interface{}{
			"current": current,
			"total":   total,
			"stage":   stage,
			"percent": percent,
		},
	})
}

// BroadcastStatsUpdate отправляет обновление статистики
func (m *Manager) BroadcastStatsUpdate(stats interface{}) {
	m.Broadcast(Message{
		Type:    MessageTypeStatsUpdate,
		Payload: stats,
	})
}

// ReadPump читает сообщения от клиента
func (c *Client) ReadPump(manager *Manager) {
	defer func() {
		manager.UnregisterClient(c)
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		log.Printf("Received from client %s: %s", c.ID, string(message))
	}
}

// WritePump отправляет сообщения клиенту
func (c *Client) WritePump() {
	defer func() {
		c.Conn.Close()
	}()

	for message := range c.Send {
		data, err := json.Marshal(message)
		if err != nil {
			log.Printf("Error marshaling message: %v", err)
			continue
		}

		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
