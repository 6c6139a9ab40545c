package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event types pushed to kitchen/admin displays.
const (
	EventNewOrder           = "new_order"
	EventOrderStatusUpdated = "order_status_updated"
	EventNewTreat           = "new_treat"
	EventTreatStatusUpdated = "treat_status_updated"
	EventMenuUpdated        = "menu_updated"
)

// Publisher is what the services emit through. Delivery is best-effort and
// at-most-once: the durable mutation has already succeeded by the time an
// event is published, so implementations must never fail the caller.
type Publisher interface {
	Publish(room, event string, data interface{})
}

// RestaurantRoom names the per-restaurant fan-out room.
func RestaurantRoom(restaurantID uint) string {
	return fmt.Sprintf("restaurant_%d", restaurantID)
}

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds every connected display client grouped by room.
type Hub struct {
	rooms  map[string]map[*websocket.Conn]bool
	mutex  sync.Mutex
	logger *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*websocket.Conn]bool),
		logger: logger,
	}
}

// RegisterClient adds a connection to a room.
func (h *Hub) RegisterClient(room string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*websocket.Conn]bool)
	}
	h.rooms[room][conn] = true
}

// UnregisterClient removes a connection and closes it.
func (h *Hub) UnregisterClient(room string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if clients, ok := h.rooms[room]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	conn.Close()
}

// Publish sends an event to every client in the room. Write failures are
// logged and skipped; the triggering mutation is already durable.
func (h *Hub) Publish(room, event string, data interface{}) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients, ok := h.rooms[room]
	if !ok || len(clients) == 0 {
		return
	}

	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		h.logger.Printf("Error marshaling %s event for room %s: %v", event, room, err)
		return
	}

	for conn := range clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Printf("Error sending %s event to a client in %s: %v", event, room, err)
			continue
		}
	}
}
