package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/qrdine/table-order-app/realtime"
	"github.com/qrdine/table-order-app/utils"
)

var upgrader = websocket.Upgrader{
	// Kitchen tablets and admin dashboards connect from their own origins;
	// the room carries no customer credentials, so any origin may subscribe.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSController struct {
	Hub *realtime.Hub
}

func NewWSController(hub *realtime.Hub) *WSController {
	return &WSController{Hub: hub}
}

// Subscribe -> kitchen/admin display joins its restaurant's room
func (wc *WSController) Subscribe(c *gin.Context) {
	restaurantID, err := strconv.Atoi(c.Param("restaurant_id"))
	if err != nil || restaurantID <= 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid restaurant id"))
		return
	}
	room := realtime.RestaurantRoom(uint(restaurantID))

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	wc.Hub.RegisterClient(room, ws)

	// Keep reading until the peer goes away; incoming payloads are ignored.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	wc.Hub.UnregisterClient(room, ws)
}
