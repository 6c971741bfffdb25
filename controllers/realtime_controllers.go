package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yeremiapane/qrmenu/middlewares"
	"github.com/yeremiapane/qrmenu/realtime"
	"github.com/yeremiapane/qrmenu/services"
	"github.com/yeremiapane/qrmenu/utils"
)

// RealtimeController subscribes websocket clients to order updates.
type RealtimeController struct {
	Hub    *realtime.Hub
	Tables *services.TableService
}

func NewRealtimeController(hub *realtime.Hub, tables *services.TableService) *RealtimeController {
	return &RealtimeController{Hub: hub, Tables: tables}
}

// EstablishmentSocket -> kitchen and floor staff dashboards
func (rc *RealtimeController) EstablishmentSocket(c *gin.Context) {
	est := middlewares.CurrentEstablishment(c)
	rc.Hub.Serve(c, realtime.EstablishmentTopic(est.ID))
}

// SessionSocket -> diners following their own orders
func (rc *RealtimeController) SessionSocket(c *gin.Context) {
	tableID, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	session, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid session ID"))
		return
	}
	if _, err := rc.Tables.CheckSession(c.Request.Context(), tableID, session); err != nil {
		respondServiceError(c, err, "check table session")
		return
	}
	rc.Hub.Serve(c, realtime.SessionTopic(session))
}
