package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yeremiapane/qrmenu/middlewares"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/services"
	"github.com/yeremiapane/qrmenu/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// CreateOrder -> POST /tables/:table_id/orders (customer)
func (oc *OrderController) CreateOrder(c *gin.Context) {
	tableID, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	var input services.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.Create(c.Request.Context(), tableID, input)
	if err != nil {
		respondServiceError(c, err, "place order")
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order placed", order)
}

// SessionOrders -> GET /tables/:table_id/sessions/:session_id/orders (customer)
func (oc *OrderController) SessionOrders(c *gin.Context) {
	tableID, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	session, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid session ID"))
		return
	}

	orders, err := oc.Orders.ListForSession(c.Request.Context(), tableID, session)
	if err != nil {
		respondServiceError(c, err, "list session orders")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Orders for this table", orders)
}

// GetAllOrders supports ?status= ?table_id= ?session= ?from= ?to= ?limit=.
// Dates are RFC3339 or YYYY-MM-DD.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	filter, err := parseOrderFilter(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	orders, err := oc.Orders.List(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, filter)
	if err != nil {
		respondServiceError(c, err, "list orders")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func parseOrderFilter(c *gin.Context) (services.OrderFilter, error) {
	var filter services.OrderFilter
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseOrderStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if raw := c.Query("table_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, errors.New("Invalid table_id")
		}
		tableID := uint(id)
		filter.TableID = &tableID
	}
	if raw := c.Query("session"); raw != "" {
		session, err := uuid.Parse(raw)
		if err != nil {
			return filter, errors.New("Invalid session")
		}
		filter.Session = &session
	}
	if raw := c.Query("from"); raw != "" {
		from, err := parseDate(raw)
		if err != nil {
			return filter, errors.New("Invalid from date")
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := parseDate(raw)
		if err != nil {
			return filter, errors.New("Invalid to date")
		}
		filter.To = &to
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, errors.New("Invalid limit")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.Local)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Orders.Get(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id)
	if err != nil {
		respondServiceError(c, err, "load order")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	next, err := models.ParseOrderStatus(body.Status)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.UpdateStatus(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id, next)
	if err != nil {
		respondServiceError(c, err, "update order status")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

func (oc *OrderController) DeleteOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	if err := oc.Orders.Delete(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id); err != nil {
		respondServiceError(c, err, "delete order")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order deleted", nil)
}
