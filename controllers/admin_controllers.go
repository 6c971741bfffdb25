package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qrmenu/middlewares"
	"github.com/yeremiapane/qrmenu/services"
	"github.com/yeremiapane/qrmenu/utils"
)

type AdminController struct {
	Dashboard     *services.DashboardService
	Subscriptions *services.SubscriptionService
}

func NewAdminController(dashboard *services.DashboardService, subscriptions *services.SubscriptionService) *AdminController {
	return &AdminController{Dashboard: dashboard, Subscriptions: subscriptions}
}

// GetDashboardStats -> today's numbers for one establishment
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	stats, err := ac.Dashboard.Stats(c.Request.Context(), middlewares.CurrentEstablishment(c).ID)
	if err != nil {
		respondServiceError(c, err, "load dashboard")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", stats)
}

func (ac *AdminController) GetSubscription(c *gin.Context) {
	sub, err := ac.Subscriptions.Current(c.Request.Context(), middlewares.CurrentUser(c).ID)
	if err != nil {
		respondServiceError(c, err, "load subscription")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Subscription", sub)
}

func (ac *AdminController) GetInvoices(c *gin.Context) {
	invoices, err := ac.Subscriptions.Invoices(c.Request.Context(), middlewares.CurrentUser(c).ID)
	if err != nil {
		respondServiceError(c, err, "list invoices")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of invoices", invoices)
}
