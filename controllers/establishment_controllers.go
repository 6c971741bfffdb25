package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qrmenu/middlewares"
	"github.com/yeremiapane/qrmenu/services"
	"github.com/yeremiapane/qrmenu/utils"
)

type EstablishmentController struct {
	Establishments *services.EstablishmentService
}

func NewEstablishmentController(establishments *services.EstablishmentService) *EstablishmentController {
	return &EstablishmentController{Establishments: establishments}
}

func (ec *EstablishmentController) ListEstablishments(c *gin.Context) {
	list, err := ec.Establishments.ListForUser(c.Request.Context(), middlewares.CurrentUser(c))
	if err != nil {
		respondServiceError(c, err, "list establishments")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of establishments", list)
}

func (ec *EstablishmentController) CreateEstablishment(c *gin.Context) {
	var input services.EstablishmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	est, err := ec.Establishments.Create(c.Request.Context(), middlewares.CurrentUser(c).ID, input)
	if err != nil {
		respondServiceError(c, err, "create establishment")
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Establishment created", est)
}

// GetEstablishment returns the establishment already loaded by the access check.
func (ec *EstablishmentController) GetEstablishment(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Establishment detail", middlewares.CurrentEstablishment(c))
}

func (ec *EstablishmentController) UpdateEstablishment(c *gin.Context) {
	var input services.EstablishmentUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	est, err := ec.Establishments.Update(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, input)
	if err != nil {
		respondServiceError(c, err, "update establishment")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Establishment updated", est)
}

func (ec *EstablishmentController) DeleteEstablishment(c *gin.Context) {
	if err := ec.Establishments.Delete(c.Request.Context(), middlewares.CurrentEstablishment(c).ID); err != nil {
		respondServiceError(c, err, "delete establishment")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Establishment deleted", nil)
}
