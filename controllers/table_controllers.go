package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qrmenu/middlewares"
	"github.com/yeremiapane/qrmenu/services"
	"github.com/yeremiapane/qrmenu/utils"
)

type TableController struct {
	Tables *services.TableService
}

func NewTableController(tables *services.TableService) *TableController {
	return &TableController{Tables: tables}
}

func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Tables.List(c.Request.Context(), middlewares.CurrentEstablishment(c).ID)
	if err != nil {
		respondServiceError(c, err, "list tables")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) GetTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Tables.Get(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id)
	if err != nil {
		respondServiceError(c, err, "load table")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

func (tc *TableController) CreateTable(c *gin.Context) {
	var input services.TableInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Tables.Create(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, input)
	if err != nil {
		respondServiceError(c, err, "create table")
		return
	}
	utils.InfoLogger.Printf("New table created: %s (establishment=%d)", table.Number, table.EstablishmentID)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

func (tc *TableController) UpdateTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	var input services.TableInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Tables.Update(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id, input)
	if err != nil {
		respondServiceError(c, err, "update table")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

func (tc *TableController) DeleteTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	if err := tc.Tables.Delete(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id); err != nil {
		respondServiceError(c, err, "delete table")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table deleted", nil)
}

func (tc *TableController) OpenSession(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Tables.OpenSession(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id)
	if err != nil {
		respondServiceError(c, err, "open table session")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table session opened", table)
}

// CloseSession -> POST .../close?force=true cancels leftover orders
func (tc *TableController) CloseSession(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	table, err := tc.Tables.CloseSession(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id, force)
	if err != nil {
		respondServiceError(c, err, "close table session")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table session closed", table)
}

func (tc *TableController) QRCode(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	qr, err := tc.Tables.MenuURL(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id)
	if err != nil {
		respondServiceError(c, err, "build table QR URL")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table QR URL", qr)
}

// Scan -> public lookup behind a table's QR code
func (tc *TableController) Scan(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	scan, err := tc.Tables.Scan(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "scan table")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table", scan)
}
