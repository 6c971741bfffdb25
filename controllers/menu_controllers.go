package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qrmenu/middlewares"
	"github.com/yeremiapane/qrmenu/services"
	"github.com/yeremiapane/qrmenu/utils"
)

type MenuController struct {
	Products *services.ProductService
	Menus    *services.MenuService
}

func NewMenuController(products *services.ProductService, menus *services.MenuService) *MenuController {
	return &MenuController{Products: products, Menus: menus}
}

// PublicMenu -> GET /menu/:slug, what customers see after scanning
func (mc *MenuController) PublicMenu(c *gin.Context) {
	menu, err := mc.Menus.PublicMenu(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondServiceError(c, err, "load menu")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu", menu)
}

// ListProducts supports ?category_id= and ?available=
func (mc *MenuController) ListProducts(c *gin.Context) {
	var filter services.ProductFilter
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid category_id"))
			return
		}
		categoryID := uint(id)
		filter.CategoryID = &categoryID
	}
	if raw := c.Query("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid available flag"))
			return
		}
		filter.Available = &available
	}

	products, err := mc.Products.List(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, filter)
	if err != nil {
		respondServiceError(c, err, "list products")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of products", products)
}

func (mc *MenuController) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "product_id")
	if !ok {
		return
	}
	product, err := mc.Products.Get(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id)
	if err != nil {
		respondServiceError(c, err, "load product")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product detail", product)
}

func (mc *MenuController) CreateProduct(c *gin.Context) {
	var input services.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	product, err := mc.Products.Create(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, input)
	if err != nil {
		respondServiceError(c, err, "create product")
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Product created", product)
}

func (mc *MenuController) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c, "product_id")
	if !ok {
		return
	}
	var input services.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	product, err := mc.Products.Update(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id, input)
	if err != nil {
		respondServiceError(c, err, "update product")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product updated", product)
}

// SetAvailability -> staff mark an item as sold out or back on
func (mc *MenuController) SetAvailability(c *gin.Context) {
	id, ok := paramID(c, "product_id")
	if !ok {
		return
	}
	var body struct {
		IsAvailable *bool `json:"is_available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	product, err := mc.Products.SetAvailability(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id, *body.IsAvailable)
	if err != nil {
		respondServiceError(c, err, "update availability")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Availability updated", product)
}

func (mc *MenuController) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c, "product_id")
	if !ok {
		return
	}
	if err := mc.Products.Delete(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id); err != nil {
		respondServiceError(c, err, "delete product")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product deleted", nil)
}

func (mc *MenuController) ImageUpload(c *gin.Context) {
	id, ok := paramID(c, "product_id")
	if !ok {
		return
	}
	var body struct {
		Filename string `json:"filename" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	upload, err := mc.Products.PresignImageUpload(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id, body.Filename)
	if err != nil {
		respondServiceError(c, err, "prepare image upload")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Upload the image with PUT to upload_url", upload)
}
