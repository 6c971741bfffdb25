package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qrmenu/middlewares"
	"github.com/yeremiapane/qrmenu/services"
	"github.com/yeremiapane/qrmenu/utils"
)

type CategoryController struct {
	Categories *services.CategoryService
}

func NewCategoryController(categories *services.CategoryService) *CategoryController {
	return &CategoryController{Categories: categories}
}

func (cc *CategoryController) ListCategories(c *gin.Context) {
	categories, err := cc.Categories.List(c.Request.Context(), middlewares.CurrentEstablishment(c).ID)
	if err != nil {
		respondServiceError(c, err, "list categories")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of categories", categories)
}

func (cc *CategoryController) CreateCategory(c *gin.Context) {
	var input services.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	category, err := cc.Categories.Create(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, input)
	if err != nil {
		respondServiceError(c, err, "create category")
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}

func (cc *CategoryController) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "category_id")
	if !ok {
		return
	}
	var input services.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	category, err := cc.Categories.Update(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id, input)
	if err != nil {
		respondServiceError(c, err, "update category")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category updated", category)
}

func (cc *CategoryController) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "category_id")
	if !ok {
		return
	}
	if err := cc.Categories.Delete(c.Request.Context(), middlewares.CurrentEstablishment(c).ID, id); err != nil {
		respondServiceError(c, err, "delete category")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category deleted", nil)
}
