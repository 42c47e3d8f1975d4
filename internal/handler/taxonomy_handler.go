package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/service"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
	"github.com/noor-edu/archive-api/pkg/response"
)

// TaxonomyHandler exposes CRUD endpoints for the content taxonomy:
// sections, cards, item types, hashtag aliases and their mappings.
type TaxonomyHandler struct {
	service *service.TaxonomyService
}

// NewTaxonomyHandler creates a new handler.
func NewTaxonomyHandler(svc *service.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{service: svc}
}

func (h *TaxonomyHandler) CreateSection(c *gin.Context) {
	var req dto.SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid section payload"))
		return
	}
	section, err := h.service.CreateSection(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

func (h *TaxonomyHandler) ListSections(c *gin.Context) {
	sections, err := h.service.ListSections(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

func (h *TaxonomyHandler) UpdateSection(c *gin.Context) {
	var req dto.SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid section payload"))
		return
	}
	section, err := h.service.UpdateSection(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

func (h *TaxonomyHandler) DisableSection(c *gin.Context) {
	if err := h.service.DisableSection(c.Request.Context(), c.Param("key")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *TaxonomyHandler) CreateCard(c *gin.Context) {
	var req dto.CardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid card payload"))
		return
	}
	card, err := h.service.CreateCard(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, card)
}

func (h *TaxonomyHandler) ListCards(c *gin.Context) {
	cards, err := h.service.ListCards(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cards, nil)
}

func (h *TaxonomyHandler) CreateItemType(c *gin.Context) {
	var req dto.ItemTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid item type payload"))
		return
	}
	itemType, err := h.service.CreateItemType(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, itemType)
}

func (h *TaxonomyHandler) ListItemTypes(c *gin.Context) {
	itemTypes, err := h.service.ListItemTypes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, itemTypes, nil)
}

func (h *TaxonomyHandler) CreateAlias(c *gin.Context) {
	var req dto.AliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid alias payload"))
		return
	}
	alias, err := h.service.CreateAlias(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, alias)
}

func (h *TaxonomyHandler) DeleteAlias(c *gin.Context) {
	if err := h.service.DeleteAlias(c.Request.Context(), c.Param("alias")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *TaxonomyHandler) CreateMapping(c *gin.Context) {
	var req dto.MappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mapping payload"))
		return
	}
	mapping, err := h.service.CreateMapping(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mapping)
}

func (h *TaxonomyHandler) EnableSubjectSection(c *gin.Context) {
	var req dto.SubjectSectionEnableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject section payload"))
		return
	}
	if err := h.service.EnableSubjectSection(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
