package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smartcontab/fiscalcore/internal/catalog/domain"
	"github.com/smartcontab/fiscalcore/pkg/db/pagination"
)

func (s *Server) ListCatalogItems(c *gin.Context) {
	var query struct {
		pagination.Pagination

		SupplierCode   string `form:"supplier_code"`
		Classification string `form:"classification"`
		NeedsReview    string `form:"needs_review"`
		SortBy         string `form:"sort_by"`
		OrderBy        string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	needsReview, err := parseOptionalBool(query.NeedsReview)
	if err != nil {
		AbortWithError(c, newValidationError("needs_review", "invalid_needs_review", "invalid needs_review"))
		return
	}

	items, err := s.items.List(c.Request.Context(), catalogdomain.ListRequest{
		Pagination:     query.Pagination,
		SupplierCode:   strings.TrimSpace(query.SupplierCode),
		Classification: strings.TrimSpace(query.Classification),
		NeedsReview:    needsReview,
		SortBy:         strings.TrimSpace(query.SortBy),
		OrderBy:        strings.TrimSpace(query.OrderBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetCatalogItem(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, catalogdomain.ErrInvalidID)
		return
	}

	item, err := s.items.FindByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if item == nil {
		AbortWithError(c, catalogdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func parseOptionalBool(raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
