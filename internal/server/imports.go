package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	docdomain "github.com/smartcontab/fiscalcore/internal/fiscaldoc/domain"
	docservice "github.com/smartcontab/fiscalcore/internal/fiscaldoc/service"
	"github.com/smartcontab/fiscalcore/pkg/db/pagination"
)

// ImportDocument accepts the issuer's XML document body, normalizes it
// and commits the import. A parse failure aborts with nothing saved.
func (s *Server) ImportDocument(c *gin.Context) {
	doc, err := docservice.Decode(c.Request.Body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	receipt, err := s.docSvc.Import(c.Request.Context(), doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": receipt})
}

func (s *Server) GetImport(c *gin.Context) {
	resp, err := s.docSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("receipt_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListImports(c *gin.Context) {
	var query struct {
		pagination.Pagination

		IssuerTaxID string `form:"issuer_tax_id"`
		SortBy      string `form:"sort_by"`
		OrderBy     string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.docSvc.List(c.Request.Context(), docdomain.ListRequest{
		Pagination:  query.Pagination,
		IssuerTaxID: strings.TrimSpace(query.IssuerTaxID),
		SortBy:      strings.TrimSpace(query.SortBy),
		OrderBy:     strings.TrimSpace(query.OrderBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
