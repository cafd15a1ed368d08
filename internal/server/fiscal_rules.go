package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	ruledomain "github.com/smartcontab/fiscalcore/internal/fiscalrule/domain"
	"github.com/smartcontab/fiscalcore/pkg/db/pagination"
)

type createFiscalRuleRequest struct {
	Jurisdiction       string `json:"jurisdiction"`
	OperationCode      string `json:"operation_code"`
	EntryCode          string `json:"entry_code"`
	ExitCodeInternal   string `json:"exit_code_internal"`
	ExitCodeInterstate string `json:"exit_code_interstate"`

	IcmsCST   string `json:"icms_cst"`
	IpiCST    string `json:"ipi_cst"`
	PisCST    string `json:"pis_cst"`
	CofinsCST string `json:"cofins_cst"`

	IcmsRate   *decimal.Decimal `json:"icms_rate"`
	IpiRate    *decimal.Decimal `json:"ipi_rate"`
	PisRate    *decimal.Decimal `json:"pis_rate"`
	CofinsRate *decimal.Decimal `json:"cofins_rate"`
}

type updateFiscalRuleRequest struct {
	EntryCode          *string `json:"entry_code,omitempty"`
	ExitCodeInternal   *string `json:"exit_code_internal,omitempty"`
	ExitCodeInterstate *string `json:"exit_code_interstate,omitempty"`

	IcmsCST   *string `json:"icms_cst,omitempty"`
	IpiCST    *string `json:"ipi_cst,omitempty"`
	PisCST    *string `json:"pis_cst,omitempty"`
	CofinsCST *string `json:"cofins_cst,omitempty"`

	IcmsRate   *decimal.Decimal `json:"icms_rate,omitempty"`
	IpiRate    *decimal.Decimal `json:"ipi_rate,omitempty"`
	PisRate    *decimal.Decimal `json:"pis_rate,omitempty"`
	CofinsRate *decimal.Decimal `json:"cofins_rate,omitempty"`
}

func (s *Server) CreateFiscalRule(c *gin.Context) {
	var req createFiscalRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ruleSvc.Create(c.Request.Context(), ruledomain.CreateRequest{
		Jurisdiction:       strings.TrimSpace(req.Jurisdiction),
		OperationCode:      strings.TrimSpace(req.OperationCode),
		EntryCode:          strings.TrimSpace(req.EntryCode),
		ExitCodeInternal:   strings.TrimSpace(req.ExitCodeInternal),
		ExitCodeInterstate: strings.TrimSpace(req.ExitCodeInterstate),
		IcmsCST:            strings.TrimSpace(req.IcmsCST),
		IpiCST:             strings.TrimSpace(req.IpiCST),
		PisCST:             strings.TrimSpace(req.PisCST),
		CofinsCST:          strings.TrimSpace(req.CofinsCST),
		IcmsRate:           derefDecimal(req.IcmsRate),
		IpiRate:            derefDecimal(req.IpiRate),
		PisRate:            derefDecimal(req.PisRate),
		CofinsRate:         derefDecimal(req.CofinsRate),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateFiscalRule(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req updateFiscalRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ruleSvc.Update(c.Request.Context(), ruledomain.UpdateRequest{
		ID:                 id,
		EntryCode:          req.EntryCode,
		ExitCodeInternal:   req.ExitCodeInternal,
		ExitCodeInterstate: req.ExitCodeInterstate,
		IcmsCST:            req.IcmsCST,
		IpiCST:             req.IpiCST,
		PisCST:             req.PisCST,
		CofinsCST:          req.CofinsCST,
		IcmsRate:           req.IcmsRate,
		IpiRate:            req.IpiRate,
		PisRate:            req.PisRate,
		CofinsRate:         req.CofinsRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetFiscalRule(c *gin.Context) {
	resp, err := s.ruleSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListFiscalRules(c *gin.Context) {
	var query struct {
		pagination.Pagination

		Jurisdiction  string `form:"jurisdiction"`
		OperationCode string `form:"operation_code"`
		SortBy        string `form:"sort_by"`
		OrderBy       string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ruleSvc.List(c.Request.Context(), ruledomain.ListRequest{
		Pagination:    query.Pagination,
		Jurisdiction:  strings.TrimSpace(query.Jurisdiction),
		OperationCode: strings.TrimSpace(query.OperationCode),
		SortBy:        strings.TrimSpace(query.SortBy),
		OrderBy:       strings.TrimSpace(query.OrderBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ResolveFiscalRule runs the matching precedence for a jurisdiction and
// operation code. A missing rule is a normal outcome and comes back as
// matched=false, not an error.
func (s *Server) ResolveFiscalRule(c *gin.Context) {
	jurisdiction := strings.TrimSpace(c.Query("jurisdiction"))
	operationCode := strings.TrimSpace(c.Query("operation_code"))
	if operationCode == "" {
		AbortWithError(c, newValidationError("operation_code", "invalid_operation_code", "operation_code is required"))
		return
	}

	rule, err := s.resolver.Resolve(c.Request.Context(), jurisdiction, operationCode)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rule == nil {
		c.JSON(http.StatusOK, gin.H{"matched": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matched": true, "data": rule})
}

func derefDecimal(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}
