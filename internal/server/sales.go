package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	saledomain "github.com/smartcontab/fiscalcore/internal/sale/domain"
	"github.com/smartcontab/fiscalcore/pkg/db/pagination"
)

type createSaleRequest struct {
	Counterparty             string           `json:"counterparty"`
	CounterpartyJurisdiction string           `json:"counterparty_jurisdiction"`
	Discount                 *decimal.Decimal `json:"discount"`
	Freight                  *decimal.Decimal `json:"freight"`
}

type addSaleLineRequest struct {
	CatalogItemID string          `json:"catalog_item_id"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

type addSalePaymentRequest struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) CreateSale(c *gin.Context) {
	var req createSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.Create(c.Request.Context(), saledomain.CreateRequest{
		Counterparty:             strings.TrimSpace(req.Counterparty),
		CounterpartyJurisdiction: strings.TrimSpace(req.CounterpartyJurisdiction),
		Discount:                 derefDecimal(req.Discount),
		Freight:                  derefDecimal(req.Freight),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetSale(c *gin.Context) {
	resp, err := s.saleSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSales(c *gin.Context) {
	var query struct {
		pagination.Pagination

		Status  string `form:"status"`
		SortBy  string `form:"sort_by"`
		OrderBy string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.List(c.Request.Context(), saledomain.ListRequest{
		Pagination: query.Pagination,
		Status:     strings.TrimSpace(query.Status),
		SortBy:     strings.TrimSpace(query.SortBy),
		OrderBy:    strings.TrimSpace(query.OrderBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddSaleLine(c *gin.Context) {
	var req addSaleLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.AddLine(c.Request.Context(), strings.TrimSpace(c.Param("id")), saledomain.LineRequest{
		CatalogItemID: strings.TrimSpace(req.CatalogItemID),
		Description:   strings.TrimSpace(req.Description),
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveSaleLine(c *gin.Context) {
	resp, err := s.saleSvc.RemoveLine(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("line_id")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddSalePayment(c *gin.Context) {
	var req addSalePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.AddPayment(c.Request.Context(), strings.TrimSpace(c.Param("id")), saledomain.PaymentRequest{
		Method: strings.TrimSpace(req.Method),
		Amount: req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SaleTaxPreview(c *gin.Context) {
	resp, err := s.saleSvc.TaxPreview(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) FinalizeSale(c *gin.Context) {
	resp, err := s.saleSvc.Finalize(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
