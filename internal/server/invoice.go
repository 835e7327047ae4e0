package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/railzwaylabs/waterline/internal/invoice/domain"
)

// @Summary      List invoices
// @Description  Latest invoices with their customer
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        customer_id  query  string  false  "Customer ID"
// @Param        status       query  string  false  "PAID or UNPAID"
// @Success      200  {object}  DataResponse
// @Router       /invoices [get]
func (s *Server) ListInvoices(c *gin.Context) {
	filter := invoicedomain.ListFilter{Limit: invoicedomain.DefaultListLimit}

	if raw := strings.TrimSpace(c.Query("customer_id")); raw != "" {
		id, err := parseID("customer_id", raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		filter.CustomerID = &id
	}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		status := invoicedomain.Status(raw)
		if status != invoicedomain.StatusPaid && status != invoicedomain.StatusUnpaid {
			AbortWithError(c, newValidationError("status", "invalid_status", "status must be PAID or UNPAID"))
			return
		}
		filter.Status = &status
	}

	items, err := s.invoiceSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, items)
}

// @Summary      Get invoice
// @Description  Invoice with customer and delivery entries
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  DataResponse
// @Router       /invoices/{id} [get]
func (s *Server) GetInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := s.invoiceSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, detail)
}

// @Summary      Invoice PDF
// @Tags         invoices
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {file}  file
// @Router       /invoices/{id}/pdf [get]
func (s *Server) GetInvoicePDF(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pdf, err := s.invoiceSvc.RenderPDF(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", "invoice-"+id.String()+".pdf"))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
