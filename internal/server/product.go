package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	productdomain "github.com/railzwaylabs/waterline/internal/product/domain"
	"github.com/railzwaylabs/waterline/pkg/db/pagination"
)

// @Summary      Create Product
// @Description  Create a new product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body productdomain.CreateRequest true "Create Product Request"
// @Success      201  {object}  DataResponse
// @Router       /products [post]
func (s *Server) CreateProduct(c *gin.Context) {
	var req productdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.productSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// @Summary      List Products
// @Description  List available products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        name       query  string  false  "Name"
// @Param        active     query  bool    false  "Active"
// @Param        page       query  int     false  "Page"
// @Param        page_size  query  int     false  "Page Size"
// @Success      200  {object}  ListResponse
// @Router       /products [get]
func (s *Server) ListProducts(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name   string `form:"name"`
		Active string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.productSvc.List(c.Request.Context(), productdomain.ListRequest{
		Name:   strings.TrimSpace(query.Name),
		Active: active,
		Page:   query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, resp.Products, &resp.PageInfo)
}

// @Summary      Get Product
// @Description  Get product by ID
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  DataResponse
// @Router       /products/{id} [get]
func (s *Server) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := s.productSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

// @Summary      Update Product
// @Description  Update product details
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Param        request body productdomain.UpdateRequest true "Update Product Request"
// @Success      200  {object}  DataResponse
// @Router       /products/{id} [patch]
func (s *Server) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req productdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, err)
		return
	}
	req.ID = id

	resp, err := s.productSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

// @Summary      Delete Product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  DataResponse
// @Router       /products/{id} [delete]
func (s *Server) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.productSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"id": id})
}
