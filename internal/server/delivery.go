package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/railzwaylabs/waterline/internal/auth/domain"
	"github.com/railzwaylabs/waterline/internal/clock"
	deliverydomain "github.com/railzwaylabs/waterline/internal/delivery/domain"
)

type scheduleRequest struct {
	Date string `json:"date"`
}

type listDeliveriesQuery struct {
	Search       string `form:"search"`
	Date         string `form:"date"`
	Status       string `form:"status"`
	Range        string `form:"range"`
	AssignedToMe string `form:"assigned_to_me"`
	// assignedToMe is the spelling older clients send.
	AssignedToMeLegacy string `form:"assignedToMe"`
}

// @Summary      Run schedule
// @Description  Materialize deliveries for every customer due on the given day (default tomorrow)
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header  string  false  "Idempotency Key"
// @Param        request body scheduleRequest false "Target date (YYYY-MM-DD or RFC3339)"
// @Success      200  {object}  DataResponse
// @Router       /deliveries/schedule [post]
func (s *Server) ScheduleDeliveries(c *gin.Context) {
	var req scheduleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	target := clock.StartOfDay(s.clock.Now(ctx)).AddDate(0, 0, 1)
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			AbortWithError(c, newValidationError("date", "invalid_date", "date must be YYYY-MM-DD or RFC3339"))
			return
		}
		target = parsed
	}

	created, err := s.scheduler.RunScheduleFor(ctx, target)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, created)
}

// @Summary      Complete delivery
// @Description  Record delivery entries, update the customer's balances and emit an invoice
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id               path    string  true   "Delivery ID"
// @Param        Idempotency-Key  header  string  false  "Idempotency Key"
// @Param        request body deliverydomain.CompleteRequest true "Completion"
// @Success      200  {object}  CompleteResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /deliveries/{id}/complete [patch]
func (s *Server) CompleteDelivery(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req deliverydomain.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, err)
		return
	}
	req.DeliveryID = id
	if actor, ok := actorFrom(c); ok {
		req.UserID = actor.UserRef()
	}

	result, err := s.deliverySvc.Complete(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, CompleteResponse{
		Data:    result.Delivery,
		Invoice: result.Invoice,
		History: result.History,
	})
}

// @Summary      List deliveries
// @Tags         deliveries
// @Produce      json
// @Security     BearerAuth
// @Param        search          query  string  false  "Customer name, address or phone"
// @Param        date            query  string  false  "Day (YYYY-MM-DD)"
// @Param        status          query  string  false  "Comma separated statuses"
// @Param        range           query  string  false  "today, tomorrow or week"
// @Param        assigned_to_me  query  bool    false  "Only deliveries assigned to the caller"
// @Success      200  {object}  DataResponse
// @Router       /deliveries [get]
func (s *Server) ListDeliveries(c *gin.Context) {
	var query listDeliveriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := deliverydomain.ListRequest{
		Search: strings.TrimSpace(query.Search),
		Range:  deliverydomain.DateRange(strings.ToLower(strings.TrimSpace(query.Range))),
	}

	if raw := strings.TrimSpace(query.Date); raw != "" {
		day, err := parseDate(raw)
		if err != nil {
			AbortWithError(c, newValidationError("date", "invalid_date", "date must be YYYY-MM-DD or RFC3339"))
			return
		}
		req.Date = &day
	}

	for _, raw := range strings.Split(query.Status, ",") {
		raw = strings.ToUpper(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		status := deliverydomain.Status(raw)
		if !status.Valid() {
			AbortWithError(c, newValidationError("status", "invalid_status", "unknown delivery status "+raw))
			return
		}
		req.Statuses = append(req.Statuses, status)
	}

	actor, _ := actorFrom(c)
	assignedToMe := query.AssignedToMe
	if assignedToMe == "" {
		assignedToMe = query.AssignedToMeLegacy
	}
	wantsOwn, err := parseOptionalBool(assignedToMe)
	if err != nil {
		AbortWithError(c, newValidationError("assigned_to_me", "invalid_bool", "assigned_to_me must be a boolean"))
		return
	}
	if actor.Role == authdomain.RoleDeliveryPerson || (wantsOwn != nil && *wantsOwn) {
		req.DeliveryPersonID = actor.UserRef()
		if req.DeliveryPersonID == nil {
			respondData(c, []deliverydomain.Delivery{})
			return
		}
	}

	items, err := s.deliverySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, items)
}

// @Summary      Create delivery
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header  string  false  "Idempotency Key"
// @Param        request body deliverydomain.CreateRequest true "Delivery"
// @Success      201  {object}  DataResponse
// @Router       /deliveries [post]
func (s *Server) CreateDelivery(c *gin.Context) {
	var req deliverydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.deliverySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, item)
}

// @Summary      Get delivery
// @Tags         deliveries
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Delivery ID"
// @Success      200  {object}  DataResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /deliveries/{id} [get]
func (s *Server) GetDelivery(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := s.deliverySvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, item)
}

// @Summary      Update delivery
// @Description  Update delivery fields; entries, when sent, replace the existing ones
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Delivery ID"
// @Param        request body deliverydomain.UpdateRequest true "Fields to change"
// @Success      200  {object}  DataResponse
// @Router       /deliveries/{id} [patch]
func (s *Server) UpdateDelivery(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req deliverydomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, err)
		return
	}
	req.ID = id

	item, err := s.deliverySvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, item)
}

// @Summary      Delete delivery
// @Description  Delete a delivery with its entries and invoices
// @Tags         deliveries
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Delivery ID"
// @Success      200  {object}  DataResponse
// @Router       /deliveries/{id} [delete]
func (s *Server) DeleteDelivery(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.deliverySvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"id": id})
}

// @Summary      Delivery history
// @Description  The customer's latest delivered deliveries
// @Tags         deliveries
// @Produce      json
// @Security     BearerAuth
// @Param        customerId   path      string  true  "Customer ID"
// @Success      200  {object}  DataResponse
// @Router       /deliveries/history/{customerId} [get]
func (s *Server) DeliveryHistory(c *gin.Context) {
	customerID, ok := pathID(c, "customerId")
	if !ok {
		return
	}
	items, err := s.deliverySvc.History(c.Request.Context(), customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, items)
}

func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := parseID(name, c.Param(name))
	if err != nil {
		AbortWithError(c, err)
		return 0, false
	}
	return id, true
}

func parseID(field, raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, newValidationError(field, "invalid_id", "invalid id")
	}
	return id, nil
}

// parseDate accepts a calendar day or an RFC3339 instant and returns the start
// of that day in UTC.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return clock.StartOfDay(t), nil
}
