package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/railzwaylabs/waterline/internal/auth/domain"
)

const contextActorKey = "actor"

// AuthRequired accepts either a scheduler API key or a staff JWT in the
// Authorization header and attaches the resulting actor to the request.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var actor authdomain.Actor
		if s.apiKeys.Verify(token) {
			actor = schedulerActor()
		} else {
			verified, err := s.authSvc.VerifyToken(c.Request.Context(), token)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			actor = verified
		}

		c.Set(contextActorKey, actor)
		c.Request = c.Request.WithContext(authdomain.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequirePermission checks the actor's role against the RBAC policy.
func (s *Server) RequirePermission(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authorizer.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) (authdomain.Actor, bool) {
	v, ok := c.Get(contextActorKey)
	if !ok {
		return authdomain.Actor{}, false
	}
	actor, ok := v.(authdomain.Actor)
	return actor, ok
}

// @Summary      Login
// @Description  Exchange staff credentials for a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body authdomain.LoginRequest true "Credentials"
// @Success      200  {object}  DataResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/login [post]
func (s *Server) Login(c *gin.Context) {
	var req authdomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	resp, err := s.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  DataResponse
// @Router       /auth/me [get]
func (s *Server) Me(c *gin.Context) {
	actor, _ := actorFrom(c)
	if actor.UserID == 0 {
		respondData(c, gin.H{"role": actor.Role})
		return
	}
	user, err := s.authSvc.Get(c.Request.Context(), actor.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, user)
}

// @Summary      Create user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body authdomain.CreateUserRequest true "User"
// @Success      201  {object}  DataResponse
// @Router       /users [post]
func (s *Server) CreateUser(c *gin.Context) {
	var req authdomain.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, err)
		return
	}
	req.Role = authdomain.Role(strings.ToUpper(strings.TrimSpace(string(req.Role))))

	user, err := s.authSvc.CreateUser(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, user)
}

// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        role  query  string  false  "ADMIN or DELIVERY_PERSON"
// @Success      200  {object}  DataResponse
// @Router       /users [get]
func (s *Server) ListUsers(c *gin.Context) {
	var role *authdomain.Role
	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		r := authdomain.Role(strings.ToUpper(raw))
		if !r.Valid() {
			AbortWithError(c, newValidationError("role", "invalid_role", "role must be ADMIN or DELIVERY_PERSON"))
			return
		}
		role = &r
	}

	users, err := s.authSvc.List(c.Request.Context(), role)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, users)
}
