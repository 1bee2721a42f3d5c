// Package rest exposes the social graph over HTTP with gin.
package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"socialgraph/internal/social"
	apperrors "socialgraph/pkg/errors"
	"socialgraph/pkg/logger"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Handler serves the REST API over the domain repository.
type Handler struct {
	repo   *social.Repository
	logger *zap.Logger
}

// NewHandler creates a REST handler.
func NewHandler(repo *social.Repository) *Handler {
	return &Handler{repo: repo, logger: logger.Get()}
}

// RegisterRoutes mounts all user, friendship and referral endpoints.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	users := r.Group("/users")
	{
		users.POST("", h.createUser)
		users.GET("", h.listUsers)
		users.HEAD("", h.usersCount)
		users.GET("/email/:email", h.getUserByEmail)
		users.GET("/:uuid", h.getUser)
		users.PUT("/:uuid", h.updateUser)
		users.PATCH("/:uuid", h.patchUser)
		users.DELETE("/:uuid", h.deleteUser)

		users.POST("/:uuid/friends/:other", h.createFriendship)
		users.GET("/:uuid/friends", h.listFriends)
		users.DELETE("/:uuid/friends/:other", h.removeFriendship)
		users.GET("/:uuid/friends/:other/status", h.friendshipStatus)
		users.GET("/:uuid/friends/:other/mutual", h.mutualFriends)

		users.GET("/:uuid/referrals", h.referralStats)
		users.GET("/:uuid/referral-code", h.referralCode)
	}
}

type createUserRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Name         string `json:"name" binding:"required"`
	IsActive     *bool  `json:"is_active"`
	ReferralCode string `json:"referral_code"`
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	user, err := h.repo.CreateUser(c.Request.Context(), social.CreateUserInput{
		Email:        req.Email,
		Name:         req.Name,
		IsActive:     isActive,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) listUsers(c *gin.Context) {
	page, ok := h.intQuery(c, "page", 1)
	if !ok {
		return
	}
	pageSize, ok := h.intQuery(c, "page_size", defaultPageSize)
	if !ok {
		return
	}
	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be at least 1"})
		return
	}
	if pageSize < 1 || pageSize > maxPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page_size must be between 1 and 100"})
		return
	}

	filter, ok := h.userFilter(c)
	if !ok {
		return
	}

	users, err := h.repo.ListUsersOffset(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		h.writeError(c, err)
		return
	}
	total := h.repo.CountUsersFiltered(c.Request.Context(), filter)

	c.JSON(http.StatusOK, offsetListResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    users,
	})
}

func (h *Handler) usersCount(c *gin.Context) {
	count, err := h.repo.CountUsers(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(count, 10))
	c.Status(http.StatusOK)
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.repo.GetUser(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) getUserByEmail(c *gin.Context) {
	user, err := h.repo.GetUserByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	IsActive *bool  `json:"is_active"`
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	user, err := h.repo.UpdateUser(c.Request.Context(), c.Param("uuid"), req.Email, req.Name, isActive)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type patchUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
}

func (h *Handler) patchUser(c *gin.Context) {
	var req patchUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.repo.PatchUser(c.Request.Context(), c.Param("uuid"), social.UserPatch{
		Email:    req.Email,
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.repo.DeleteUser(c.Request.Context(), c.Param("uuid")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) createFriendship(c *gin.Context) {
	friendship, err := h.repo.CreateFriendship(c.Request.Context(), c.Param("uuid"), c.Param("other"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, friendship)
}

func (h *Handler) listFriends(c *gin.Context) {
	first, after, ok := h.cursorArgs(c)
	if !ok {
		return
	}

	page, err := h.repo.GetFriends(c.Request.Context(), c.Param("uuid"), first, after)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cursorListResponse(page))
}

func (h *Handler) removeFriendship(c *gin.Context) {
	removed, err := h.repo.RemoveFriendship(c.Request.Context(), c.Param("uuid"), c.Param("other"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Friendship not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) friendshipStatus(c *gin.Context) {
	status, err := h.repo.GetFriendshipStatus(c.Request.Context(), c.Param("uuid"), c.Param("other"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) mutualFriends(c *gin.Context) {
	first, after, ok := h.cursorArgs(c)
	if !ok {
		return
	}

	page, err := h.repo.MutualFriends(c.Request.Context(), c.Param("uuid"), c.Param("other"), first, after)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cursorListResponse(page))
}

func (h *Handler) referralStats(c *gin.Context) {
	stats, err := h.repo.GetReferralStats(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) referralCode(c *gin.Context) {
	user, err := h.repo.GetUser(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"referral_code": user.ReferralCode})
}

// Helpers

func (h *Handler) intQuery(c *gin.Context, name string, defaultValue int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return value, true
}

// cursorArgs parses the cursor-style first/after pair.
func (h *Handler) cursorArgs(c *gin.Context) (int, string, bool) {
	first, ok := h.intQuery(c, "first", defaultPageSize)
	if !ok {
		return 0, "", false
	}
	if first < 1 || first > maxPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "first must be between 1 and 100"})
		return 0, "", false
	}
	return first, c.Query("after"), true
}

func (h *Handler) userFilter(c *gin.Context) (social.UserFilter, bool) {
	filter := social.UserFilter{
		NameContains:  c.Query("name_contains"),
		EmailContains: c.Query("email_contains"),
		ReferredBy:    c.Query("referred_by"),
	}

	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_active must be a boolean"})
			return social.UserFilter{}, false
		}
		filter.IsActive = &active
	}
	for name, dst := range map[string]**time.Time{
		"created_after":  &filter.CreatedAfter,
		"created_before": &filter.CreatedBefore,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an RFC3339 timestamp"})
			return social.UserFilter{}, false
		}
		*dst = &t
	}
	return filter, true
}

// writeError translates typed repository failures into HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
