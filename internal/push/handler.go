package push

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/crewdesk/realtime/internal/errors"
)

// DispatchRequest is the body of POST /internal/push. Either an explicit
// token list or a user id (resolved through the token registry) selects the
// targets.
type DispatchRequest struct {
	Tokens  []string `json:"tokens"`
	UserID  string   `json:"userId"`
	Payload Payload  `json:"payload"`
}

// Handler exposes the dispatcher to the origin server over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates a push HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Dispatch handles POST /internal/push. The response always carries the
// dispatch result as a value; a no-op dispatch yields an empty result with
// 200. Push failure never maps to a 5xx: the caller's business operation
// must not be aborted by it.
func (h *Handler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.AbortWithBadRequest(c, "invalid request body", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if req.Payload.Title == "" && req.Payload.Body == "" {
		apierrors.AbortWithBadRequest(c, "payload requires a title or body", nil)
		return
	}

	var result *DispatchResult
	var err error
	if len(req.Tokens) > 0 {
		result, err = h.service.dispatcher.SendPush(c.Request.Context(), req.Tokens, req.Payload)
	} else if req.UserID != "" {
		result, err = h.service.SendToUser(c.Request.Context(), req.UserID, req.Payload)
	} else {
		apierrors.AbortWithBadRequest(c, "tokens or userId required", nil)
		return
	}
	if err != nil {
		apierrors.AbortWithInternal(c, "dispatch failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if result == nil {
		result = &DispatchResult{}
	}
	c.JSON(http.StatusOK, result)
}
