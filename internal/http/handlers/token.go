package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enrichment-backend/internal/http/response"
	"github.com/yungbote/enrichment-backend/internal/services"
)

type TokenHandler struct {
	auth services.AuthService
}

func NewTokenHandler(auth services.AuthService) *TokenHandler {
	return &TokenHandler{auth: auth}
}

type tokenRequest struct {
	GrantType    string `form:"grant_type" json:"grant_type"`
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
}

// POST /api/token
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.GrantType != "" && req.GrantType != "client_credentials" {
		response.RespondError(c, http.StatusBadRequest, "unsupported_grant_type", errUnsupportedGrant)
		return
	}
	tok, err := h.auth.IssueToken(c.Request.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, tok)
}
