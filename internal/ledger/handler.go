package ledger

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sellerdesk/backend/internal/middleware"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/rbac"
	"github.com/sellerdesk/backend/pkg/response"
	"github.com/sellerdesk/backend/pkg/utils"
)

// Handler handles ledger HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a ledger handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// PostEntryRequest is the body for POST /ledger.
type PostEntryRequest struct {
	Account     string `json:"account" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Memo        string `json:"memo"`
}

// List handles GET /ledger.
func (h *Handler) List(c *gin.Context) {
	s := middleware.Scope(c)
	limit, offset := utils.Page(c)
	list, err := h.repo.List(c.Request.Context(), s.OrgID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Balances handles GET /ledger/balances.
func (h *Handler) Balances(c *gin.Context) {
	s := middleware.Scope(c)
	list, err := h.repo.Balances(c.Request.Context(), s.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Post handles POST /ledger. Manager and above.
func (h *Handler) Post(c *gin.Context) {
	s, err := rbac.Allow(middleware.Scope(c), rbac.OpWriteRecords)
	if err != nil {
		response.Error(c, err)
		return
	}
	var body PostEntryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "account and non-zero amount_cents required")
		return
	}
	e, err := h.repo.Post(c.Request.Context(), s.OrgID, &models.LedgerEntry{
		Account:     strings.TrimSpace(body.Account),
		AmountCents: body.AmountCents,
		Memo:        body.Memo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, e)
}
