// Package api serves read-only HTTP API of the bank ledger.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/tokenbank/bank-contract/internal/journal"
	"github.com/tokenbank/bank-contract/internal/metrics"
	"github.com/tokenbank/bank-contract/rpc/bank"
	"go.uber.org/zap"
)

// maxEventsLimit caps the number of journal entries per request.
const maxEventsLimit = 1000

// Ledger reads the bank contract state.
type Ledger interface {
	AccountsOf(owner util.Uint160) ([]string, error)
	AccountInfo(name string) (*bank.BankAccount, error)
}

// Journal lists observed ledger events.
type Journal interface {
	List(ctx context.Context, f journal.Filter) ([]journal.Entry, error)
}

// Handler exposes read-only HTTP endpoints for the bank ledger.
type Handler struct {
	ledger  Ledger
	journal Journal
	logger  *zap.Logger
}

// AccountsResponse is a body of GET /accounts/:owner response.
type AccountsResponse struct {
	Owner    string   `json:"owner"`
	Accounts []string `json:"accounts"`
}

// BalanceResponse is a body of GET /balances/:name response.
type BalanceResponse struct {
	Account string `json:"account"`
	Owner   string `json:"owner"`
	Balance string `json:"balance"`
}

// NewHandler creates a new Handler.
func NewHandler(ledger Ledger, j Journal, logger *zap.Logger) *Handler {
	return &Handler{ledger: ledger, journal: j, logger: logger}
}

// NewRouter returns gin engine with all routes of the Handler mounted along
// with request metrics.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), metrics.PrometheusMiddleware())

	r.GET("/healthz", h.Health)
	r.GET("/metrics", metrics.MetricsHandler())
	h.Register(r.Group(""))

	return r
}

// Register mounts the ledger routes on the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/accounts/:owner", h.Accounts)
	rg.GET("/balances/:name", h.Balance)
	rg.GET("/events", h.Events)
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Accounts handles GET /accounts/:owner: returns account names of the owner
// in the order of creation.
func (h *Handler) Accounts(c *gin.Context) {
	owner, err := parseOwner(c.Param("owner"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	names, err := h.ledger.AccountsOf(owner)
	if err != nil {
		h.ledgerError(c, "accountsOf", err)
		return
	}

	c.JSON(http.StatusOK, AccountsResponse{
		Owner:    address.Uint160ToString(owner),
		Accounts: names,
	})
}

// Balance handles GET /balances/:name: returns balance of the account.
func (h *Handler) Balance(c *gin.Context) {
	name := c.Param("name")

	acc, err := h.ledger.AccountInfo(name)
	if err != nil {
		h.ledgerError(c, "accountInfo", err)
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		Account: name,
		Owner:   address.Uint160ToString(acc.Owner),
		Balance: acc.Balance.String(),
	})
}

// Events handles GET /events: returns observed ledger events, the latest
// first. Supported query parameters: owner, account, event, limit.
func (h *Handler) Events(c *gin.Context) {
	var f journal.Filter

	if s := c.Query("owner"); s != "" {
		owner, err := parseOwner(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f.Owner = &owner
	}

	f.Account = c.Query("account")
	f.Name = c.Query("event")

	if s := c.Query("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 || limit > maxEventsLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer in [1, " + strconv.Itoa(maxEventsLimit) + "]"})
			return
		}
		f.Limit = limit
	}

	entries, err := h.journal.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("journal List", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query journal"})
		return
	}

	if entries == nil {
		entries = []journal.Entry{}
	}

	c.JSON(http.StatusOK, gin.H{"events": entries})
}

func (h *Handler) ledgerError(c *gin.Context, method string, err error) {
	err = bank.ParseError(err)

	switch {
	case errors.Is(err, bank.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": bank.ErrNotFound.Error()})
	case errors.Is(err, bank.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": bank.ErrInvalidAddress.Error()})
	default:
		h.logger.Error("ledger "+method, zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to query ledger"})
	}
}

// parseOwner accepts both Neo address and hex-encoded LE script hash.
func parseOwner(s string) (util.Uint160, error) {
	if u, err := address.StringToUint160(s); err == nil {
		return u, nil
	}

	u, err := util.Uint160DecodeStringLE(s)
	if err != nil {
		return util.Uint160{}, bank.ErrInvalidAddress
	}

	return u, nil
}
