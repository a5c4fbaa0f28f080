package api

import (
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/storage"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type whitelistResponse struct {
	Address   string   `json:"address"`
	Authority string   `json:"authority"`
	Users     []string `json:"users"`
	Paused    bool     `json:"paused"`
	Capacity  int      `json:"capacity"`
}

type membershipResponse struct {
	Address     string `json:"address"`
	Whitelisted bool   `json:"whitelisted"`
}

type poolResponse struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	ProgramID string   `json:"program_id"`
	Accounts  []string `json:"accounts"`
}

type pageQuery struct {
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
	Caller string `form:"caller"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getWhitelist(c *gin.Context) {
	w, err := s.whitelists.Load(c.Request.Context(), s.key)
	if err != nil {
		s.fail(c, err)
		return
	}

	users := make([]string, len(w.Users))
	for i, u := range w.Users {
		users[i] = u.String()
	}
	c.JSON(http.StatusOK, whitelistResponse{
		Address:   s.key.String(),
		Authority: w.Authority.String(),
		Users:     users,
		Paused:    w.Paused,
		Capacity:  s.whitelists.Capacity(),
	})
}

func (s *Server) getMembership(c *gin.Context) {
	user, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		s.badRequest(c, "invalid address: "+err.Error())
		return
	}

	ok, err := s.whitelists.Contains(c.Request.Context(), s.key, user)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, membershipResponse{Address: user.String(), Whitelisted: ok})
}

func (s *Server) listSwaps(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultPageSize
	}

	var (
		swaps []*storage.SwapModel
		err   error
	)
	if q.Caller != "" {
		swaps, err = s.swaps.FindByCaller(c.Request.Context(), q.Caller, q.Limit, q.Offset)
	} else {
		swaps, err = s.swaps.FindRecent(c.Request.Context(), q.Limit, q.Offset)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	if swaps == nil {
		swaps = []*storage.SwapModel{}
	}
	c.JSON(http.StatusOK, gin.H{"swaps": swaps, "limit": q.Limit, "offset": q.Offset})
}

func (s *Server) getSwap(c *gin.Context) {
	swap, err := s.swaps.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, swap)
}

func (s *Server) listPools(c *gin.Context) {
	adapters := s.registry.Adapters()
	out := make([]poolResponse, 0, len(adapters))
	for _, a := range adapters {
		out = append(out, poolResponse{
			Name:      a.Name(),
			Kind:      string(a.Kind()),
			ProgramID: a.ProgramID().String(),
			Accounts:  a.AccountNames(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"pools": out})
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.stats.Snapshot())
}

func (s *Server) badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Code: "BAD_REQUEST", Message: message})
}

// fail maps typed errors to a status; anything untyped is a 500.
func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrRecordNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Code: errors.ErrCodeNotFound, Message: err.Error()})
		return
	}

	code, ok := errors.CodeOf(err)
	if !ok {
		s.GetLogger().Error("api request failed", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL", Message: "internal error"})
		return
	}

	status := http.StatusBadRequest
	switch code {
	case errors.ErrCodeNotFound, errors.ErrCodeNotInitialized:
		status = http.StatusNotFound
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Message: err.Error()})
}
