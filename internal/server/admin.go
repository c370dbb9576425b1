package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardroomlabs/holdemd/internal/directory"
	"github.com/cardroomlabs/holdemd/internal/game"
	"github.com/cardroomlabs/holdemd/internal/table"
)

// Router builds the HTTP surface: the WebSocket endpoint, the
// operator API the directory calls, and metrics
func (g *Gateway) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ws", gin.WrapF(g.HandleWS))
	r.POST("/seat-player", g.handleSeatPlayer)
	r.POST("/agent-action", g.handleAgentAction)
	r.GET("/game/:gameId/state", g.handleGameState)
	r.GET("/game/:gameId/admin-state", g.handleAdminState)
	r.GET("/health", g.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

type seatPlayerRequest struct {
	TableID        string `json:"tableId" binding:"required"`
	UserID         string `json:"userId" binding:"required"`
	Username       string `json:"username" binding:"required"`
	Stack          int    `json:"stack" binding:"required"`
	SeatNumber     int    `json:"seatNumber"`
	CommunityID    string `json:"communityId"`
	TableName      string `json:"tableName"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
	Agent          bool   `json:"agent"`
}

// handleSeatPlayer admits a player the directory already debited.
// Agents are marked present immediately since they act over HTTP and
// never open a socket.
func (g *Gateway) handleSeatPlayer(c *gin.Context) {
	var req seatPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	session, err := g.tables.GetOrCreateWith(c.Request.Context(), req.TableID, directory.TableConfig{
		Name:                 req.TableName,
		CommunityID:          req.CommunityID,
		ActionTimeoutSeconds: req.TimeoutSeconds,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := session.SeatPlayer(c.Request.Context(), req.UserID, req.Username, req.SeatNumber, req.Stack); err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, table.ErrTableFull) && !errors.Is(err, game.ErrInvalidInput) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	if req.Agent {
		if err := session.MarkConnected(c.Request.Context(), req.UserID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
	}

	players, maxSeats := session.Occupancy()
	c.JSON(http.StatusOK, gin.H{
		"gameId":       req.TableID,
		"playerId":     req.UserID,
		"playersCount": players,
		"maxSeats":     maxSeats,
	})
}

type agentActionRequest struct {
	UserID string `json:"userId" binding:"required"`
	GameID string `json:"gameId" binding:"required"`
	Action string `json:"action" binding:"required"`
	Amount int    `json:"amount"`
}

// handleAgentAction admits an action over HTTP. An unknown game or a
// user with no seat there is a 404; a malformed or illegal action is
// a 400.
func (g *Gateway) handleAgentAction(c *gin.Context) {
	var req agentActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	session, ok := g.tables.Get(req.GameID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no such game"})
		return
	}
	if !session.HasSeat(req.UserID) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no seat for user at this game"})
		return
	}

	kind, err := game.ParseAction(req.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := session.SubmitAction(c.Request.Context(), req.UserID, kind, req.Amount); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, game.ErrInvariant) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "state": session.Snapshot(req.UserID)})
}

// handleGameState returns the personalized state view for the polling
// player. Hole-card privacy holds here exactly as it does on the
// socket: the viewer sees only their own cards.
func (g *Gateway) handleGameState(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "userId is required"})
		return
	}

	session, ok := g.tables.Get(c.Param("gameId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no such game"})
		return
	}
	if !session.HasSeat(userID) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no seat for user at this game"})
		return
	}

	c.JSON(http.StatusOK, session.Snapshot(userID))
}

// handleAdminState returns the unredacted table state for operators
func (g *Gateway) handleAdminState(c *gin.Context) {
	session, ok := g.tables.Get(c.Param("gameId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no such game"})
		return
	}

	state, err := session.AdminSnapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (g *Gateway) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
