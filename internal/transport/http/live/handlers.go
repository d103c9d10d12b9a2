package livehttp

import (
	"net/http"
	"strconv"

	"marlin/internal/dashboard"
	"marlin/internal/store"

	"github.com/gin-gonic/gin"
)

func statusHandler(state *dashboard.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := state.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"running":     snap.Running,
			"paused":      snap.Paused,
			"state":       snap.State,
			"symbol":      snap.Symbol,
			"price":       snap.Price,
			"balance":     snap.Balance,
			"positions":   snap.Positions,
			"strategy":    snap.Strategy,
			"last_error":  snap.LastError,
			"started_at":  snap.StartedAt,
			"updated_at":  snap.UpdatedAt,
		})
	}
}

func logsHandler(state *dashboard.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"logs": state.Snapshot().Logs})
	}
}

func statsHandler(state *dashboard.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"daily": state.Snapshot().DailyStats})
	}
}

// tradesHandler serves the journal when available, falling back to the
// in-memory ring the sink keeps.
func tradesHandler(state *dashboard.State, journal *store.Journal) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if journal != nil {
			trades, err := journal.Recent(c.Request.Context(), limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"trades": trades})
			return
		}
		c.JSON(http.StatusOK, gin.H{"trades": state.Snapshot().Trades})
	}
}
