package livehttp

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"crossbot/internal/logger"

	"github.com/gin-gonic/gin"
)

// Router 暴露引擎状态查询接口。
type Router struct {
	Cycles    CycleSource
	Scheduler SchedulerSource
	Windows   WindowSource
	Journal   JournalSource
	Scanner   SignalScanner
	Venue     string
}

// Register 将 /api/live 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/status", r.handleStatus)
	group.GET("/window/:symbol", r.handleWindow)
	group.GET("/signals/:symbol", r.handleSignals)
	group.GET("/orders", r.handleOrders)
}

func (r *Router) handleStatus(c *gin.Context) {
	resp := statusResponse{Venue: r.Venue, Breakers: map[string]string{}}
	if r.Scheduler != nil {
		resp.Scheduler = r.Scheduler.State().String()
		resp.Ticks = r.Scheduler.Ticks()
	}
	if r.Cycles != nil {
		resp.Cycles = r.Cycles.Cycles()
		resp.Symbols = r.Cycles.Symbols()
		resp.Interval = r.Cycles.Interval()
		if report, ok := r.Cycles.LastReport(); ok {
			resp.Last = &report
		}
		if g := r.Cycles.Breakers(); g != nil {
			for name, st := range g.States() {
				resp.Breakers[name] = st.String()
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleWindow(c *gin.Context) {
	symbol, ok := r.knownSymbol(c)
	if !ok {
		return
	}
	candles, err := r.Windows.Export(c.Request.Context(), symbol, r.Cycles.Interval(), queryInt(c, "limit", 0))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{"symbol": symbol, "interval": r.Cycles.Interval(), "candles": candles}
	if at, ok := r.Windows.UpdatedAt(symbol, r.Cycles.Interval()); ok {
		resp["updated_at"] = at.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleSignals(c *gin.Context) {
	symbol, ok := r.knownSymbol(c)
	if !ok {
		return
	}
	if r.Scanner == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "signal scanner unavailable"})
		return
	}
	ctx := c.Request.Context()
	candles, err := r.Windows.Export(ctx, symbol, r.Cycles.Interval(), 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(candles) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no window evaluated yet"})
		return
	}
	hits, err := r.Scanner.Scan(ctx, candles)
	if err != nil {
		logger.Warnf("[http] scan %s: %v", symbol, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	views := make([]hitView, 0, len(hits))
	for _, h := range hits {
		views = append(views, hitView{Index: h.Index, Time: h.Time, Signal: h.Signal.String()})
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "candles": len(candles), "signals": views})
}

func (r *Router) handleOrders(c *gin.Context) {
	if r.Journal == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "order journal disabled"})
		return
	}
	entries, err := r.Journal.Recent(c.Request.Context(), c.Query("symbol"), queryInt(c, "limit", 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": entries})
}

func (r *Router) knownSymbol(c *gin.Context) (string, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if r.Cycles == nil || r.Windows == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine unavailable"})
		return "", false
	}
	for _, s := range r.Cycles.Symbols() {
		if s == symbol {
			return symbol, true
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol " + symbol})
	return "", false
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
