package api

import (
	"encoding/json"
	"time"

	models "VolWatch/internal/domain/models"
	domrepo "VolWatch/internal/domain/repository"
	icache "VolWatch/internal/service/cache"
	"VolWatch/internal/usecase"
	xhttp "VolWatch/pkg/http"
	xlogger "VolWatch/pkg/logger"
	"VolWatch/pkg/util"

	"github.com/labstack/echo/v4"
)

// analysisCacheTTL bounds staleness of cached analysis responses; forming
// bars update far more often than clients poll.
const analysisCacheTTL = 3 * time.Second

// VolatilityHandler exposes the screener over HTTP.
type VolatilityHandler struct {
	logger    *xlogger.Logger
	reader    *usecase.AnalysisReader
	watchlist domrepo.Watchlist
	screener  *usecase.Screener
	respCache *icache.TTLCache
}

func NewVolatilityHandler(
	lgr *xlogger.Logger,
	reader *usecase.AnalysisReader,
	watchlist domrepo.Watchlist,
	screener *usecase.Screener,
) *VolatilityHandler {
	return &VolatilityHandler{
		logger:    lgr,
		reader:    reader,
		watchlist: watchlist,
		screener:  screener,
		respCache: icache.NewTTLCache(),
	}
}

func (h *VolatilityHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/analysis", h.Analysis)
	g.GET("/screener", h.ScreenerOverview)
	g.GET("/alerts", h.Alerts)
	g.GET("/watchlist", h.WatchlistList)
	g.POST("/watchlist", h.WatchlistAdd)
	g.DELETE("/watchlist/:symbol", h.WatchlistRemove)
}

// Analysis returns the latest snapshot for one (symbol, timeframe).
func (h *VolatilityHandler) Analysis(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	key := req.Symbol + ":" + string(tf)
	if b, ok, _ := h.respCache.GetBytes(key); ok {
		var snap models.VolatilityAnalysis
		if err := json.Unmarshal(b, &snap); err == nil {
			return xhttp.SuccessResponse(c, &snap)
		}
	}

	snap, err := h.reader.Analysis(c.Request().Context(), req.Symbol, tf)
	if err != nil {
		h.logger.Error("analysis read error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if b, err := json.Marshal(snap); err == nil {
		_ = h.respCache.SetBytes(key, b, analysisCacheTTL)
	}
	return xhttp.SuccessResponse(c, snap)
}

// ScreenerOverview returns the latest snapshot for every tracked key.
func (h *VolatilityHandler) ScreenerOverview(c echo.Context) error {
	keys := h.reader.TrackedKeys()
	rows := make([]*models.VolatilityAnalysis, 0, len(keys))
	for _, k := range keys {
		if snap, err := h.reader.Analysis(c.Request().Context(), k.Symbol, domrepo.Timeframe(k.Timeframe)); err == nil {
			rows = append(rows, snap)
		}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Alerts returns recent alerts; with ?symbol= set it queries the archive.
func (h *VolatilityHandler) Alerts(c echo.Context) error {
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if sym := c.QueryParam("symbol"); sym != "" {
		from := util.ParseTimeDefault(c.QueryParam("from"), time.Time{})
		to := util.ParseTimeDefault(c.QueryParam("to"), time.Time{})
		if req.TF != "" && (!from.IsZero() || !to.IsZero()) {
			from, to = util.AlignFromTo(from, to, req.TF)
		}
		rows, err := h.reader.AlertHistory(c.Request().Context(), domrepo.AlertQuery{
			Symbol:    sym,
			Timeframe: req.TF,
			From:      from,
			To:        to,
			Limit:     req.Limit,
		})
		if err != nil {
			h.logger.Error("alert history error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.ListResponse(c, rows, int64(len(rows)))
	}

	rows := h.reader.RecentAlerts(req.Limit)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *VolatilityHandler) WatchlistList(c echo.Context) error {
	symbols, err := h.watchlist.List(c.Request().Context())
	if err != nil {
		h.logger.Error("watchlist list error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, symbols, int64(len(symbols)))
}

func (h *VolatilityHandler) WatchlistAdd(c echo.Context) error {
	req := &models.WatchlistRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.watchlist.Add(c.Request().Context(), req.Symbol); err != nil {
		h.logger.Error("watchlist add error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, req.Symbol)
}

func (h *VolatilityHandler) WatchlistRemove(c echo.Context) error {
	symbol := c.Param("symbol")
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol required")
	}
	if err := h.watchlist.Remove(c.Request().Context(), symbol); err != nil {
		h.logger.Error("watchlist remove error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

// Health reports stream connectivity.
func (h *VolatilityHandler) Health(c echo.Context) error {
	status := map[string]interface{}{
		"stream": string(h.screener.State()),
		"keys":   len(h.reader.TrackedKeys()),
	}
	return xhttp.SuccessResponse(c, status)
}
