package tracker

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler handles the track and stats HTTP endpoints.
type Handler struct {
	store        *Store
	geo          *Geolocator
	trackLimiter *ipLimiter
}

// NewHandler creates a Handler. The track endpoint is rate-limited to
// trackLimit requests per IP per minute.
func NewHandler(store *Store, geo *Geolocator, trackLimit int) *Handler {
	return &Handler{
		store:        store,
		geo:          geo,
		trackLimiter: newIPLimiter(trackLimit, time.Minute),
	}
}

// RegisterRoutes registers the API routes with the Echo router.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/track/:project", h.Track)
	e.GET("/api/stats", h.AllStats)
	e.GET("/api/stats/time", h.AllStatsByTime)
	e.GET("/api/stats/:project", h.ProjectStats)
	e.GET("/api/stats/:project/time", h.ProjectStatsByTime)
}

// Track records one visit: resolve the client IP from proxy headers, look
// up its country, insert the row. A failed geolocation lookup never aborts
// the write; a failed write is a plain 500.
func (h *Handler) Track(c echo.Context) error {
	project, err := ParseProject(c.Param("project"))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	ip := clientIP(c.Request())
	if !h.trackLimiter.allow(ip) {
		trackRateLimited.Inc()
		return c.NoContent(http.StatusTooManyRequests)
	}

	country := h.geo.Country(c.Request().Context(), ip)
	if err := h.store.InsertVisit(c.Request().Context(), project, ip, &country); err != nil {
		c.Logger().Errorf("track visit: %v", err)
		return c.NoContent(http.StatusInternalServerError)
	}
	visitsTracked.WithLabelValues(string(project)).Inc()

	return c.JSON(http.StatusOK, TrackResponse{
		Success: true,
		Message: "Visit tracked successfully",
	})
}

// ProjectStats serves the unscoped detailed view for one project.
func (h *Handler) ProjectStats(c echo.Context) error {
	project, err := ParseProject(c.Param("project"))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	statsQueries.WithLabelValues("project").Inc()

	stats, err := h.store.ProjectDetailedStats(c.Request().Context(), project)
	if err != nil {
		c.Logger().Errorf("project stats: %v", err)
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, stats)
}

// AllStats serves unscoped per-project aggregates for every project with
// recorded visits.
func (h *Handler) AllStats(c echo.Context) error {
	statsQueries.WithLabelValues("all").Inc()

	stats, err := h.store.AllProjectStats(c.Request().Context(), nil)
	if err != nil {
		c.Logger().Errorf("all stats: %v", err)
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, projectsResponse{Projects: stats})
}

// ProjectStatsByTime serves time-scoped scalar totals for one project.
// Without any scope parameter it falls back to the detailed unscoped view,
// so the response shape deliberately differs between the scoped and
// unscoped cases.
func (h *Handler) ProjectStatsByTime(c echo.Context) error {
	project, err := ParseProject(c.Param("project"))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	scope, err := ParseTimeScope(c.QueryParams())
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	statsQueries.WithLabelValues("project_time").Inc()

	if scope == nil {
		stats, err := h.store.ProjectDetailedStats(c.Request().Context(), project)
		if err != nil {
			c.Logger().Errorf("project stats by time: %v", err)
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, stats)
	}

	stats, err := h.store.ProjectStats(c.Request().Context(), project, scope)
	if err != nil {
		c.Logger().Errorf("project stats by time: %v", err)
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, stats)
}

// AllStatsByTime serves time-scoped aggregates across projects. Range
// scopes are rejected here; only the single-project path supports them.
func (h *Handler) AllStatsByTime(c echo.Context) error {
	scope, err := ParseTimeScope(c.QueryParams())
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	statsQueries.WithLabelValues("all_time").Inc()

	stats, err := h.store.AllProjectStats(c.Request().Context(), scope)
	if err != nil {
		if err == ErrRangeUnsupported {
			return c.NoContent(http.StatusBadRequest)
		}
		c.Logger().Errorf("all stats by time: %v", err)
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, projectsResponse{Projects: stats})
}

// projectsResponse wraps the grouped aggregates for the all-project
// endpoints.
type projectsResponse struct {
	Projects []ProjectStats `json:"projects"`
}

// clientIP resolves the caller's address from proxy headers: the first
// comma-separated entry of X-Forwarded-For, then X-Real-IP, then the
// literal "unknown". The value is stored as opaque text without syntactic
// validation.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return "unknown"
}
