package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"crypto_dash/internal/app"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/table"

	"github.com/gin-gonic/gin"
)

type assetsResponse struct {
	table.Page
	Loading    bool              `json:"loading"`
	FeedStatus domain.FeedStatus `json:"feed_status"`
	FeedError  string            `json:"feed_error,omitempty"`
	PageSizes  []int             `json:"page_sizes"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (s *Server) health(c *gin.Context) {
	model := s.deps.Dashboard.Table()
	status, _ := model.FeedStatus()

	body := gin.H{
		"status":      "ok",
		"feed_status": status,
		"assets":      len(model.Assets()),
		"sequencer":   s.deps.Dashboard.Stats(),
	}
	code := http.StatusOK
	if s.deps.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["store_error"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, body)
}

// parseView reads q, sort, dir, page and size on top of the table's sort
// and page size. The page defaults to the first one.
func parseView(c *gin.Context, base domain.ViewState, allowed []int) (domain.ViewState, error) {
	v := base.WithPage(0).WithQuery(c.Query("q"))

	if key := c.Query("sort"); key != "" {
		k := domain.SortKey(key)
		if !k.Valid() {
			return v, fmt.Errorf("invalid sort key %q", key)
		}
		v.SortKey = k
	}
	switch dir := c.Query("dir"); dir {
	case "":
	case string(domain.Ascending), string(domain.Descending):
		v.SortDirection = domain.SortDirection(dir)
	default:
		return v, fmt.Errorf("invalid sort direction %q", dir)
	}

	if size := c.Query("size"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return v, fmt.Errorf("invalid page size %q", size)
		}
		if v, err = v.WithPageSize(n, allowed); err != nil {
			return v, err
		}
	}
	if page := c.Query("page"); page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 0 {
			return v, fmt.Errorf("invalid page %q", page)
		}
		v = v.WithPage(n)
	}
	return v, nil
}

func (s *Server) listAssets(c *gin.Context) {
	model := s.deps.Dashboard.Table()

	view, err := parseView(c, model.View(), model.PageSizes())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, s.assetsResponse(model, view))
}

func (s *Server) assetsResponse(model *table.Model, view domain.ViewState) assetsResponse {
	status, feedErr := model.FeedStatus()
	return assetsResponse{
		Page:       model.PageFor(view, s.deps.Favorites.Has),
		Loading:    model.Loading(),
		FeedStatus: status,
		FeedError:  feedErr,
		PageSizes:  model.PageSizes(),
		UpdatedAt:  model.UpdatedAt(),
	}
}

// reloadAssets runs the reload detached from the request: the list is shared,
// so a client that goes away must not cancel it halfway.
func (s *Server) reloadAssets(c *gin.Context) {
	if !s.reloadLimiter.TryAcquire() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "reload rate limit exceeded"})
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), s.reloadTimeout)
	defer cancel()

	err := s.deps.Dashboard.Reload(ctx)
	switch {
	case errors.Is(err, app.ErrStale):
		c.JSON(http.StatusConflict, gin.H{"error": "superseded by a newer reload"})
		return
	case errors.Is(err, app.ErrNotMounted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil && ctx.Err() != nil:
		// Timed out; the previous list is still served
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}

	model := s.deps.Dashboard.Table()
	resp := s.assetsResponse(model, model.View())
	if err != nil {
		// The list was still replaced (empty)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "assets": resp})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getDetail(c *gin.Context) {
	view := s.deps.NewDetail(c.Param("id"))
	defer view.Close()

	if err := view.Load(c.Request.Context()); err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	snap := view.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"detail":   snap,
		"favorite": s.deps.Favorites.Has(snap.ID),
	})
}

func (s *Server) listFavorites(c *gin.Context) {
	resp := gin.H{"favorites": s.deps.Favorites.List()}
	ts, err := s.deps.Favorites.UpdatedAt(c.Request.Context())
	if err != nil {
		slog.Warn("Failed to read favorites timestamp", slog.Any("error", err))
	} else if !ts.IsZero() {
		resp["updated_at"] = ts
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) toggleFavorite(c *gin.Context) {
	id := c.Param("id")
	member, err := s.deps.Favorites.Toggle(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"id": id, "favorite": member, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "favorite": member})
}
