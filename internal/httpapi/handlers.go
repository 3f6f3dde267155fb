package httpapi

import (
	"context"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/repositorycache"
)

// Catalog is the read API of one entity kind.
type Catalog[T any] interface {
	Kind() catalog.Kind
	GetByID(ctx context.Context, id string) (T, error)
	List(ctx context.Context, params repositorycache.ListParams) (repositorycache.Page[T], error)
	Search(ctx context.Context, params repositorycache.SearchParams) (repositorycache.Page[T], error)
}

type entityHandler[T any] struct {
	repo Catalog[T]
	sort *regexp.Regexp
}

func registerEntity[T any](g *gin.RouterGroup, path string, repo Catalog[T]) {
	h := &entityHandler[T]{repo: repo, sort: sortPattern(repo.Kind())}

	grp := g.Group(path)
	grp.GET("/", h.list)
	grp.GET("/search/", h.search)
	grp.GET("/search", h.search)
	grp.GET("/:id", h.get)
}

func (h *entityHandler[T]) get(c *gin.Context) {
	entity, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.repo.Kind().Name, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

func (h *entityHandler[T]) list(c *gin.Context) {
	params, verr := parseListParams(c, h.repo.Kind(), h.sort)
	if verr != nil {
		writeValidation(c, verr)
		return
	}

	page, err := h.repo.List(c.Request.Context(), params)
	if err != nil {
		writeError(c, h.repo.Kind().Name, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *entityHandler[T]) search(c *gin.Context) {
	params, verr := parseSearchParams(c)
	if verr != nil {
		writeValidation(c, verr)
		return
	}

	page, err := h.repo.Search(c.Request.Context(), params)
	if err != nil {
		writeError(c, h.repo.Kind().Name, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
