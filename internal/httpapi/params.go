package httpapi

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/repositorycache"
)

// Paging limits and defaults.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type pageQuery struct {
	Size   int `json:"page_size"`
	Number int `json:"page_number"`
}

// readInt reads the first present query parameter among names.
func readInt(c *gin.Context, def int, names ...string) (int, bool) {
	for _, name := range names {
		if raw, ok := c.GetQuery(name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	return def, true
}

func parsePage(c *gin.Context) (pageQuery, validation.Errors) {
	errs := validation.Errors{}

	size, ok := readInt(c, DefaultPageSize, "page_size", "page[size]")
	if !ok {
		errs["page_size"] = validation.NewError("validation_is_int", "must be an integer")
	}
	number, ok := readInt(c, 0, "page_number", "page[number]")
	if !ok {
		errs["page_number"] = validation.NewError("validation_is_int", "must be an integer")
	}
	if len(errs) > 0 {
		return pageQuery{}, errs
	}

	q := pageQuery{Size: size, Number: number}
	err := validation.ValidateStruct(&q,
		validation.Field(&q.Size, validation.Required, validation.Min(1), validation.Max(MaxPageSize)),
		validation.Field(&q.Number, validation.Min(0)),
	)
	if err != nil {
		if verrs, ok := err.(validation.Errors); ok {
			return pageQuery{}, verrs
		}
		return pageQuery{}, validation.Errors{"page": err}
	}
	return q, nil
}

func parseListParams(c *gin.Context, kind catalog.Kind, pattern *regexp.Regexp) (repositorycache.ListParams, validation.Errors) {
	page, errs := parsePage(c)
	if errs == nil {
		errs = validation.Errors{}
	}

	sort := c.DefaultQuery("sort", kind.DefaultSort)
	if err := validation.Validate(sort, validation.Match(pattern)); err != nil {
		errs["sort"] = validation.NewError("validation_sort",
			"must be one of: "+strings.Join(sortChoices(kind), ", "))
	}

	if len(errs) > 0 {
		return repositorycache.ListParams{}, errs
	}
	return repositorycache.ListParams{PageSize: page.Size, PageNumber: page.Number, Sort: sort}, nil
}

func parseSearchParams(c *gin.Context) (repositorycache.SearchParams, validation.Errors) {
	page, errs := parsePage(c)
	if errs == nil {
		errs = validation.Errors{}
	}

	word := c.Query("search_word")
	if err := validation.Validate(strings.TrimSpace(word), validation.Required); err != nil {
		errs["search_word"] = err
	}

	if len(errs) > 0 {
		return repositorycache.SearchParams{}, errs
	}
	return repositorycache.SearchParams{Query: word, PageSize: page.Size, PageNumber: page.Number}, nil
}

func sortPattern(kind catalog.Kind) *regexp.Regexp {
	quoted := make([]string, 0, len(kind.SortFields))
	for _, f := range kind.SortFields {
		quoted = append(quoted, regexp.QuoteMeta(f))
	}
	return regexp.MustCompile(`^-?(` + strings.Join(quoted, "|") + `)$`)
}

func sortChoices(kind catalog.Kind) []string {
	out := make([]string, 0, 2*len(kind.SortFields))
	for _, f := range kind.SortFields {
		out = append(out, f, "-"+f)
	}
	return out
}
