package store

import (
	"net/url"
	"strconv"

	"github.com/safar/storefront/internal/models"
)

func limitValues(limit int) url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(limit))
	return v
}

func pageValues(page, limit int) url.Values {
	if page < 1 {
		page = 1
	}
	v := limitValues(limit)
	v.Set("page", strconv.Itoa(page))
	return v
}

// productValues encodes only the filters that are set, so equal queries
// produce equal cache keys.
func productValues(q models.ProductQuery) url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.MinPrice != nil {
		v.Set("minPrice", q.MinPrice.String())
	}
	if q.MaxPrice != nil {
		v.Set("maxPrice", q.MaxPrice.String())
	}
	if q.OnSale != nil {
		v.Set("onSale", strconv.FormatBool(*q.OnSale))
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		v.Set("sortOrder", q.SortOrder)
	}
	return v
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}
