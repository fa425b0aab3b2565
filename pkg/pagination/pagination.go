package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
)

// Params holds page pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Meta is the canonical pagination block attached to every paged response.
// Callers must not derive hasNext/hasPrev themselves.
type Meta struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

// Normalize enforces the configured default and maximum limits and a
// one-based page index.
func Normalize(params Params, defaultLimit, maxLimit int) Params {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if params.Limit <= 0 {
		params.Limit = defaultLimit
	}
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}
	if params.Page <= 0 {
		params.Page = 1
	}
	return params
}

// BuildMeta computes the canonical pagination contract for a total row count.
func BuildMeta(params Params, total int64) Meta {
	pages := 0
	if total > 0 {
		pages = int((total + int64(params.Limit) - 1) / int64(params.Limit))
	}
	return Meta{
		Page:    params.Page,
		Limit:   params.Limit,
		Total:   total,
		Pages:   pages,
		HasNext: params.Page < pages,
		HasPrev: params.Page > 1,
	}
}

// Slice returns the zero-based [start, end) window for the page over a slice
// of length n.
func Slice(params Params, n int) (int, int) {
	start := (params.Page - 1) * params.Limit
	if start >= n {
		return 0, 0
	}
	end := start + params.Limit
	if end > n {
		end = n
	}
	return start, end
}
