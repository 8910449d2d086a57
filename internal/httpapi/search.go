package httpapi

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/opencanvas/canvasd/internal/canvas"
)

// reservedSearchKeys are query parameters with dedicated semantics; every
// other key is treated as an arbitrary element-field equality clause.
var reservedSearchKeys = map[string]bool{
	"type": true, "types": true,
	"minWidth": true, "maxWidth": true, "minHeight": true, "maxHeight": true,
	"textContains": true,
}

func parseSearchQuery(values url.Values) canvas.Query {
	q := canvas.Query{FieldEquals: make(map[string]string)}

	if t := values.Get("type"); t != "" {
		q.Types = append(q.Types, t)
	}
	if ts := values.Get("types"); ts != "" {
		for _, t := range strings.Split(ts, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Types = append(q.Types, t)
			}
		}
	}

	q.MinWidth = parseFloatPtr(values.Get("minWidth"))
	q.MaxWidth = parseFloatPtr(values.Get("maxWidth"))
	q.MinHeight = parseFloatPtr(values.Get("minHeight"))
	q.MaxHeight = parseFloatPtr(values.Get("maxHeight"))
	q.TextContains = values.Get("textContains")

	for key, vals := range values {
		if reservedSearchKeys[key] || len(vals) == 0 {
			continue
		}
		q.FieldEquals[key] = vals[0]
	}

	return q
}

func parseFloatPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
