// internal/server/handlers/filter.go

package handlers

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"mediaintel/internal/domain/mention"
)

// parseFilter reads sidebar selections from query parameters. Categorical
// values may be repeated or comma separated.
func parseFilter(q url.Values) (mention.Filter, error) {
	filter := mention.Filter{
		Platforms:  queryList(q, "platform"),
		Sentiments: queryList(q, "sentiment"),
		MediaTypes: queryList(q, "media_type"),
		Locations:  queryList(q, "location"),
	}

	var err error
	if filter.From, err = queryDay(q, "from"); err != nil {
		return mention.Filter{}, err
	}
	if filter.To, err = queryDay(q, "to"); err != nil {
		return mention.Filter{}, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return mention.Filter{}, fmt.Errorf("to date is before from date")
	}

	return filter, nil
}

func queryList(q url.Values, key string) []string {
	var values []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

func queryDay(q url.Values, key string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	day, err := time.Parse(mention.DateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q, expected YYYY-MM-DD", key, raw)
	}
	return &day, nil
}
