package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/ids"
)

func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Blank input
// yields nil.
func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.Validation("Invalid date", map[string]string{field: "must be YYYY-MM-DD or RFC 3339"})
}

func parseBool(raw string) *bool {
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		v := true
		return &v
	case "false", "0", "no":
		v := false
		return &v
	}
	return nil
}

// pathID returns the :id parameter. Values that cannot be a row id are
// reported as missing rows.
func pathID(c *gin.Context, code, message string) (string, error) {
	id := c.Param("id")
	if !ids.Valid(id) {
		return "", apperr.NotFound(code, message)
	}
	return id, nil
}
