package handlers

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// formFloat parses an optional decimal field. Blank means nil; both "." and
// "," are accepted as the decimal separator.
func formFloat(c *gin.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.PostForm(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &v, nil
}

// formPositive is formFloat for fields that must be > 0 when given.
func formPositive(c *gin.Context, name string) (*float64, error) {
	v, err := formFloat(c, name)
	if err != nil || v == nil {
		return v, err
	}
	if *v <= 0 {
		return nil, fmt.Errorf("%s must be positive", name)
	}
	return v, nil
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
