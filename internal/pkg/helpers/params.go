package helpers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ParseUUIDParam reads a path parameter as a UUID.
func ParseUUIDParam(ctx *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}

// ParseIndexParam reads a path parameter as a non-negative row index.
func ParseIndexParam(ctx *gin.Context, name string) (int, error) {
	i, err := strconv.Atoi(ctx.Param(name))
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, ctx.Param(name))
	}
	return i, nil
}
