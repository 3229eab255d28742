package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"todo_api/internal/logger"
	"todo_api/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Todos *service.TodoService
}

func NewHandler(todos *service.TodoService) *Handler {
	return &Handler{Todos: todos}
}

// errorBody is the shape every failure is reported in.
type errorBody struct {
	Detail string `json:"detail"`
}

func abortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, errorBody{Detail: detail})
}

// respondError maps service errors to status codes. Anything unexpected is
// logged with its cause and reported as a bare 500.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		abortWithDetail(c, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrNotFound):
		abortWithDetail(c, http.StatusNotFound, "Todo not found")
	default:
		_ = c.Error(err)
		logger.WithContext(c.Request.Context()).Error("unhandled error", "path", c.FullPath(), "error", err)
		abortWithDetail(c, http.StatusInternalServerError, "internal server error")
	}
}

// todoID reads the :id path parameter.
func todoID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithDetail(c, http.StatusBadRequest, "invalid todo id")
		return 0, false
	}
	return id, true
}

// queryDetail explains a list query that failed to bind without leaking
// parser errors. Integers too large for the platform map to the same range
// messages the service reports.
func queryDetail(c *gin.Context) string {
	for _, name := range []string{"limit", "offset"} {
		raw, ok := c.GetQuery(name)
		if !ok {
			continue
		}
		_, err := strconv.Atoi(raw)
		if err == nil {
			continue
		}
		if errors.Is(err, strconv.ErrRange) {
			negative := strings.HasPrefix(raw, "-")
			switch {
			case name == "limit" && negative:
				return "limit must be >= 1"
			case name == "limit":
				return fmt.Sprintf("limit must be <= %d", service.MaxLimit)
			case negative:
				return "offset must be >= 0"
			default:
				return "offset is too large"
			}
		}
		return name + " must be an integer"
	}
	return "invalid query parameters"
}
