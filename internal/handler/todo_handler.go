package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"todoapi/internal/errors"
	"todoapi/internal/repository"
	"todoapi/internal/service"
)

// TodoHandler handles todo endpoints.
type TodoHandler struct {
	todoService service.TodoService
}

// NewTodoHandler creates a new todo handler.
func NewTodoHandler(todoService service.TodoService) *TodoHandler {
	return &TodoHandler{todoService: todoService}
}

// CreateTodoRequest represents a todo creation payload. Priority is a
// pointer so an explicit out-of-range 0 is rejected instead of being
// mistaken for an absent field.
type CreateTodoRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"omitempty,max=1000"`
	Priority    *int       `json:"priority" validate:"omitempty,min=1,max=5"`
	Category    string     `json:"category" validate:"omitempty,max=50"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateTodoRequest represents a full-replace payload.
type UpdateTodoRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"omitempty,max=1000"`
	IsCompleted bool       `json:"is_completed"`
	Priority    int        `json:"priority" validate:"required,min=1,max=5"`
	Category    string     `json:"category" validate:"omitempty,max=50"`
	DueDate     *time.Time `json:"due_date"`
}

// DeleteCompletedResponse reports the bulk-delete outcome.
type DeleteCompletedResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

// ListTodos godoc
// @Summary List todos
// @Tags todos
// @Produce json
// @Security BasicAuth
// @Param is_completed query bool false "Filter by completion state"
// @Param category query string false "Case-insensitive category substring"
// @Param priority query int false "Filter by exact priority"
// @Success 200 {array} model.Todo
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /todos [get]
func (h *TodoHandler) ListTodos(c echo.Context) error {
	var filter repository.TodoFilter
	if v := c.QueryParam("is_completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "is_completed must be a boolean",
				Code:  "INVALID_FILTER",
			})
		}
		filter.Completed = &completed
	}
	filter.Category = c.QueryParam("category")
	if v := c.QueryParam("priority"); v != "" {
		priority, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "priority must be an integer",
				Code:  "INVALID_FILTER",
			})
		}
		filter.Priority = &priority
	}

	todos, err := h.todoService.ListTodos(c.Request().Context(), filter)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, todos)
}

// GetTodo godoc
// @Summary Get todo by id
// @Tags todos
// @Produce json
// @Security BasicAuth
// @Param id path int true "Todo ID"
// @Success 200 {object} model.Todo
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /todos/{id} [get]
func (h *TodoHandler) GetTodo(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidIDError()
	}
	todo, err := h.todoService.GetTodo(c.Request().Context(), id)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, todo)
}

// CreateTodo godoc
// @Summary Create a todo
// @Tags todos
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param request body CreateTodoRequest true "Todo payload"
// @Success 201 {object} model.Todo
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /todos [post]
func (h *TodoHandler) CreateTodo(c echo.Context) error {
	var req CreateTodoRequest
	if err := c.Bind(&req); err != nil {
		return malformedBodyError()
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}

	priority := service.DefaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}
	todo, err := h.todoService.CreateTodo(c.Request().Context(), service.TodoInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Category:    req.Category,
		DueDate:     req.DueDate,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	c.Response().Header().Set(echo.HeaderLocation, fmt.Sprintf("/api/todos/%d", todo.ID))
	return c.JSON(http.StatusCreated, todo)
}

// UpdateTodo godoc
// @Summary Replace a todo
// @Tags todos
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param id path int true "Todo ID"
// @Param request body UpdateTodoRequest true "Todo payload"
// @Success 200 {object} model.Todo
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /todos/{id} [put]
func (h *TodoHandler) UpdateTodo(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidIDError()
	}
	var req UpdateTodoRequest
	if err := c.Bind(&req); err != nil {
		return malformedBodyError()
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}

	todo, err := h.todoService.UpdateTodo(c.Request().Context(), id, service.TodoInput{
		Title:       req.Title,
		Description: req.Description,
		IsCompleted: req.IsCompleted,
		Priority:    req.Priority,
		Category:    req.Category,
		DueDate:     req.DueDate,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, todo)
}

// PatchTodo godoc
// @Summary Partially update a todo
// @Description Unknown or mistyped fields are rejected; supplied fields are
// @Description validated together and applied atomically.
// @Tags todos
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param id path int true "Todo ID"
// @Param request body service.TodoPatch true "Fields to update"
// @Success 200 {object} model.Todo
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /todos/{id} [patch]
func (h *TodoHandler) PatchTodo(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidIDError()
	}
	var patch service.TodoPatch
	if err := decodeStrict(c, &patch); err != nil {
		return malformedBodyError()
	}

	todo, err := h.todoService.PatchTodo(c.Request().Context(), id, patch)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, todo)
}

// CompleteTodo godoc
// @Summary Mark a todo completed
// @Tags todos
// @Produce json
// @Security BasicAuth
// @Param id path int true "Todo ID"
// @Success 200 {object} model.Todo
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /todos/{id}/complete [patch]
func (h *TodoHandler) CompleteTodo(c echo.Context) error {
	return h.setCompleted(c, true)
}

// IncompleteTodo godoc
// @Summary Mark a todo not completed
// @Tags todos
// @Produce json
// @Security BasicAuth
// @Param id path int true "Todo ID"
// @Success 200 {object} model.Todo
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /todos/{id}/incomplete [patch]
func (h *TodoHandler) IncompleteTodo(c echo.Context) error {
	return h.setCompleted(c, false)
}

func (h *TodoHandler) setCompleted(c echo.Context, completed bool) error {
	id, ok := parseID(c)
	if !ok {
		return invalidIDError()
	}
	todo, err := h.todoService.SetCompleted(c.Request().Context(), id, completed)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, todo)
}

// DeleteTodo godoc
// @Summary Delete a todo
// @Tags todos
// @Security BasicAuth
// @Param id path int true "Todo ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /todos/{id} [delete]
func (h *TodoHandler) DeleteTodo(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidIDError()
	}
	if err := h.todoService.DeleteTodo(c.Request().Context(), id); err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteCompletedTodos godoc
// @Summary Delete all completed todos
// @Tags todos
// @Produce json
// @Security BasicAuth
// @Success 200 {object} DeleteCompletedResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /todos/completed [delete]
func (h *TodoHandler) DeleteCompletedTodos(c echo.Context) error {
	count, err := h.todoService.DeleteCompleted(c.Request().Context())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, DeleteCompletedResponse{DeletedCount: count})
}

// GetTodoStats godoc
// @Summary Todo statistics
// @Tags todos
// @Produce json
// @Security BasicAuth
// @Success 200 {object} service.TodoStats
// @Failure 401 {object} errors.ErrorResponse
// @Router /todos/stats [get]
func (h *TodoHandler) GetTodoStats(c echo.Context) error {
	stats, err := h.todoService.TodoStats(c.Request().Context())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, stats)
}

func parseID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func invalidIDError() error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: "invalid id",
		Code:  "INVALID_ID",
	})
}

func malformedBodyError() error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: "invalid request body",
		Code:  "INVALID_REQUEST",
	})
}

// decodeStrict decodes a JSON body rejecting unknown fields, so mistyped
// patch keys fail instead of being silently dropped.
func decodeStrict(c echo.Context, v interface{}) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
