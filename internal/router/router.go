package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"todoapi/internal/auth"
	"todoapi/internal/handler"
	"todoapi/internal/service"
)

// Register wires routes and middleware. Everything under /api sits behind
// the basic-auth gate; the health check, swagger pages, and favicon do not.
func Register(
	e *echo.Echo,
	verifier auth.CredentialVerifier,
	todoHandler *handler.TodoHandler,
	userHandler *handler.UserHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: service.NewValidator()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/favicon.ico", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	api := e.Group("/api", auth.BasicAuth(verifier))

	// Todo routes. Static segments before :id.
	api.GET("/todos", todoHandler.ListTodos)
	api.GET("/todos/stats", todoHandler.GetTodoStats)
	api.DELETE("/todos/completed", todoHandler.DeleteCompletedTodos)
	api.GET("/todos/:id", todoHandler.GetTodo)
	api.POST("/todos", todoHandler.CreateTodo)
	api.PUT("/todos/:id", todoHandler.UpdateTodo)
	api.PATCH("/todos/:id", todoHandler.PatchTodo)
	api.PATCH("/todos/:id/complete", todoHandler.CompleteTodo)
	api.PATCH("/todos/:id/incomplete", todoHandler.IncompleteTodo)
	api.DELETE("/todos/:id", todoHandler.DeleteTodo)

	// User routes
	api.GET("/users", userHandler.ListUsers)
	api.GET("/users/stats", userHandler.GetUserStats)
	api.GET("/users/username/:username", userHandler.GetUserByUsername)
	api.GET("/users/:id", userHandler.GetUser)
	api.POST("/users", userHandler.CreateUser)
	api.PUT("/users/:id", userHandler.UpdateUser)
	api.PATCH("/users/:id", userHandler.PatchUser)
	api.PATCH("/users/:id/activate", userHandler.ActivateUser)
	api.PATCH("/users/:id/deactivate", userHandler.DeactivateUser)
	api.DELETE("/users/:id", userHandler.DeleteUser)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
