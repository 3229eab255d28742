package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListTodos handles GET /todos
func (h *Handler) ListTodos(c *gin.Context) {
	var q ListTodosQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithDetail(c, http.StatusBadRequest, queryDetail(c))
		return
	}

	res, err := h.Todos.List(c.Request.Context(), q.params())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewListTodosResponse(res))
}

// CreateTodo handles POST /todos
func (h *Handler) CreateTodo(c *gin.Context) {
	var req CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Title == nil {
		abortWithDetail(c, http.StatusBadRequest, "title is required")
		return
	}

	todo, err := h.Todos.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewTodoResponse(todo))
}

// GetTodo handles GET /todos/:id, deleted todos included.
func (h *Handler) GetTodo(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}
	todo, err := h.Todos.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTodoResponse(todo))
}

// UpdateTodo handles PUT /todos/:id
func (h *Handler) UpdateTodo(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}
	var req UpdateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	todo, err := h.Todos.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTodoResponse(todo))
}

// DeleteTodo handles DELETE /todos/:id
func (h *Handler) DeleteTodo(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}
	if err := h.Todos.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RestoreTodo handles POST /todos/:id/restore
func (h *Handler) RestoreTodo(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}
	todo, err := h.Todos.Restore(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTodoResponse(todo))
}
