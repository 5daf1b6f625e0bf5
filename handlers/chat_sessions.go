package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"datachat/models"
	"datachat/service"

	"github.com/gin-gonic/gin"
)

// ListChatSessionsHandler returns all chat sessions, most recently updated first.
// @Summary      List chat sessions
// @Tags         Chat
// @Produce      json
// @Success      200  {array}   models.ChatSession
// @Router       /api/sessions [get]
func (h *Handlers) ListChatSessionsHandler(c *gin.Context) {
	sessions, err := h.chat.ListSessions()
	if err != nil {
		h.respondError(c, err, "Failed to list sessions")
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// CreateChatSessionHandler creates a new chat session.
// @Summary      Create a new chat session
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        body  body      models.CreateSessionRequest  false  "Optional title"
// @Success      201   {object}  models.ChatSession
// @Router       /api/sessions [post]
func (h *Handlers) CreateChatSessionHandler(c *gin.Context) {
	var body models.CreateSessionRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	sess, err := h.chat.CreateSession(body.Title)
	if err != nil {
		h.respondError(c, err, "Failed to create session")
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// DeleteChatSessionHandler deletes a session and all its messages.
// @Summary      Delete a chat session
// @Tags         Chat
// @Param        id   path      string  true  "Session ID"
// @Success      204  "No Content"
// @Failure      404  {object}  map[string]string  "Session not found"
// @Router       /api/sessions/{id} [delete]
func (h *Handlers) DeleteChatSessionHandler(c *gin.Context) {
	if err := h.chat.DeleteSession(c.Param("id")); err != nil {
		h.respondError(c, err, "Failed to delete session")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessagesHandler returns a session's messages in order.
// @Summary      List messages of a session
// @Tags         Chat
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {array}   models.Message
// @Failure      404  {object}  map[string]string  "Session not found"
// @Router       /api/sessions/{id}/messages [get]
func (h *Handlers) ListMessagesHandler(c *gin.Context) {
	messages, err := h.chat.ListMessages(c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to list messages")
		return
	}
	c.JSON(http.StatusOK, messages)
}

// SendMessageHandler stores a prompt and/or file and the AI reply to it.
// @Summary      Send a chat message
// @Description  A CSV file becomes a dataset with a default selection, an image is analysed by the vision model and a text-only prompt gets a chat reply.
// @Tags         Chat
// @Accept       multipart/form-data
// @Produce      json
// @Param        id      path      string  true   "Session ID"
// @Param        prompt  formData  string  false  "Prompt"
// @Param        apiKey  formData  string  false  "Cohere API key"
// @Param        file    formData  file    false  "CSV or image"
// @Success      201     {object}  models.SendMessageResponse
// @Failure      400     {object}  map[string]string  "Invalid message"
// @Failure      404     {object}  map[string]string  "Session not found"
// @Failure      413     {object}  map[string]string  "File too large"
// @Router       /api/sessions/{id}/messages [post]
func (h *Handlers) SendMessageHandler(c *gin.Context) {
	in := service.SendMessageInput{
		SessionID: c.Param("id"),
		Prompt:    c.PostForm("prompt"),
		APIKey:    c.PostForm("apiKey"),
	}

	if fileHeader, err := c.FormFile("file"); err == nil {
		if fileHeader.Size > h.opts.MaxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		src, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open file"})
			return
		}
		data, err := io.ReadAll(io.LimitReader(src, h.opts.MaxUploadBytes))
		src.Close()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
			return
		}
		in.File = &service.Upload{
			Name:        fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Data:        data,
		}
	}

	resp, err := h.chat.SendMessage(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err, "Failed to process request")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetDatasetHandler returns the dataset attached to an AI message.
// @Summary      Get a message's dataset
// @Tags         Dataset
// @Produce      json
// @Param        id     path      string  true   "AI message ID"
// @Param        limit  query     int     false  "Maximum rows to return"
// @Success      200    {object}  models.DatasetView
// @Failure      404    {object}  map[string]string  "No dataset"
// @Router       /api/messages/{id}/dataset [get]
func (h *Handlers) GetDatasetHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	view, err := h.chat.Dataset(c.Param("id"), limit)
	if err != nil {
		h.respondError(c, err, "Failed to load dataset")
		return
	}
	c.JSON(http.StatusOK, view)
}

// SetSelectionHandler replaces the selected rows and columns.
// @Summary      Replace the selection
// @Tags         Dataset
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "AI message ID"
// @Param        request  body      models.SelectionRequest  true  "Rows and columns, 1 to 10 each"
// @Success      200      {object}  models.DatasetView
// @Failure      400      {object}  map[string]string  "Unknown row or column"
// @Failure      409      {object}  map[string]string  "Selection out of bounds"
// @Router       /api/messages/{id}/selection [put]
func (h *Handlers) SetSelectionHandler(c *gin.Context) {
	var req models.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	view, err := h.chat.SetSelection(c.Param("id"), req.Rows, req.Columns)
	if err != nil {
		h.respondError(c, err, "Failed to update selection")
		return
	}
	c.JSON(http.StatusOK, view)
}

// ToggleSelectionHandler adds or removes one row or column.
// @Summary      Toggle a row or column
// @Tags         Dataset
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "AI message ID"
// @Param        request  body      models.ToggleRequest  true  "Either row or column"
// @Success      200      {object}  models.DatasetView
// @Failure      409      {object}  map[string]string  "Selection out of bounds"
// @Router       /api/messages/{id}/selection/toggle [post]
func (h *Handlers) ToggleSelectionHandler(c *gin.Context) {
	var req models.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	view, err := h.chat.ToggleSelection(c.Param("id"), req)
	if err != nil {
		h.respondError(c, err, "Failed to update selection")
		return
	}
	c.JSON(http.StatusOK, view)
}

// GenerateQAPairsHandler asks for question-answer pairs about the selection.
// @Summary      Generate question-answer pairs
// @Tags         Dataset
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true   "AI message ID"
// @Param        request  body      models.QAPairsRequest  false  "Count, batch size and API key"
// @Success      200      {object}  models.QAPairsResponse
// @Failure      400      {object}  map[string]string  "Invalid request"
// @Failure      500      {object}  map[string]string  "Failed to generate Q&A pairs"
// @Router       /api/messages/{id}/qa-pairs [post]
func (h *Handlers) GenerateQAPairsHandler(c *gin.Context) {
	var req models.QAPairsRequest
	// An empty body means defaults.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	resp, err := h.chat.GenerateQAPairs(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err, "Failed to generate Q&A pairs")
		return
	}
	c.JSON(http.StatusOK, resp)
}
