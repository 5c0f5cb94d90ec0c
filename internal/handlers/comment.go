package handlers

import (
	"github.com/gin-gonic/gin"

	"studyarchive/internal/services"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// List returns the comment forest of a document, newest threads first.
func (h *CommentHandler) List(c *gin.Context) {
	docID, valid := paramID(c, "id")
	if !valid {
		return
	}
	forest, err := h.comments.ListComments(c.Request.Context(), identity(c), docID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, forest)
}

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parent_id"`
	MainID   *uint  `json:"main_id"`
}

// Create 发表评论或回复，文档 id 取自路径
func (h *CommentHandler) Create(c *gin.Context) {
	docID, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req createCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.comments.CreateComment(c.Request.Context(), identity(c), services.CreateCommentInput{
		DocumentID: docID,
		Content:    req.Content,
		ParentID:   req.ParentID,
		MainID:     req.MainID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, comment)
}

func (h *CommentHandler) Get(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	comment, err := h.comments.GetComment(c.Request.Context(), identity(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, comment)
}

type editCommentRequest struct {
	Content string `json:"content"`
}

func (h *CommentHandler) Edit(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req editCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.comments.EditComment(c.Request.Context(), identity(c), id, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, comment)
}

// Delete 删除评论及其所有回复
func (h *CommentHandler) Delete(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	removed, err := h.comments.DeleteComment(c.Request.Context(), identity(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"removed": removed})
}
