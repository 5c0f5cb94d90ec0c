package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studyarchive/internal/apperr"
	"studyarchive/internal/services"
	"studyarchive/internal/utils"
)

// multipartSlack covers the form fields around the file part.
const multipartSlack = 1 << 20

type DocumentHandler struct {
	docs     *services.DocumentService
	maxBytes int64
}

func NewDocumentHandler(docs *services.DocumentService, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{docs: docs, maxBytes: maxBytes}
}

// List 文档列表，?user= 只看某个用户上传的
func (h *DocumentHandler) List(c *gin.Context) {
	page, perPage := pageQuery(c)
	owner, _ := utils.ParseID(c.Query("user"))

	result, err := h.docs.List(c.Request.Context(), identity(c), owner, page, perPage)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *DocumentHandler) Search(c *gin.Context) {
	items, err := h.docs.Search(c.Request.Context(), identity(c), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, items)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	doc, err := h.docs.Get(c.Request.Context(), identity(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, doc)
}

// Download returns a presigned URL, or redirects to it with ?redirect=1.
func (h *DocumentHandler) Download(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	u, err := h.docs.DownloadURL(c.Request.Context(), identity(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	if c.Query("redirect") == "1" {
		c.Redirect(http.StatusFound, u)
		return
	}
	ok(c, gin.H{"url": u})
}

// Upload 接收 multipart 表单：title, description, file
func (h *DocumentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartSlack)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, apperr.Newf(apperr.ValidationError, "file is larger than %d MB", h.maxBytes>>20))
			return
		}
		fail(c, apperr.Wrap(apperr.ValidationError, "file is required", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, apperr.Wrap(apperr.ValidationError, "could not read file", err))
		return
	}
	defer f.Close()

	doc, err := h.docs.Upload(c.Request.Context(), identity(c), services.UploadInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		FileName:    fh.Filename,
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, doc)
}

func (h *DocumentHandler) Update(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var in services.UpdateDocumentInput
	if !bindJSON(c, &in) {
		return
	}
	doc, err := h.docs.Update(c.Request.Context(), identity(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.docs.Delete(c.Request.Context(), identity(c), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"deleted": id})
}
