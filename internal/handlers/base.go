package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyarchive/internal/apperr"
	"studyarchive/internal/middleware"
	"studyarchive/internal/rbac"
	"studyarchive/internal/utils"
)

func ok(c *gin.Context, data any) {
	middleware.OK(c, http.StatusOK, data)
}

func created(c *gin.Context, data any) {
	middleware.OK(c, http.StatusCreated, data)
}

func fail(c *gin.Context, err error) {
	middleware.Fail(c, err)
}

func identity(c *gin.Context) *rbac.Identity {
	return middleware.CurrentIdentity(c)
}

// paramID reads a positive id path parameter. A malformed id is reported as not found,
// the same as an id that does not exist.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, valid := utils.ParseID(c.Param(name))
	if !valid {
		fail(c, apperr.New(apperr.NotFound, name+" not found"))
	}
	return id, valid
}

// pageQuery 读取 ?page=&per_page=，范围由 service 层校正
func pageQuery(c *gin.Context) (int, int) {
	return utils.StringToInt(c.Query("page")), utils.StringToInt(c.Query("per_page"))
}

// bindJSON 解析请求体，失败时返回 400
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperr.Wrap(apperr.ValidationError, "invalid request body", err))
		return false
	}
	return true
}

// Health is the liveness check.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
