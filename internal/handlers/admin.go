package handlers

import (
	"github.com/gin-gonic/gin"

	"studyarchive/internal/services"
	"studyarchive/internal/utils"
)

// AdminHandler 管理后台。文档和评论的管理复用各自的 service，管理员权限在 rbac 中生效
type AdminHandler struct {
	admin    *services.AdminService
	docs     *services.DocumentService
	comments *services.CommentService
}

func NewAdminHandler(admin *services.AdminService, docs *services.DocumentService, comments *services.CommentService) *AdminHandler {
	return &AdminHandler{admin: admin, docs: docs, comments: comments}
}

// ==================== 用户管理 ====================

func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, perPage := pageQuery(c)
	result, err := h.admin.ListUsers(c.Request.Context(), identity(c), page, perPage)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

type setRoleRequest struct {
	RoleID uint `json:"role_id" binding:"required"`
}

func (h *AdminHandler) SetUserRole(c *gin.Context) {
	userID, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req setRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.admin.SetUserRole(c.Request.Context(), identity(c), userID, req.RoleID); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// PunishUser 禁言/封禁，status 0 解除
func (h *AdminHandler) PunishUser(c *gin.Context) {
	userID, valid := paramID(c, "id")
	if !valid {
		return
	}
	var in services.PunishInput
	if !bindJSON(c, &in) {
		return
	}
	if err := h.admin.Punish(c.Request.Context(), identity(c), userID, in); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.admin.DeleteUser(c.Request.Context(), identity(c), userID); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// ==================== 角色管理 ====================

func (h *AdminHandler) ListRoles(c *gin.Context) {
	roles, err := h.admin.ListRoles(c.Request.Context(), identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, roles)
}

func (h *AdminHandler) CreateRole(c *gin.Context) {
	var in services.RoleInput
	if !bindJSON(c, &in) {
		return
	}
	role, err := h.admin.CreateRole(c.Request.Context(), identity(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, role)
}

func (h *AdminHandler) UpdateRole(c *gin.Context) {
	roleID, valid := paramID(c, "id")
	if !valid {
		return
	}
	var in services.RoleInput
	if !bindJSON(c, &in) {
		return
	}
	role, err := h.admin.UpdateRole(c.Request.Context(), identity(c), roleID, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, role)
}

func (h *AdminHandler) DeleteRole(c *gin.Context) {
	roleID, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.admin.DeleteRole(c.Request.Context(), identity(c), roleID); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// ==================== 文档与评论 ====================

func (h *AdminHandler) ListDocuments(c *gin.Context) {
	page, perPage := pageQuery(c)
	owner, _ := utils.ParseID(c.Query("user"))
	result, err := h.docs.List(c.Request.Context(), identity(c), owner, page, perPage)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *AdminHandler) DeleteDocument(c *gin.Context) {
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

func (h *AdminHandler) ListComments(c *gin.Context) {
	page, perPage := pageQuery(c)
	items, total, err := h.comments.ListRecentComments(c.Request.Context(), identity(c), page, perPage)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"items": items, "total": total})
}

func (h *AdminHandler) DeleteComment(c *gin.Context) {
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
