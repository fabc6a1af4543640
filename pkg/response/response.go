package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 出参直接返回业务数据本身，错误统一是 {"message": "..."}，
// 与旧系统的前端约定保持一致；内部错误不往外带细节。

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

func ServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "服务器内部错误")
}

func StoreUnavailable(c *gin.Context) {
	Error(c, http.StatusServiceUnavailable, "数据存储暂不可用")
}
