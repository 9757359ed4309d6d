package handler

import "github.com/gin-gonic/gin"

// Health は死活監視用のハンドラーです。GET/HEAD/OPTIONSのいずれにも
// 2xxを返し、ロードバランサーの導通確認に使います。
//
// エンドポイント例:
// GET /healthz
func Health(c *gin.Context) {
	// キャッシュされないように明示
	c.Header("Cache-Control", "no-store")

	switch c.Request.Method {
	case "HEAD":
		c.Status(200)
	case "OPTIONS":
		c.Status(204)
	default:
		c.JSON(200, gin.H{"status": "ok"})
	}
}
