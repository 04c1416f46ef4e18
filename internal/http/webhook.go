package httpapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docsanddecks/attendance-bot/internal/chat"
	"github.com/docsanddecks/attendance-bot/internal/http/handlers"
)

// webhookSecretHeader carries the shared secret on inbound update posts,
// mirroring the secret-token convention of chat-platform webhooks.
const webhookSecretHeader = "X-Webhook-Secret"

// RegisterUpdatesWebhook mounts the inbound update endpoint. The chat
// platform (or an adapter in front of it) POSTs one chat.Update as JSON per
// event; the update is dispatched synchronously so platform retries see
// processing failures. When secret is non-empty, posts must present it in
// X-Webhook-Secret.
func RegisterUpdatesWebhook(r *gin.Engine, d *chat.Dispatcher, secret string) {
	r.POST("/webhook/updates", func(c *gin.Context) {
		if secret != "" {
			got := c.GetHeader(webhookSecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				handlers.Fail(c, http.StatusUnauthorized, handlers.ErrCodeUnauthorized, "bad webhook secret")
				return
			}
		}

		var upd chat.Update
		if err := c.ShouldBindJSON(&upd); err != nil {
			handlers.Fail(c, http.StatusBadRequest, handlers.ErrCodeBadRequest, "invalid update")
			return
		}

		d.Dispatch(c.Request.Context(), upd)
		c.Status(http.StatusNoContent)
	})
}
