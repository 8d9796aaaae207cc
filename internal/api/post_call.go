package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/lumivoice/recall/internal/auth"
	"github.com/lumivoice/recall/internal/postcall"
)

// signatureHeader carries the platform's HMAC signature.
const signatureHeader = "elevenlabs-signature"

// PostCall handles the post-call webhook. The HMAC signature gates this
// endpoint because the payload carries the full transcript. Processing runs
// on the worker pool; the response is sent as soon as authentication and
// parsing succeed, so the platform's webhook timeout is never at risk.
func (h *Handler) PostCall(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := auth.VerifySignature(r.Header.Get(signatureHeader), string(body), h.postCallSecret); err != nil {
		h.log.Warn("post-call signature verification failed",
			"remote", r.RemoteAddr, "error", err)
		Error(w, http.StatusUnauthorized, "HMAC authentication failed: "+err.Error())
		return
	}

	var payload postcall.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}

	h.log.Info("post-call webhook received",
		"type", payload.Type, "conversation_id", payload.Data.ConversationID)

	h.pool.Enqueue(postcall.Task{Payload: &payload, Raw: body})

	JSON(w, http.StatusOK, PostCallAck{
		Status:         "received",
		Type:           payload.Type,
		ConversationID: payload.Data.ConversationID,
	})
}
