package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	contentTypeJSON          = "application/json"
	contentTypeMsgpack       = "application/msgpack"
	contentTypeMsgpackLegacy = "application/x-msgpack"

	maxBodyBytes = 1 << 20
)

func isMsgpack(header string) bool {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	return mediaType == contentTypeMsgpack || mediaType == contentTypeMsgpackLegacy
}

// wantsMsgpack reports whether any media range in the Accept header asks for MessagePack.
func wantsMsgpack(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if isMsgpack(strings.TrimSpace(part)) {
			return true
		}
	}
	return false
}

// decodeRequest reads a JSON or MessagePack body depending on Content-Type.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	if isMsgpack(r.Header.Get("Content-Type")) {
		return msgpack.NewDecoder(body).Decode(v)
	}
	return json.NewDecoder(body).Decode(v)
}

func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if wantsMsgpack(r) {
		payload, err := msgpack.Marshal(data)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to encode MessagePack response")
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.WriteHeader(status)
		if _, err := w.Write(payload); err != nil {
			h.log.Error().Err(err).Msg("Failed to write MessagePack response")
		}
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
