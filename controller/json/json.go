package json

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/zeebo/blake3"
)

func DecodeJson[T any](r io.Reader) (T, error) {
	var t T
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&t)
	return t, err
}

func EncodeJson[T any](w http.ResponseWriter, t T) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(t)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// EncodeJsonWithETag tags the body with a content hash and answers 304
// when the client already holds that exact body.
func EncodeJsonWithETag[T any](w http.ResponseWriter, req *http.Request, t T) {
	body, err := json.Marshal(t)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sum := blake3.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`
	w.Header().Set("ETag", etag)

	if req.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(append(body, '\n'))
}
