package api

import (
	"encoding/json/v2"
	"io"
	"net/http"
)

// maxBodySize bounds JSON request bodies at 1 MiB.
const maxBodySize = 1 << 20

// decodeBody decodes a JSON request body into dst using json/v2.
func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}
