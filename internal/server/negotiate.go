package server

import (
	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apimorph/internal/format"
	"github.com/vyrodovalexey/apimorph/internal/response"
)

// formatKey is the gin context key of the selected format id.
const formatKey = "morph_format"

// selectFormat picks the format id for a request: the explicit format
// query parameter, then Accept header negotiation, then the default. An
// explicit format that is not registered is returned as is so that the
// morph fails with 406.
func selectFormat(c *gin.Context, rt *Runtime) string {
	if rt.FormatParam != "" {
		if id := c.Query(rt.FormatParam); id != "" {
			return id
		}
	}

	id, _ := rt.Negotiator.Negotiate(c.GetHeader("Accept"))
	return id
}

// morphOptions returns the per-request formatter options. A JSONP callback
// from the query string is handed to every formatter; only JSONP reads it.
func morphOptions(c *gin.Context, rt *Runtime) []response.MorphOption {
	if rt.CallbackParam == "" {
		return nil
	}
	callback := c.Query(rt.CallbackParam)
	if callback == "" {
		return nil
	}
	return []response.MorphOption{response.WithOptions(format.Options{"callback": callback})}
}

// SelectedFormat returns the format id chosen for the request, or "" before
// the handler ran.
func SelectedFormat(c *gin.Context) string {
	return c.GetString(formatKey)
}
