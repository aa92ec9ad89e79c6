package geocode

import (
	"context"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	log "github.com/karunaapp/backend-api-go/pkg/logger"
	"github.com/valyala/fasthttp"
)

const defaultTimeout = time.Second * 5

// Client resolves coordinates to a formatted address against a
// Nominatim-style reverse geocoding endpoint.
type Client struct {
	connStr string
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
}

// NewClient reads GEOCODE_CONN_STR. Geocoding only enriches submissions,
// so an unset endpoint returns a nil client and callers skip it.
func NewClient() *Client {
	connStr := os.Getenv("GEOCODE_CONN_STR")
	if connStr == "" {
		log.Logger().Warn("GEOCODE_CONN_STR env variable not set, address enrichment disabled")
		return nil
	}

	return &Client{connStr: connStr}
}

func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	req := fasthttp.AcquireRequest()
	req.Header.SetMethod("GET")
	req.SetRequestURI(fmt.Sprintf("%s/reverse?lat=%f&lon=%f&format=jsonv2", c.connStr, lat, lng))
	res := fasthttp.AcquireResponse()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultTimeout)
	}

	if err := fasthttp.DoDeadline(req, res, deadline); err != nil {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(res)
		return "", err
	}

	fasthttp.ReleaseRequest(req)

	body := res.Body()
	var response reverseResponse

	if err := jsoniter.Unmarshal(body, &response); err != nil {
		fasthttp.ReleaseResponse(res)
		return "", err
	}

	fasthttp.ReleaseResponse(res)

	return response.DisplayName, nil
}
