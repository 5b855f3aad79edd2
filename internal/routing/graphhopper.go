package routing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/valyala/fasthttp"
)

// GraphHopper is a thin HTTP client for an external GraphHopper server's
// Matrix API (car/foot/bike profiles). It never embeds a routing engine
// — per spec §1, GraphHopper itself is an external collaborator; this
// client only shapes and parses its HTTP requests/responses, in the
// style of the Valhalla HTTP client in the example pack (a fasthttp
// client plus goccy/go-json for low-allocation encoding/decoding).
type GraphHopper struct {
	BaseURL string
	Profile string // "car", "bike", or "foot"
	Client  *fasthttp.Client
	Timeout time.Duration
}

func NewGraphHopper(baseURL, profile string) *GraphHopper {
	return &GraphHopper{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Profile: profile,
		Client:  &fasthttp.Client{},
		Timeout: 10 * time.Second,
	}
}

func (g *GraphHopper) Name() string { return "GRAPHHOPPER:" + g.Profile }

type matrixRequest struct {
	Points    [][2]float64 `json:"points"`
	OutArrays []string     `json:"out_arrays"`
	Profile   string       `json:"profile"`
}

type matrixResponse struct {
	Distances [][]float64 `json:"distances"`
}

// Distance performs a 2-point matrix query. Callers that need many
// destinations from one origin should prefer DistanceOneToMany, which
// issues a single shortest-path-tree-backed matrix request instead of N
// round trips.
func (g *GraphHopper) Distance(ctx context.Context, origin, dest orb.Point) (float64, error) {
	dists, err := g.DistanceOneToMany(ctx, origin, []orb.Point{dest})
	if err != nil {
		return 0, err
	}
	return dists[0], nil
}

// DistanceOneToMany queries GraphHopper's /matrix endpoint with one
// origin and N destinations — the Go-side analogue of
// prepareQGraph+querySPT's shortest-path-tree one-to-many query spec
// §4.4 describes.
func (g *GraphHopper) DistanceOneToMany(ctx context.Context, origin orb.Point, dests []orb.Point) ([]float64, error) {
	points := make([][2]float64, 0, len(dests)+1)
	points = append(points, [2]float64{origin[1], origin[0]}) // GraphHopper wants [lat,lon]
	for _, d := range dests {
		points = append(points, [2]float64{d[1], d[0]})
	}

	body, err := json.Marshal(matrixRequest{
		Points:    points,
		OutArrays: []string{"distances"},
		Profile:   g.Profile,
	})
	if err != nil {
		return nil, fmt.Errorf("graphhopper: encode request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(g.BaseURL + "/matrix")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	timeout := g.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}

	if err := g.Client.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("graphhopper: request failed: %w", err)
	}
	if resp.StatusCode() == fasthttp.StatusNotFound {
		return nil, ErrPointUnreachable
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("graphhopper: unexpected status %d", resp.StatusCode())
	}

	var mr matrixResponse
	if err := json.Unmarshal(resp.Body(), &mr); err != nil {
		return nil, fmt.Errorf("graphhopper: decode response: %w", err)
	}
	if len(mr.Distances) == 0 {
		return nil, fmt.Errorf("graphhopper: empty distance matrix")
	}
	// The matrix includes the origin itself as point 0; drop its column
	// so the result is one entry per requested destination.
	row := mr.Distances[0]
	if len(row) != len(dests)+1 {
		return nil, fmt.Errorf("graphhopper: expected %d matrix columns, got %d", len(dests)+1, len(row))
	}
	return row[1:], nil
}
