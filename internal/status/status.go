// Package status implements the HTTP status/worldmap surface (spec.md
// §6.2): a status page and a PNG worldmap endpoint, grounded on
// go-chi/chi routing and colored via the block-id table original_source's
// plugins/web.py defines, rendered with go-humanize for friendly output.
package status

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/oriumgames/alphacore/internal/world"
)

// Handler serves the status and worldmap HTTP endpoints.
type Handler struct {
	store     *world.Store
	startedAt time.Time
}

// NewHandler returns a chi.Router exposing GET / and
// GET /worldmap/{x},{z}.
func NewHandler(store *world.Store, startedAt time.Time) chi.Router {
	h := &Handler{store: store, startedAt: startedAt}
	r := chi.NewRouter()
	r.Get("/", h.serveStatus)
	r.Get("/worldmap/{coord}", h.serveWorldmap)
	return r
}

func (h *Handler) serveStatus(w http.ResponseWriter, r *http.Request) {
	uptime := humanize.RelTime(h.startedAt, time.Now(), "ago", "from now")
	fmt.Fprintf(w, "alphacore server\nuptime: %s\n", uptime)
}

func (h *Handler) serveWorldmap(w http.ResponseWriter, r *http.Request) {
	var cx, cz int32
	if _, err := fmt.Sscanf(chi.URLParam(r, "coord"), "%d,%d", &cx, &cz); err != nil {
		http.Error(w, "expected <x>,<z>", http.StatusBadRequest)
		return
	}

	c, err := h.store.RequestChunk(r.Context(), cx, cz)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			height := c.HeightAt(x, z)
			var id byte
			if height >= 0 {
				id = c.BlockAt(x, height, z)
			}
			img.Set(x, z, colorFor(id, height))
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=360")
	_ = png.Encode(w, img)
}

// blockColors mirrors original_source/bravo/plugins/web.py's
// names_to_colors table: a fixed palette keyed by block ID, with a height
// modulation applied to keep columns of the same block visually distinct.
var blockColors = map[byte]color.RGBA{
	0:  {0, 0, 0, 0},       // air
	1:  {128, 128, 128, 255}, // stone
	2:  {86, 174, 51, 255},   // grass
	3:  {134, 96, 67, 255},   // dirt
	7:  {20, 20, 20, 255},    // bedrock
	8:  {55, 97, 219, 180},   // water
	9:  {55, 97, 219, 180},   // stationary water
	12: {219, 211, 160, 255}, // sand
	15: {216, 175, 147, 255}, // iron ore
	78: {250, 250, 250, 255}, // snow
}

func colorFor(id byte, height int) color.RGBA {
	c, ok := blockColors[id]
	if !ok {
		c = color.RGBA{200, 0, 200, 255} // unknown block: magenta
	}
	if height <= 0 {
		return c
	}
	shade := uint8(min(height, world64))
	return color.RGBA{
		R: scaleChannel(c.R, shade),
		G: scaleChannel(c.G, shade),
		B: scaleChannel(c.B, shade),
		A: c.A,
	}
}

const world64 = 64

func scaleChannel(v, shade uint8) uint8 {
	factor := 0.6 + 0.4*float64(shade)/float64(world64)
	scaled := float64(v) * factor
	if scaled > 255 {
		return 255
	}
	return uint8(scaled)
}
