package geo

import (
	"encoding/json"
	"io"
	"sync"
)

// Collection is an in-memory MapView that renders as a GeoJSON FeatureCollection.
type Collection struct {
	mu      sync.Mutex
	markers map[string]Marker
	order   []string
	center  *[2]float64
	popup   string
	loading bool
	errMsg  string
}

func NewCollection() *Collection {
	return &Collection{markers: map[string]Marker{}}
}

func (c *Collection) PlaceMarker(m Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.markers[m.ID]; !ok {
		c.order = append(c.order, m.ID)
	}
	c.markers[m.ID] = m
}

func (c *Collection) RemoveMarker(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.markers[id]; !ok {
		return
	}
	delete(c.markers, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if c.popup == id {
		c.popup = ""
	}
}

func (c *Collection) Center(lat, lon float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.center = &[2]float64{lat, lon}
}

func (c *Collection) OpenPopup(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.popup = id
}

func (c *Collection) SetLoading(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = visible
}

func (c *Collection) SetError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = message
}

func (c *Collection) Markers() []Marker {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Marker, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.markers[id])
	}
	return out
}

// OpenPopupID returns the id whose popup is open, if any.
func (c *Collection) OpenPopupID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.popup
}

func (c *Collection) CenterPoint() (lat, lon float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.center == nil {
		return 0, 0, false
	}
	return c.center[0], c.center[1], true
}

func (c *Collection) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Collection) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// WriteGeoJSON writes the placed markers. GeoJSON positions are [lon, lat].
func (c *Collection) WriteGeoJSON(w io.Writer) error {
	markers := c.Markers()
	c.mu.Lock()
	popup := c.popup
	c.mu.Unlock()

	out := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(markers))}
	for _, m := range markers {
		props := map[string]any{
			"label":   m.Label,
			"price":   m.Price,
			"address": m.Address,
			"geohash": m.Geohash,
			"popup":   m.Popup,
		}
		if m.ID == popup {
			props["selected"] = true
		}
		out.Features = append(out.Features, feature{
			Type:       "Feature",
			ID:         m.ID,
			Geometry:   geometry{Type: "Point", Coordinates: [2]float64{m.Lon, m.Lat}},
			Properties: props,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
