// Package deepzoom models the tiled pan/zoom viewer the editor draws over.
package deepzoom

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Descriptor is what the editor needs to know about a tiled image source.
type Descriptor struct {
	URL      string
	Width    int
	Height   int
	TileSize int
	Overlap  int
	Format   string
}

type dziImage struct {
	XMLName  xml.Name `xml:"Image"`
	TileSize int      `xml:"TileSize,attr"`
	Overlap  int      `xml:"Overlap,attr"`
	Format   string   `xml:"Format,attr"`
	Size     struct {
		Width  int `xml:"Width,attr"`
		Height int `xml:"Height,attr"`
	} `xml:"Size"`
}

type iiifInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Tiles  []struct {
		Width int `json:"width"`
	} `json:"tiles"`
}

// ParseDescriptor reads a DZI XML descriptor or an IIIF info.json document.
func ParseDescriptor(data []byte, url string) (*Descriptor, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var info iiifInfo
		if err := json.Unmarshal(data, &info); err != nil {
			return nil, fmt.Errorf("parse iiif info: %w", err)
		}
		d := &Descriptor{URL: url, Width: info.Width, Height: info.Height, Format: "jpg"}
		if len(info.Tiles) > 0 {
			d.TileSize = info.Tiles[0].Width
		}
		return d, d.validate()
	}

	var img dziImage
	if err := xml.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("parse dzi: %w", err)
	}
	d := &Descriptor{
		URL:      url,
		Width:    img.Size.Width,
		Height:   img.Size.Height,
		TileSize: img.TileSize,
		Overlap:  img.Overlap,
		Format:   img.Format,
	}
	return d, d.validate()
}

func (d *Descriptor) validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("descriptor %s: invalid size %dx%d", d.URL, d.Width, d.Height)
	}
	return nil
}

// FetchDescriptor downloads and parses the descriptor at url.
func FetchDescriptor(ctx context.Context, client *http.Client, url string) (*Descriptor, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch descriptor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch descriptor: %s returned %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	return ParseDescriptor(data, url)
}
