package anno

import (
	"net/url"
	"regexp"
	"strings"
)

// Package anno holds the annotation data model and the pure geometry mapping
// between normalized image space and surface (renderer) space.

// BoundType is the geometric class of an annotation.
type BoundType string

const (
	BoundRectangle BoundType = "rectangle"
	BoundPolygon   BoundType = "polygon"
	BoundMask      BoundType = "masks"
)

// Annotation is one detected object on one asset (or one video frame bucket).
// Vertices are normalized to [0,1] with origin at the top-left of the image,
// y increasing downward.
type Annotation struct {
	ID         string    `json:"annotationID"`
	TagID      int       `json:"tagID"`
	BoundType  BoundType `json:"boundType"`
	Vertices   []Vec2    `json:"bound"`
	Confidence float32   `json:"confidence"`
}

type AssetType string

const (
	AssetImage AssetType = "image"
	AssetVideo AssetType = "video"
)

// Asset is one image or video file known to the engine.
// PixelWidth/PixelHeight are zero until the media's natural dimensions have
// been reported (they are only known once the renderer has loaded the media).
type Asset struct {
	URL         string    `json:"url"`       // Opaque, URL-encoded path identifier (unique key)
	Filename    string    `json:"filename"`  // Last path element, decoded
	LocalPath   string    `json:"localPath"` // Decoded path, as understood by the inference service
	Type        AssetType `json:"type"`
	PixelWidth  int       `json:"pixelWidth"`
	PixelHeight int       `json:"pixelHeight"`
	IsCached    bool      `json:"isCached"` // True if the inference service has cached results for this asset
}

var videoExtension = regexp.MustCompile(`(?i)\.(mov|mp4|wmv)`)

// ClassifyAsset decodes an URL-encoded path identifier into an Asset.
// The identifier doubles as the asset's stable key.
func ClassifyAsset(encoded string) Asset {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		decoded = encoded
	}
	sep := "/"
	if strings.Contains(decoded, "\\") {
		sep = "\\"
	}
	parts := strings.Split(decoded, sep)
	typ := AssetImage
	if videoExtension.MatchString(decoded) {
		typ = AssetVideo
	}
	return Asset{
		URL:       encoded,
		Filename:  parts[len(parts)-1],
		LocalPath: decoded,
		Type:      typ,
	}
}
