package imagekey

// routeTable maps (supportsWebP, wantsThumbnail) to the rendition the CDN
// should serve. All four combinations are present.
var routeTable = map[[2]bool]Rendition{
	{true, true}:   WebPResized,
	{true, false}:  WebPOriginalSize,
	{false, true}:  ResizedOriginalFormat,
	{false, false}: Original,
}

// Route selects the rendition for a client's capabilities.
func Route(supportsWebP, wantsThumbnail bool) Rendition {
	return routeTable[[2]bool{supportsWebP, wantsThumbnail}]
}
