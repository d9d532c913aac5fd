package pdf

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// SearchDirectoryRequest represents a request to list PDF files in a directory
type SearchDirectoryRequest struct {
	Directory string `json:"directory"`
	Query     string `json:"query"`
	Limit     int    `json:"limit,omitempty"`
}

// SearchDirectoryResult represents the result of a directory listing
type SearchDirectoryResult struct {
	Files       []FileInfo `json:"files"`
	TotalCount  int        `json:"total_count"`
	Directory   string     `json:"directory"`
	SearchQuery string     `json:"search_query,omitempty"`
}

// PageText holds the plain text extracted from one page
type PageText struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// TextMark is a single line of text stamped on a page.
// The line is centred horizontally on the page centre shifted by OffsetX,
// with its baseline OffsetY points above the bottom edge.
type TextMark struct {
	Text     string  `json:"text"`
	FontName string  `json:"font_name"`
	FontSize int     `json:"font_size"`
	OffsetX  float64 `json:"offset_x"`
	OffsetY  float64 `json:"offset_y"`
}

// ImageMark is a bitmap stamped on a page, positioned from the page's
// top-left corner and stretched to a Width x Width square, as PixelMark is
// in the raster composite.
type ImageMark struct {
	Path  string  `json:"path"`
	Left  float64 `json:"left"`
	Top   float64 `json:"top"`
	Width float64 `json:"width"`
}

// Overlay collects everything merged onto a single page
type Overlay struct {
	Page   int         `json:"page"`
	Texts  []TextMark  `json:"texts"`
	Images []ImageMark `json:"images"`
}

// PixelMark is a bitmap composited onto a rasterised page in pixel space
type PixelMark struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Size int    `json:"size"`
}
