package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var displayedSizeProps = map[string]interface{}{
	"displayed_width": map[string]interface{}{
		"type":        "integer",
		"description": "Width the image is displayed at. Coordinates are scaled by natural/displayed. Omit or 0 for natural size",
	},
	"displayed_height": map[string]interface{}{
		"type":        "integer",
		"description": "Height the image is displayed at. Omit or 0 for natural size",
	},
}

func withDisplayedSize(props map[string]interface{}) map[string]interface{} {
	for k, v := range displayedSizeProps {
		props[k] = v
	}
	return props
}

var outputPathProp = map[string]interface{}{
	"type":        "string",
	"description": "Optional file path to write the PNG to. When omitted the image is returned base64-encoded",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Input
		{
			Name:        "image_upload",
			Description: "Upload an image from a local file or base64 data. Replaces any current image and discards its result. Images larger than the upload limit are downscaled.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"data_base64": map[string]interface{}{
						"type":        "string",
						"description": "Base64-encoded image bytes (alternative to path)",
					},
					"mime_type": map[string]interface{}{
						"type":        "string",
						"description": "MIME type of data_base64, e.g. image/png. Sniffed when omitted",
					},
				},
			},
		},
		{
			Name:        "image_upload_url",
			Description: "Download an image from an http(s) URL and upload it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"url": map[string]interface{}{
						"type":        "string",
						"description": "http or https URL of the image",
					},
				},
				"required": []string{"url"},
			},
		},

		// Pipeline
		{
			Name:        "image_set_background",
			Description: "Choose the background placed behind the cutout. Takes effect immediately if the image has been processed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"kind": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"transparent", "white", "black", "color", "image"},
						"description": "Background preset. Default transparent",
						"default":     "transparent",
					},
					"value": map[string]interface{}{
						"type":        "string",
						"description": "Hex color (#RRGGBB) for kind=color, URL for kind=image",
					},
				},
			},
		},
		{
			Name:        "image_adjust_tone",
			Description: "Set brightness and contrast (0-200, 100 = unchanged). Re-applied to the result whenever it changes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"brightness": map[string]interface{}{
						"type":        "integer",
						"minimum":     0,
						"maximum":     200,
						"description": "Brightness percentage. Default 100",
						"default":     100,
					},
					"contrast": map[string]interface{}{
						"type":        "integer",
						"minimum":     0,
						"maximum":     200,
						"description": "Contrast percentage. Default 100",
						"default":     100,
					},
				},
			},
		},
		{
			Name:        "image_process",
			Description: "Remove the background of the uploaded image, composite the chosen background and apply tone. Only one run may be in flight.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"wait": map[string]interface{}{
						"type":        "boolean",
						"description": "Wait for the result. When false, processing runs in the background; poll image_info. Default true",
						"default":     true,
					},
				},
			},
		},
		{
			Name:        "image_clear",
			Description: "Discard the image, result, settings and pending edits. Cancels in-flight processing.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Inspection
		{
			Name:        "image_info",
			Description: "Report the session state (image, progress, background, tone, active tool), or the metadata of a local image file when path is given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Optional absolute path to an image file",
					},
				},
			},
		},
		{
			Name:        "image_sample_color",
			Description: "Get the exact color value at a pixel coordinate of the original, processed or preview image, or of a local file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"target": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"processed", "original", "preview"},
						"description": "Which session image to sample. Default processed",
						"default":     "processed",
					},
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Optional image file to sample instead of the session",
					},
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"x", "y"},
			},
		},
		{
			Name:        "image_compare",
			Description: "Render a before/after preview: original left of the split, result on the right over a checkerboard.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"position": map[string]interface{}{
						"type":        "number",
						"minimum":     0,
						"maximum":     1,
						"description": "Split position as a fraction of the width. Default 0.5",
						"default":     0.5,
					},
					"output_path": outputPathProp,
				},
			},
		},

		// Editor
		{
			Name:        "editor_begin",
			Description: "Activate an editor tool on the processed image. Any active tool is deactivated and its pending edit discarded.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tool": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"crop", "erase", "fill"},
						"description": "Tool to activate",
					},
				},
				"required": []string{"tool"},
			},
		},
		{
			Name:        "editor_crop",
			Description: "Set the pending crop rectangle in displayed coordinates, or a named quadrant (top-left, top-right, bottom-left, bottom-right, top-half, bottom-half, left-half, right-half, center).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withDisplayedSize(map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Rectangle width",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Rectangle height",
					},
					"quadrant": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center"},
						"description": "Named region (overrides the rectangle)",
					},
				}),
			},
		},
		{
			Name:        "editor_erase",
			Description: "Erase along a brush stroke (round caps). Strokes accumulate until editor_apply or editor_cancel.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withDisplayedSize(map[string]interface{}{
					"points": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x": map[string]interface{}{"type": "number"},
								"y": map[string]interface{}{"type": "number"},
							},
							"required": []string{"x", "y"},
						},
						"description": "Stroke path in displayed coordinates",
					},
					"brush_size": map[string]interface{}{
						"type":        "integer",
						"minimum":     1,
						"maximum":     100,
						"description": "Brush diameter in displayed pixels. Default 20",
						"default":     20,
					},
				}),
				"required": []string{"points"},
			},
		},
		{
			Name:        "editor_fill",
			Description: "Set the pending fill color. Transparent areas are painted with the opaque color.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color #RRGGBB. Default #ffffff",
						"default":     "#ffffff",
					},
				},
			},
		},
		{
			Name:        "editor_preview",
			Description: "Render the processed image with the pending edit applied.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"output_path": outputPathProp,
				},
			},
		},
		{
			Name:        "editor_apply",
			Description: "Commit the pending edit and return to idle.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "editor_cancel",
			Description: "Discard the pending edit and return to idle without changing the image.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Output
		{
			Name:        "image_download",
			Description: "Encode the result as PNG, JPEG or WebP. Standard downloads are fitted within the configured download size (1024px by default); HD keeps full resolution.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"png", "jpeg", "webp"},
						"description": "Output format. Default png",
						"default":     "png",
					},
					"quality": map[string]interface{}{
						"type":        "number",
						"description": "Quality in (0,1] for jpeg. Default 0.9",
					},
					"hd": map[string]interface{}{
						"type":        "boolean",
						"description": "Keep the natural resolution. Default false",
						"default":     false,
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "File or directory to write to. When omitted the bytes are returned base64-encoded",
					},
				},
			},
		},
	}
}
