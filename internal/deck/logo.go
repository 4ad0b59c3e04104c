// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deck

import (
	"fmt"
	"net/http"
	"os"
)

// LoadLogo reads an image file for embedding. An empty path returns nil.
func LoadLogo(path string) (*Logo, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading logo %s: %w", path, err)
	}
	return &Logo{Data: data, MimeType: http.DetectContentType(data)}, nil
}
