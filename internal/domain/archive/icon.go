package archive

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
)

// ErrNoIcon is returned when an instance directory holds no icon file
var ErrNoIcon = errors.New("no icon found")

// iconExtensions in order of preference
var iconExtensions = []string{"png", "svg", "jpg", "jpeg", "gif", "ico"}

// Icon is an image file shipped inside an instance directory
type Icon struct {
	Path      string `json:"path"`
	MIME      string `json:"mime"`
	Extension string `json:"extension"`
}

// FindIcon returns the preferred icon.<ext> file in dir with its detected
// content type. Files whose content is not an image are ignored.
func FindIcon(dir string) (Icon, error) {
	pattern := "icon.{" + strings.Join(iconExtensions, ",") + "}"
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly(), doublestar.WithCaseInsensitive())
	if err != nil {
		return Icon{}, err
	}

	for _, ext := range iconExtensions {
		for _, match := range matches {
			if !strings.EqualFold(strings.TrimPrefix(path.Ext(match), "."), ext) {
				continue
			}

			full := filepath.Join(dir, filepath.FromSlash(match))
			mtype, err := mimetype.DetectFile(full)
			if err != nil {
				return Icon{}, err
			}
			if !isImage(mtype) {
				continue
			}
			return Icon{Path: full, MIME: mtype.String(), Extension: mtype.Extension()}, nil
		}
	}

	return Icon{}, ErrNoIcon
}

func isImage(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}
