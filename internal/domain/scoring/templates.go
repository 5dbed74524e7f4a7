package scoring

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/okian/wandbrain/internal/domain/model"
)

// ListTemplates enumerates *.png files in dir sorted by file name.
// A missing directory yields an empty list.
func ListTemplates(dir string) ([]model.TemplateRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.TemplateRef{}, nil
		}
		return nil, fmt.Errorf("list templates in %s: %w", dir, err)
	}

	out := make([]model.TemplateRef, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".png" {
			continue
		}
		out = append(out, refFromPath(filepath.Join(dir, e.Name())))
	}
	sort.Slice(out, func(i, j int) bool { return filepath.Base(out[i].Path) < filepath.Base(out[j].Path) })
	return out, nil
}

// FindTemplate returns the template with the given id.
func FindTemplate(templates []model.TemplateRef, id string) (model.TemplateRef, error) {
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return model.TemplateRef{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
}

// DisplayName turns a template id like "circle_v1" into "Circle V1". Words
// follow Unicode segmentation, so a letter after a digit stays lower case
// ("a1b" becomes "A1b").
func DisplayName(id string) string {
	// Casers are stateful and must not be shared between goroutines.
	return cases.Title(language.Und).String(strings.ReplaceAll(id, "_", " "))
}

func refFromPath(path string) model.TemplateRef {
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return model.TemplateRef{ID: id, Name: DisplayName(id), Path: path}
}
