package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config selects where and how a run is exported.
type Config struct {
	Directory string   `json:"directory"`
	Formats   []string `json:"formats"`
	Chart     bool     `json:"chart"`
}

var writers = map[string]func(io.Writer, []Row) error{
	"csv":  WriteCSV,
	"json": WriteJSON,
	"yaml": WriteYAML,
}

// SetDefaults exports CSV into the working directory.
func (c *Config) SetDefaults() {
	if c.Directory == "" {
		c.Directory = "."
	}
	if len(c.Formats) == 0 {
		c.Formats = []string{"csv"}
	}
}

// Validate rejects unknown formats.
func (c Config) Validate() error {
	var errs []error
	for _, f := range c.Formats {
		if _, ok := writers[strings.ToLower(f)]; !ok {
			errs = append(errs, fmt.Errorf("export: unknown format %q", f))
		}
	}
	return errors.Join(errs...)
}

// WriteFiles writes <name>.<format> for every configured format and, when
// enabled, <name>.html with the objective chart. It returns the paths written.
func WriteFiles(c Config, name string, rows []Row, points []Point) ([]string, error) {
	if err := os.MkdirAll(c.Directory, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	for _, f := range c.Formats {
		f = strings.ToLower(f)
		write, ok := writers[f]
		if !ok {
			return paths, fmt.Errorf("export: unknown format %q", f)
		}
		path := filepath.Join(c.Directory, name+"."+f)
		if err := writeFile(path, func(w io.Writer) error { return write(w, rows) }); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	if c.Chart && len(points) > 0 {
		path := filepath.Join(c.Directory, name+".html")
		if err := writeFile(path, func(w io.Writer) error {
			return WriteObjectiveChart(w, "Objective of "+name, points)
		}); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
