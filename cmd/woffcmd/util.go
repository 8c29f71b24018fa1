package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tdewolff/prompt"
)

func formatBytes(size uint64) string {
	if size < 10 {
		return fmt.Sprintf("%d B", size)
	}

	units := []string{"B", "kB", "MB", "GB", "TB", "PB", "EB"}
	scale := int(math.Floor((math.Log10(float64(size)) + math.Log10(2.0)) / 3.0))
	value := float64(size) / math.Pow10(scale*3.0)
	format := "%.0f %s"
	if value < 10.0 {
		format = "%.1f %s"
	}
	return fmt.Sprintf(format, value, units[scale])
}

// outputPath derives "<stem>_<suffix><ext>" from input when explicit is "".
// If the derived (or explicit) path already exists, it is returned as is
// when force is set or when the user confirms the overwrite at the prompt;
// otherwise a Unix-timestamp suffix is appended to the file name.
func outputPath(input, explicit, suffix, ext string, force bool) (string, error) {
	path := explicit
	if path == "" {
		dir := filepath.Dir(input)
		stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		path = filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, suffix, ext))
	}
	if _, err := os.Stat(path); err == nil {
		if force {
			return path, nil
		}
		if prompt.YesNo(fmt.Sprintf("%s already exists, overwrite?", path), false) {
			return path, nil
		}
		dir := filepath.Dir(path)
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		extOnly := filepath.Ext(path)
		return filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, time.Now().Unix(), extOnly)), nil
	} else if !os.IsNotExist(err) {
		return "", err
	}
	return path, nil
}
