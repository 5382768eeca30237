// Package demos embeds the gesture scripts shipped with suanpan.
//
// Each demo is an ordinary gesture script under scripts/<name>.txt. Its
// leading comment block is a header: the first line describes the demo and an
// optional "# rods: N" line gives the abacus width it was written for.
package demos

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed scripts
var scripts embed.FS

// ErrUnknown is returned by Lookup for a name with no script.
var ErrUnknown = errors.New("unknown demo")

// Demo describes one embedded script.
type Demo struct {
	Name        string
	Description string
	// Rods is the abacus width the script expects, or 0 when it does not say.
	Rods int
}

// FS returns the embedded scripts directory.
func FS() fs.FS {
	return scripts
}

// List returns every demo sorted by name.
func List() ([]Demo, error) {
	entries, err := fs.ReadDir(scripts, "scripts")
	if err != nil {
		return nil, fmt.Errorf("reading demos: %w", err)
	}

	out := make([]Demo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".txt" {
			continue
		}
		d, err := Lookup(strings.TrimSuffix(e.Name(), ".txt"))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Lookup returns the header of the named demo.
func Lookup(name string) (Demo, error) {
	data, err := Script(name)
	if err != nil {
		return Demo{}, err
	}
	d, err := parseHeader(data)
	if err != nil {
		return Demo{}, fmt.Errorf("demo %s: %w", name, err)
	}
	d.Name = name
	return d, nil
}

// Script returns the raw script of the named demo.
func Script(name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, `/\.`) {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	data, err := fs.ReadFile(scripts, "scripts/"+name+".txt")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return data, err
}

// parseHeader reads the comment lines before the first gesture.
func parseHeader(data []byte) (Demo, error) {
	var d Demo
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "#") {
			break
		}
		text := strings.TrimSpace(strings.TrimPrefix(line, "#"))
		if v, ok := strings.CutPrefix(text, "rods:"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < 1 {
				return Demo{}, fmt.Errorf("bad rods header %q", text)
			}
			d.Rods = n
			continue
		}
		if d.Description == "" {
			d.Description = text
		}
	}
	return d, sc.Err()
}
