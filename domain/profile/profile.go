// Package profile locates template profiles on disk and loads their images.
// A profile is a directory under the profiles root; each PNG inside is one
// template named after its file stem.
package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/maruel/natural"

	"github.com/soocke/autodl-bot-go/domain/vision"
)

var (
	ErrNoProfiles      = errors.New("no profiles found")
	ErrProfileNotFound = errors.New("profile not found")
)

// Category is derived from a template's name prefix.
type Category int

const (
	Primary Category = iota
	Secondary
	Stop
	// Confirmation templates are only polled after a secondary click and
	// never clicked themselves.
	Confirmation
)

const stopPrefix = "stop_"

func (c Category) String() string {
	switch c {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case Stop:
		return "stop"
	case Confirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// Naming holds the prefixes that drive classification.
type Naming struct {
	SecondaryPrefix      string
	ConfirmationTemplate string
}

// Classify maps a template name onto its category. Matching is
// case-insensitive; the confirmation prefix wins over the secondary prefix
// it usually shares.
func (n Naming) Classify(name string) Category {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, stopPrefix):
		return Stop
	case n.ConfirmationTemplate != "" && strings.HasPrefix(lower, strings.ToLower(n.ConfirmationTemplate)):
		return Confirmation
	case n.SecondaryPrefix != "" && strings.HasPrefix(lower, strings.ToLower(n.SecondaryPrefix)):
		return Secondary
	default:
		return Primary
	}
}

// Template is a loaded reference image with its category.
type Template struct {
	vision.Template
	Category Category
}

// Info summarizes one profile directory.
type Info struct {
	Name      string
	Templates int
}

// List returns the profiles under root in natural order.
func List(root string) ([]Info, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoProfiles
		}
		return nil, fmt.Errorf("read profiles dir: %w", err)
	}
	var out []Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, err := templateFiles(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, Info{Name: e.Name(), Templates: len(files)})
	}
	if len(out) == 0 {
		return nil, ErrNoProfiles
	}
	slices.SortFunc(out, func(a, b Info) int { return compareHuman(a.Name, b.Name) })
	return out, nil
}

// Resolve returns requested when it names an existing profile, otherwise the
// first profile in natural order. The fallback is logged.
func Resolve(root, requested string, logger *slog.Logger) (string, error) {
	profiles, err := List(root)
	if err != nil {
		return "", err
	}
	if requested != "" && validName(requested) {
		for _, p := range profiles {
			if p.Name == requested {
				return requested, nil
			}
		}
	}
	chosen := profiles[0].Name
	if logger != nil {
		logger.Warn("active profile unavailable, falling back", "requested", requested, "profile", chosen)
	}
	return chosen, nil
}

func validName(name string) bool {
	return name != "." && name != ".." && !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func templateFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, filepath.Base(dir))
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		files = append(files, e.Name())
	}
	slices.SortFunc(files, func(a, b string) int { return compareHuman(stem(a), stem(b)) })
	return files, nil
}

func stem(file string) string { return strings.TrimSuffix(file, filepath.Ext(file)) }

// HumanLess orders strings with embedded numbers by numeric value, so
// "btn2" sorts before "btn10". Text compares case-insensitively; names
// differing only in case fall back to byte order.
func HumanLess(a, b string) bool { return compareHuman(a, b) < 0 }

func compareHuman(a, b string) int {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	switch {
	case natural.Less(la, lb):
		return -1
	case natural.Less(lb, la):
		return 1
	}
	return strings.Compare(a, b)
}
