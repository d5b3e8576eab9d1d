package compress

import (
	"fmt"
	"path"
	"strings"
)

// NamingMode selects how output files are named.
type NamingMode int

const (
	// KeepOriginal reuses each input's own file name.
	KeepOriginal NamingMode = iota
	// Grouped numbers outputs sequentially under a shared label.
	Grouped
	// Individual uses a caller-supplied name per item.
	Individual
)

// ParseNamingMode maps the wire value from the upload form to a mode.
func ParseNamingMode(s string) (NamingMode, error) {
	switch s {
	case "", "keep":
		return KeepOriginal, nil
	case "grouped":
		return Grouped, nil
	case "individual":
		return Individual, nil
	}
	return 0, fmt.Errorf("unknown naming mode %q", s)
}

// Namer assigns deterministic output names. It is driven by the collector
// goroutine only, in input order, so it needs no locking.
type Namer struct {
	mode       NamingMode
	groupLabel string
	custom     []string

	seq  int
	next int
	seen map[string]int
}

func KeepOriginalNamer() *Namer {
	return &Namer{mode: KeepOriginal, seen: make(map[string]int)}
}

func GroupedNamer(label string) *Namer {
	return &Namer{mode: Grouped, groupLabel: label}
}

func IndividualNamer(names []string) *Namer {
	return &Namer{mode: Individual, custom: names, seen: make(map[string]int)}
}

// Name returns the output name for the next successful item. untouched marks
// results whose original bytes were kept; everything else is a JPEG and gets
// a .jpg extension regardless of the source format.
func (n *Namer) Name(originalName string, untouched bool) (string, error) {
	ext := strings.ToLower(path.Ext(originalName))
	if !untouched || ext == "" {
		ext = ".jpg"
	}

	switch n.mode {
	case Grouped:
		n.seq++
		return fmt.Sprintf("%s_%03d%s", n.groupLabel, n.seq, ext), nil

	case Individual:
		if n.next >= len(n.custom) {
			return "", ErrNameExhausted
		}
		name := strings.TrimSpace(n.custom[n.next])
		n.next++
		if err := validateName(name); err != nil {
			return "", err
		}
		return n.dedup(name + ext), nil

	default:
		base := strings.TrimSuffix(path.Base(originalName), path.Ext(originalName))
		if base == "" {
			base = "billede"
		}
		return n.dedup(base + ext), nil
	}
}

// Skip advances the custom-name cursor past a failed item so later items
// keep the names intended for them.
func (n *Namer) Skip() {
	if n.mode == Individual {
		n.next++
	}
}

// dedup appends a numeric suffix on repeated names, in first-seen order.
func (n *Namer) dedup(name string) string {
	count := n.seen[name]
	n.seen[name]++
	if count == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), count, ext)
}

const unsafeChars = `/\<>:"|?*`

// validateName rejects names that could escape the output folder or that a
// filesystem would refuse.
func validateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if strings.ContainsAny(name, unsafeChars) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	for _, r := range name {
		if r < 0x20 {
			return fmt.Errorf("%w: %q", ErrUnsafeName, name)
		}
	}
	return nil
}
