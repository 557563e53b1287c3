package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
)

// FilterStore indexes the filter registry for menu selection.
type FilterStore struct {
	Filters []stdimg.FilterSpec
	byName  map[string]stdimg.FilterSpec
}

func NewFilterStore(filters []stdimg.FilterSpec) *FilterStore {
	m := &FilterStore{Filters: filters, byName: make(map[string]stdimg.FilterSpec, len(filters))}
	for _, f := range filters {
		m.byName[f.Name] = f
	}
	return m
}

// Tooltip describes a filter and how its intensity dial maps.
func (m *FilterStore) Tooltip(name string) (string, error) {
	f, ok := m.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", stdimg.ErrUnknownFilter, name)
	}
	var sb strings.Builder
	sb.WriteString(f.Label)
	sb.WriteString(": ")
	if f.Description != "" {
		sb.WriteString(f.Description)
	} else {
		sb.WriteString("No description")
	}
	if f.Family == stdimg.FamilyEngine {
		sb.WriteString(" (applies to the current canvas)")
	} else {
		sb.WriteString(" (replaces the canvas with the filtered original)")
	}
	fmt.Fprintf(&sb, "\n- intensity %d..%d, default %d: %s", stdimg.MinIntensity, stdimg.MaxIntensity, stdimg.DefaultIntensity, f.Intensity)
	return sb.String(), nil
}

// Resolve turns a menu answer into a filter name. It accepts a 1-based
// index, an exact name or an unambiguous prefix.
func (m *FilterStore) Resolve(selection string) (string, error) {
	sel := strings.ToLower(strings.TrimSpace(selection))
	if sel == "" {
		return "", fmt.Errorf("selection cancelled")
	}
	if idx, err := strconv.Atoi(sel); err == nil {
		if idx < 1 || idx > len(m.Filters) {
			return "", fmt.Errorf("invalid selection: %d", idx)
		}
		return m.Filters[idx-1].Name, nil
	}
	if _, ok := m.byName[sel]; ok {
		return sel, nil
	}
	var matches []string
	for _, f := range m.Filters {
		if strings.HasPrefix(f.Name, sel) {
			matches = append(matches, f.Name)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", stdimg.ErrUnknownFilter, selection)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous selection %q, candidates: %s", selection, strings.Join(matches, ", "))
	}
}

// ParseIntensity reads the intensity dial. Empty input selects the default.
func ParseIntensity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return stdimg.DefaultIntensity, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid intensity: %q", s)
	}
	if v < stdimg.MinIntensity || v > stdimg.MaxIntensity {
		return 0, fmt.Errorf("intensity %d out of range %d..%d", v, stdimg.MinIntensity, stdimg.MaxIntensity)
	}
	return v, nil
}
