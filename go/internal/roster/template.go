package roster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Slot is one entry in a roster template. Eligible lists the item positions
// that may fill the slot; flex-style slots list several.
type Slot struct {
	Name     string   `json:"name" yaml:"name"`
	Eligible []string `json:"eligible" yaml:"eligible"`
}

// Template is an ordered set of roster slots. A room freezes its template
// at the FORMING -> STARTING transition; the draft engine derives slot
// eligibility from the frozen copy only.
type Template struct {
	Slots []Slot `json:"slots" yaml:"slots"`
}

// DefaultTemplate returns the stock single-sport template used for rooms
// created by the formation scheduler when no template file is configured.
func DefaultTemplate() Template {
	return Template{Slots: []Slot{
		{Name: "QB", Eligible: []string{"QB"}},
		{Name: "RB1", Eligible: []string{"RB"}},
		{Name: "RB2", Eligible: []string{"RB"}},
		{Name: "WR1", Eligible: []string{"WR"}},
		{Name: "WR2", Eligible: []string{"WR"}},
		{Name: "TE", Eligible: []string{"TE"}},
		{Name: "FLEX", Eligible: []string{"RB", "WR", "TE"}},
		{Name: "DST", Eligible: []string{"DST"}},
		{Name: "K", Eligible: []string{"K"}},
		{Name: "BN1", Eligible: []string{"QB", "RB", "WR", "TE", "DST", "K"}},
		{Name: "BN2", Eligible: []string{"QB", "RB", "WR", "TE", "DST", "K"}},
		{Name: "BN3", Eligible: []string{"QB", "RB", "WR", "TE", "DST", "K"}},
	}}
}

// LoadTemplate reads a roster template from a YAML file.
func LoadTemplate(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("failed to read roster template: %w", err)
	}

	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return Template{}, fmt.Errorf("failed to parse roster template: %w", err)
	}
	if len(tmpl.Slots) == 0 {
		return Template{}, fmt.Errorf("roster template %s has no slots", path)
	}

	return tmpl, nil
}

// TotalSlots is the number of picks one membership makes over a full draft.
func (t Template) TotalSlots() int {
	return len(t.Slots)
}

// Empty reports whether the template has no slots (an unfrozen room).
func (t Template) Empty() bool {
	return len(t.Slots) == 0
}

// assign greedily maps held item position-sets onto slots in template order
// and returns the per-slot taken flags. Single-position items bind their
// only slot type; multi-position items take the first open slot that
// accepts any of their positions.
func (t Template) assign(held [][]string) []bool {
	taken := make([]bool, len(t.Slots))
	for _, positions := range held {
		for i, slot := range t.Slots {
			if taken[i] {
				continue
			}
			if slotAccepts(slot, positions) {
				taken[i] = true
				break
			}
		}
	}
	return taken
}

// OpenSlotPositions returns the union of positions accepted by slots still
// structurally open after the held items are assigned. This drives tier one
// of the auto-pick strategy.
func (t Template) OpenSlotPositions(held [][]string) []string {
	taken := t.assign(held)
	seen := make(map[string]bool)
	var open []string
	for i, slot := range t.Slots {
		if taken[i] {
			continue
		}
		for _, pos := range slot.Eligible {
			if !seen[pos] {
				seen[pos] = true
				open = append(open, pos)
			}
		}
	}
	return open
}

// OpenCapacityPositions returns the positions for which the membership still
// holds fewer items than the template has slots accepting that position.
// This drives tier two of the auto-pick strategy.
func (t Template) OpenCapacityPositions(held [][]string) []string {
	capacity := make(map[string]int)
	for _, slot := range t.Slots {
		for _, pos := range slot.Eligible {
			capacity[pos]++
		}
	}

	heldCount := make(map[string]int)
	for _, positions := range held {
		for _, pos := range positions {
			heldCount[pos]++
		}
	}

	var open []string
	for _, slot := range t.Slots {
		for _, pos := range slot.Eligible {
			if capacity[pos] <= 0 {
				continue
			}
			if heldCount[pos] < capacity[pos] {
				open = append(open, pos)
				capacity[pos] = 0 // dedupe
			}
		}
	}
	return open
}

func slotAccepts(slot Slot, positions []string) bool {
	for _, want := range slot.Eligible {
		for _, have := range positions {
			if want == have {
				return true
			}
		}
	}
	return false
}
