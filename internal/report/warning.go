package report

import (
	"fmt"
	"sort"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Warning codes.
const (
	CodeUnresolvedImport   = "unresolved_import"
	CodeCircularDependency = "circular_dependency"
	CodeOversizedMember    = "oversized_member"
	CodeOversizedTrait     = "oversized_trait_block"
	CodeAliasCycle         = "alias_cycle"
)

// Warning is a recoverable problem found during a run. Unit is set when the
// warning belongs to one generated unit.
type Warning struct {
	Code     string   `json:"code"`
	Stage    string   `json:"stage"`
	Severity Severity `json:"severity"`
	Unit     string   `json:"unit,omitempty"`
	Subject  string   `json:"subject,omitempty"`
	Message  string   `json:"message"`
}

func (w Warning) String() string {
	if w.Unit != "" {
		return fmt.Sprintf("[%s] %s: %s", w.Code, w.Unit, w.Message)
	}
	return fmt.Sprintf("[%s] %s", w.Code, w.Message)
}

// Collector accumulates warnings from every stage of one run. It is not
// safe for concurrent use; each pipeline run owns its own collector.
type Collector struct {
	warnings []Warning
	seen     map[string]bool
}

func NewCollector() *Collector {
	return &Collector{seen: make(map[string]bool)}
}

// Add records a warning, dropping exact duplicates.
func (c *Collector) Add(w Warning) {
	if w.Severity == "" {
		w.Severity = SeverityWarning
	}
	key := w.Code + "\x00" + w.Stage + "\x00" + w.Unit + "\x00" + w.Subject + "\x00" + w.Message
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.warnings = append(c.warnings, w)
}

func (c *Collector) AddAll(ws []Warning) {
	for _, w := range ws {
		c.Add(w)
	}
}

func (c *Collector) Len() int {
	return len(c.warnings)
}

// Warnings returns the recorded warnings in the order they were added.
func (c *Collector) Warnings() []Warning {
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// ForUnit returns the warnings attached to one unit.
func (c *Collector) ForUnit(unit string) []Warning {
	var out []Warning
	for _, w := range c.warnings {
		if w.Unit == unit {
			out = append(out, w)
		}
	}
	return out
}

// CountByCode is used for report counters.
func (c *Collector) CountByCode() map[string]int {
	out := make(map[string]int)
	for _, w := range c.warnings {
		out[w.Code]++
	}
	return out
}

// Codes returns the distinct codes in sorted order.
func (c *Collector) Codes() []string {
	counts := c.CountByCode()
	out := make([]string, 0, len(counts))
	for code := range counts {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
