package startup

import "strings"

// FilterEntries returns the entries whose name, command, raw value or source
// label contains query, ignoring case. An empty query returns entries unchanged.
func FilterEntries(entries []Entry, query string) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return entries
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name), q) ||
			strings.Contains(strings.ToLower(e.Exe), q) ||
			strings.Contains(strings.ToLower(e.Value), q) ||
			strings.Contains(strings.ToLower(e.Source.String()), q) {
			out = append(out, e)
		}
	}
	return out
}

// FilterDisabled is FilterEntries for side-store items, matching name and origin.
func FilterDisabled(entries []DisabledEntry, query string) []DisabledEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return entries
	}

	out := make([]DisabledEntry, 0, len(entries))
	for _, d := range entries {
		if strings.Contains(strings.ToLower(d.EntryName()), q) ||
			strings.Contains(strings.ToLower(d.Origin()), q) {
			out = append(out, d)
		}
	}
	return out
}

// FindEntry returns the first entry whose name equals name, ignoring case.
func FindEntry(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// FindDisabled returns the first side-store item named name, ignoring case.
func FindDisabled(entries []DisabledEntry, name string) (DisabledEntry, bool) {
	for _, d := range entries {
		if strings.EqualFold(d.EntryName(), name) {
			return d, true
		}
	}
	return nil, false
}
