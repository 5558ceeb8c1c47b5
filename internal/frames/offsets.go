package frames

// Offsets maps reference frame -> source index -> signed frame offset.
// Absence of an entry means offset 0. Entries are pruned when a frame
// is removed and re-keyed when a frame is edited, so the table never
// holds rows for frames that are no longer in the list.
type Offsets struct {
	table map[int]map[int]int
}

// NewOffsets returns an empty offset table.
func NewOffsets() *Offsets {
	return &Offsets{table: make(map[int]map[int]int)}
}

// Get returns the offset for (frame, source), defaulting to 0.
func (o *Offsets) Get(frame, source int) int {
	return o.table[frame][source]
}

// Set records an offset. A zero offset is stored explicitly; callers
// that want to drop a row remove the frame instead.
func (o *Offsets) Set(frame, source, offset int) {
	row, ok := o.table[frame]
	if !ok {
		row = make(map[int]int)
		o.table[frame] = row
	}
	row[source] = offset
}

// Row returns a copy of the per-source offsets for a frame.
func (o *Offsets) Row(frame int) map[int]int {
	row := o.table[frame]
	out := make(map[int]int, len(row))
	for src, off := range row {
		out[src] = off
	}
	return out
}

// RemoveFrame prunes all offsets for a frame.
func (o *Offsets) RemoveFrame(frame int) {
	delete(o.table, frame)
}

// RekeyFrame moves the offsets stored under oldFrame to newFrame.
// Offsets already present under newFrame are replaced.
func (o *Offsets) RekeyFrame(oldFrame, newFrame int) {
	row, ok := o.table[oldFrame]
	if !ok {
		return
	}
	delete(o.table, oldFrame)
	o.table[newFrame] = row
}

// Frames lists the frames that have at least one stored offset.
func (o *Offsets) Frames() []int {
	out := make([]int, 0, len(o.table))
	for f := range o.table {
		out = append(out, f)
	}
	return out
}

// Snapshot deep-copies the whole table. Worker operations take a
// snapshot so concurrent UI edits cannot race the upload.
func (o *Offsets) Snapshot() map[int]map[int]int {
	out := make(map[int]map[int]int, len(o.table))
	for f, row := range o.table {
		cp := make(map[int]int, len(row))
		for src, off := range row {
			cp[src] = off
		}
		out[f] = cp
	}
	return out
}

// Restore replaces the table with the given rows. Nil rows are skipped.
func (o *Offsets) Restore(rows map[int]map[int]int) {
	o.table = make(map[int]map[int]int, len(rows))
	for f, row := range rows {
		if row == nil {
			continue
		}
		cp := make(map[int]int, len(row))
		for src, off := range row {
			cp[src] = off
		}
		o.table[f] = cp
	}
}

// BindList wires the offset-table maintenance rules to list mutations:
// prune on remove, re-key on edit.
func (o *Offsets) BindList(l *List) {
	l.OnChange(func(c Change) {
		switch c.Kind {
		case ChangeRemove:
			o.RemoveFrame(c.Frame)
		case ChangeEdit:
			o.RekeyFrame(c.OldFrame, c.Frame)
		}
	})
}

// Effective computes the offset-corrected frame for one source,
// clamped to [0, totalFrames-1]. The result is derived, never stored.
func Effective(ref, offset, totalFrames int) int {
	target := ref + offset
	if target < 0 {
		return 0
	}
	if max := totalFrames - 1; target > max {
		return max
	}
	return target
}
