package runtime

// forLoopDrop builds the `forloop` variable bound inside a `for` body (spec
// §3 "forloop drop"): 1-indexed/0-indexed position from both ends, plus
// first/last/length conveniences. parent is the enclosing loop's own drop
// (nil at the outermost level), exposed as `forloop.parentloop` so a nested
// `for` body can reach its ancestor's position.
func forLoopDrop(index, length int, parent map[string]any) map[string]any {
	var parentloop any
	if parent != nil {
		parentloop = parent
	}
	return map[string]any{
		"index":      int64(index + 1),
		"index0":     int64(index),
		"rindex":     int64(length - index),
		"rindex0":    int64(length - index - 1),
		"first":      index == 0,
		"last":       index == length-1,
		"length":     int64(length),
		"parentloop": parentloop,
	}
}

// tableRowLoopDrop builds the `tablerowloop` variable (spec §3): adds
// column position within the current row, and the row counter itself, on
// top of forLoopDrop's fields.
func tableRowLoopDrop(index, length, col, cols, row int) map[string]any {
	d := forLoopDrop(index, length, nil)
	d["col"] = int64(col + 1)
	d["col0"] = int64(col)
	d["col_first"] = col == 0
	d["col_last"] = col == cols-1
	d["row"] = int64(row)
	return d
}
