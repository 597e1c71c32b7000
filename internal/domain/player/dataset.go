package player

// Dataset is a full-table snapshot handed from one stage to the next.
// Columns lists the raw input columns in first-seen order.
type Dataset struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

func (d Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

func (d Dataset) ColumnSet() map[string]struct{} {
	out := make(map[string]struct{}, len(d.Columns))
	for _, c := range d.Columns {
		out[c] = struct{}{}
	}
	return out
}

// Clone returns an independent copy. Stages transform clones and never touch
// the dataset they were given.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Columns: append([]string(nil), d.Columns...),
		Records: make([]Record, len(d.Records)),
	}
	for i, r := range d.Records {
		out.Records[i] = r.Clone()
	}
	return out
}

// WithColumn appends name to Columns when missing.
func (d *Dataset) WithColumn(name string) {
	if d.HasColumn(name) {
		return
	}
	d.Columns = append(d.Columns, name)
}
