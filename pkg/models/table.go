package models

// Table represents a parsed result table. The first row is the header.
type Table struct {
	Rows      [][]string        `json:"rows"`
	DataTypes map[string]string `json:"dataTypes"`
}

// Header returns the header row of the table.
func (t Table) Header() []string {
	if len(t.Rows) == 0 {
		return nil
	}

	return t.Rows[0]
}

// DataRows returns the table rows without the header.
func (t Table) DataRows() [][]string {
	if len(t.Rows) < 2 {
		return nil
	}

	return t.Rows[1:]
}
