package filters

// Kind selects how a filter value is interpreted for a column.
type Kind int

const (
	// KindText matches case-insensitive substrings.
	KindText Kind = iota
	// KindIdentifier matches exactly, used for id and foreign key columns.
	KindIdentifier
	// KindEnum matches exactly against a fixed value set stored as text.
	KindEnum
	// KindBoolean accepts true/1/yes as true, anything else as false.
	KindBoolean
	// KindInteger parses the value as a whole number and matches exactly.
	KindInteger
	// KindNumeric parses the value as a decimal number and matches exactly.
	KindNumeric
)

// Schema maps filterable column names to their kinds. Query parameters that
// name a column absent from the schema are ignored.
type Schema map[string]Kind

// rangeKind reports whether _from/_to suffixed parameters apply to the kind.
func (k Kind) rangeable() bool {
	return k == KindInteger || k == KindNumeric
}
