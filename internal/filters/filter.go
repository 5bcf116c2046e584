package filters

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tidecrm/tide/pkg/logger"
)

// Apply chains WHERE clauses for every recognised filter parameter onto the
// query. Unknown parameters are ignored and unparsable values are skipped,
// so one bad filter never fails the whole request.
func Apply(db *gorm.DB, schema Schema, params Params) *gorm.DB {
	for _, name := range params.sortedNames() {
		values := params[name]

		if column, op, ok := splitRangeParam(name); ok {
			if kind, known := schema[column]; known && kind.rangeable() {
				db = applyRange(db, column, op, kind, values[0])
				continue
			}
		}

		kind, known := schema[name]
		if !known {
			continue
		}

		switch kind {
		case KindIdentifier, KindEnum:
			db = applyExact(db, name, values)
		case KindBoolean:
			db = db.Where(name+" = ?", parseBool(values[0]))
		case KindInteger:
			if parsed, ok := parseInts(name, values); ok {
				db = applyExactAny(db, name, parsed)
			}
		case KindNumeric:
			if parsed, ok := parseFloats(name, values); ok {
				db = applyExactAny(db, name, parsed)
			}
		default:
			db = applySubstring(db, name, values)
		}
	}
	return db
}

// splitRangeParam recognises the _from/_to suffix convention and returns the
// base column with the comparison operator.
func splitRangeParam(name string) (column, op string, ok bool) {
	if column, found := strings.CutSuffix(name, "_from"); found && column != "" {
		return column, ">=", true
	}
	if column, found := strings.CutSuffix(name, "_to"); found && column != "" {
		return column, "<=", true
	}
	return "", "", false
}

func applyRange(db *gorm.DB, column, op string, kind Kind, raw string) *gorm.DB {
	switch kind {
	case KindInteger:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logSkip(column, raw, err)
			return db
		}
		return db.Where(column+" "+op+" ?", v)
	default:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			logSkip(column, raw, err)
			return db
		}
		return db.Where(column+" "+op+" ?", v)
	}
}

func applyExact(db *gorm.DB, column string, values []string) *gorm.DB {
	if len(values) == 1 {
		return db.Where(column+" = ?", values[0])
	}
	return db.Where(column+" IN ?", values)
}

func applyExactAny[T any](db *gorm.DB, column string, values []T) *gorm.DB {
	if len(values) == 1 {
		return db.Where(column+" = ?", values[0])
	}
	return db.Where(column+" IN ?", values)
}

func applySubstring(db *gorm.DB, column string, values []string) *gorm.DB {
	clause := "lower(" + column + ") LIKE ?"
	if len(values) == 1 {
		return db.Where(clause, pattern(values[0]))
	}

	grouped := db.Session(&gorm.Session{NewDB: true}).Where(clause, pattern(values[0]))
	for _, v := range values[1:] {
		grouped = grouped.Or(clause, pattern(v))
	}
	return db.Where(grouped)
}

func pattern(value string) string {
	return "%" + strings.ToLower(value) + "%"
}

func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func parseInts(column string, values []string) ([]int64, bool) {
	parsed := make([]int64, 0, len(values))
	for _, raw := range values {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logSkip(column, raw, err)
			continue
		}
		parsed = append(parsed, v)
	}
	return parsed, len(parsed) > 0
}

func parseFloats(column string, values []string) ([]float64, bool) {
	parsed := make([]float64, 0, len(values))
	for _, raw := range values {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			logSkip(column, raw, err)
			continue
		}
		parsed = append(parsed, v)
	}
	return parsed, len(parsed) > 0
}

func logSkip(column, value string, err error) {
	logger.Debug("skipping unparsable filter value",
		zap.String("column", column),
		zap.String("value", value),
		zap.Error(err),
	)
}
