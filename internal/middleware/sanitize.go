package middleware

// RedactionMarker replaces the value of any sensitive field captured into the
// audit log.
const RedactionMarker = "***REDACTED***"

// sensitiveKeys lists field names whose values must never be persisted.
// Matching is exact on the lowercase key.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"client_secret": {},
	"secret":        {},
	"token":         {},
	"access_token":  {},
	"refresh_token": {},
	"api_key":       {},
	"apikey":        {},
	"authorization": {},
}

// Sanitize walks a decoded JSON document and replaces the values of
// sensitive keys with the redaction marker, recursing through nested objects
// and arrays. The input is modified in place and returned.
func Sanitize(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, nested := range typed {
			if _, sensitive := sensitiveKeys[lowerASCII(key)]; sensitive {
				typed[key] = RedactionMarker
				continue
			}
			typed[key] = Sanitize(nested)
		}
		return typed
	case []any:
		for i, nested := range typed {
			typed[i] = Sanitize(nested)
		}
		return typed
	default:
		return value
	}
}

// lowerASCII avoids pulling unicode case tables for what are known ASCII
// field names.
func lowerASCII(s string) string {
	lowered := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		lowered[i] = ch
	}
	return string(lowered)
}
