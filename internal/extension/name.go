package extension

// ValidateName reports whether name is a valid extension identifier.
//
// A valid name is one or more dot-separated segments. Each segment starts
// with an ASCII letter and continues with letters, digits, or underscores.
// Leading, trailing, or consecutive dots are invalid, as is any character
// outside [A-Za-z0-9_.].
func ValidateName(name string) bool {
	dotAllowed := false
	digitOrUnderscoreAllowed := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= '0' && c <= '9':
			if !digitOrUnderscoreAllowed {
				return false
			}
		case c == '_':
			if !digitOrUnderscoreAllowed {
				return false
			}
		case c == '.':
			if !dotAllowed {
				return false
			}
			dotAllowed = false
			digitOrUnderscoreAllowed = false
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			dotAllowed = true
			digitOrUnderscoreAllowed = true
		default:
			return false
		}
	}

	// Finishing with dotAllowed set means the name is non-empty and the
	// last character was not a dot, so every segment is complete.
	return dotAllowed
}
