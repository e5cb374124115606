package util

// SanitizeFilename turns a project name into a filename stem:
// "My Project: v2" -> "My_Project_v2".
func SanitizeFilename(name string) string {
	var b []rune
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b = append(b, r)
			lastUnderscore = false
		default:
			if !lastUnderscore && len(b) > 0 {
				b = append(b, '_')
				lastUnderscore = true
			}
		}
	}
	s := string(b)
	for len(s) > 0 && s[len(s)-1] == '_' {
		s = s[:len(s)-1]
	}
	if s == "" {
		return "Project"
	}
	return s
}
