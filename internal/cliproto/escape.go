package cliproto

// DecodeInjectKeys decodes the escape sequences `inject keys` accepts —
// `\n \t \r \s \e \\` with `\s` meaning space and `\e` meaning 0x1B — into
// the raw bytes to forward to the emulator (spec §4.5 "inject keys
// <escaped-string>", §9 Open Question "preserve literally for wire
// compatibility"). Every other byte passes through unchanged. A trailing
// or unrecognised escape is a parse error rather than silently dropped.
func DecodeInjectKeys(escaped string) ([]byte, error) {
	out := make([]byte, 0, len(escaped))

	for i := 0; i < len(escaped); i++ {
		c := escaped[i]
		if c != '\\' {
			out = append(out, c)

			continue
		}

		i++
		if i >= len(escaped) {
			return nil, newParseError(ErrInvalidValue, "trailing backslash in "+escaped)
		}

		switch escaped[i] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case 's':
			out = append(out, ' ')
		case 'e':
			out = append(out, 0x1B)
		case '\\':
			out = append(out, '\\')
		default:
			return nil, newParseError(ErrInvalidValue, "unknown escape \\"+string(escaped[i])+" in "+escaped)
		}
	}

	return out, nil
}
