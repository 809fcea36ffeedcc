package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBoard reads "path[,z=N][,x=N][,y=N]". Options are peeled off from the
// right, so a path may itself contain commas.
func ParseBoard(s string) (BoardSpec, error) {
	var b BoardSpec
	rest := strings.TrimSpace(s)
	seen := map[string]bool{}

	for {
		i := strings.LastIndex(rest, ",")
		if i < 0 {
			break
		}
		key, val, ok := strings.Cut(strings.TrimSpace(rest[i+1:]), "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || (key != "z" && key != "x" && key != "y") {
			break
		}
		if seen[key] {
			return b, fmt.Errorf("%w: board %q sets %s twice", ErrInvalid, s, key)
		}
		seen[key] = true

		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return b, fmt.Errorf("%w: board %q: bad %s value %q", ErrInvalid, s, key, val)
		}
		switch key {
		case "z":
			b.ZOffset = n
		case "x":
			b.Shift.X = n
		case "y":
			b.Shift.Y = n
		}
		rest = rest[:i]
	}

	b.Path = strings.TrimSpace(rest)
	if b.Path == "" {
		return b, fmt.Errorf("%w: board %q has no path", ErrInvalid, s)
	}
	return b, nil
}

// String formats the board back into flag syntax.
func (b BoardSpec) String() string {
	var sb strings.Builder
	sb.WriteString(b.Path)
	if b.ZOffset != 0 {
		fmt.Fprintf(&sb, ",z=%g", b.ZOffset)
	}
	if b.Shift.X != 0 {
		fmt.Fprintf(&sb, ",x=%g", b.Shift.X)
	}
	if b.Shift.Y != 0 {
		fmt.Fprintf(&sb, ",y=%g", b.Shift.Y)
	}
	return sb.String()
}

// boardList is a repeatable -board flag. The first explicit value replaces
// boards loaded from a job file.
type boardList struct {
	boards *[]BoardSpec
	set    bool
}

func (l *boardList) String() string {
	if l.boards == nil {
		return ""
	}
	parts := make([]string, len(*l.boards))
	for i, b := range *l.boards {
		parts[i] = b.String()
	}
	return strings.Join(parts, " ")
}

func (l *boardList) Set(v string) error {
	b, err := ParseBoard(v)
	if err != nil {
		return err
	}
	if !l.set {
		*l.boards = nil
		l.set = true
	}
	*l.boards = append(*l.boards, b)
	return nil
}
