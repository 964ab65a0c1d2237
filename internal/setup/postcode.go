package setup

import (
	"errors"
	"strings"
)

var (
	ErrInvalidPostcode = errors.New("invalid postcode")
	ErrNotFound        = errors.New("house not found")
)

// NormalizePostcode uppercases a UK postcode and puts it in "outward inward"
// form. Six and seven character inputs without a space get one inserted
// before the three character inward code. Only ASCII letters, digits and
// spaces are accepted.
func NormalizePostcode(postcode string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(postcode))
	for i := 0; i < len(p); i++ {
		if c := p[i]; !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == ' ') {
			return "", ErrInvalidPostcode
		}
	}

	switch strings.Count(p, " ") {
	case 0:
		switch len(p) {
		case 6:
			return p[:3] + " " + p[3:], nil
		case 7:
			return p[:4] + " " + p[4:], nil
		}
	case 1:
		if len(p) == 7 || len(p) == 8 {
			return p, nil
		}
	}
	return "", ErrInvalidPostcode
}
