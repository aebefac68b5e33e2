package util

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrFormat is matched by every FormatError.
var ErrFormat = errors.New("malformed IPv4 address")

// FormatError describes why a text could not be read as a dotted-decimal IPv4 address.
type FormatError struct {
	Text   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid IP %q: %s", e.Text, e.Reason)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// ParseToOctets splits ip into its four octets, most significant first.
func ParseToOctets(ip string) ([4]uint8, error) {
	var result [4]uint8
	rest := ip

	for i := 0; i < 4; i++ {
		part := rest
		if i < 3 {
			dot := strings.IndexByte(rest, '.')
			if dot < 0 {
				return [4]uint8{}, &FormatError{ip, fmt.Sprintf("expected 4 octets, got %d", i+1)}
			}
			part, rest = rest[:dot], rest[dot+1:]
		} else if strings.IndexByte(rest, '.') >= 0 {
			return [4]uint8{}, &FormatError{ip, "expected 4 octets, got more"}
		}

		octet, err := parseOctet(part)
		if err != nil {
			return [4]uint8{}, &FormatError{ip, err.Error()}
		}
		result[i] = octet
	}

	return result, nil
}

func parseOctet(s string) (uint8, error) {
	if len(s) == 0 {
		return 0, errors.New("empty octet")
	}
	if len(s) > 3 {
		return 0, fmt.Errorf("octet %q is too long", s)
	}

	var n uint
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("octet %q is not a decimal number", s)
		}
		n = n*10 + uint(c-'0')
	}
	if n > 255 {
		return 0, fmt.Errorf("octet %d is out of range", n)
	}

	return uint8(n), nil
}

// ParseToUint encodes ip as o0*256^3 + o1*256^2 + o2*256 + o3.
func ParseToUint(ip string) (uint32, error) {
	octets, err := ParseToOctets(ip)
	if err != nil {
		return 0, err
	}

	return OctetsToUint(octets), nil
}

func OctetsToUint(o [4]uint8) uint32 {
	return uint32(o[0])<<24 | uint32(o[1])<<16 | uint32(o[2])<<8 | uint32(o[3])
}

// FormatUint is the inverse of ParseToUint.
func FormatUint(ip uint32) string {
	b := make([]byte, 0, 15)
	for shift := 24; shift >= 0; shift -= 8 {
		if shift != 24 {
			b = append(b, '.')
		}
		b = strconv.AppendUint(b, uint64(ip>>shift&0xff), 10)
	}

	return string(b)
}
