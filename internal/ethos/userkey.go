package ethos

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidUserkey = errors.New("invalid userkey")

var (
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	digitsPattern  = regexp.MustCompile(`^[0-9]+$`)
	// X handles are 1-15 word characters.
	handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
	// Farcaster fnames allow dots and dashes.
	fnamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{0,31}$`)
)

// NormalizeUserkey turns search input (an address, @handle, fc:name,
// profile id or an existing userkey) into an Ethos userkey.
func NormalizeUserkey(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrInvalidUserkey
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(s, "profileId:"):
		if !digitsPattern.MatchString(strings.TrimPrefix(s, "profileId:")) {
			return "", ErrInvalidUserkey
		}
		return s, nil
	case strings.HasPrefix(lower, "address:"):
		addr := s[len("address:"):]
		if !addressPattern.MatchString(addr) {
			return "", ErrInvalidUserkey
		}
		return "address:" + addr, nil
	case strings.HasPrefix(lower, "service:"):
		return s, nil
	case addressPattern.MatchString(s):
		return "address:" + s, nil
	case strings.HasPrefix(lower, "0x"):
		return "", ErrInvalidUserkey
	case digitsPattern.MatchString(s):
		return "profileId:" + s, nil
	}

	for _, prefix := range []string{"fc:", "farcaster:"} {
		if strings.HasPrefix(lower, prefix) {
			name := strings.TrimPrefix(lower[len(prefix):], "@")
			if !fnamePattern.MatchString(name) {
				return "", ErrInvalidUserkey
			}
			return "service:farcaster:username:" + name, nil
		}
	}

	handle := s
	for _, prefix := range []string{"x:", "twitter:", "@"} {
		if strings.HasPrefix(lower, prefix) {
			handle = strings.TrimPrefix(s[len(prefix):], "@")
			break
		}
	}
	if !handlePattern.MatchString(handle) {
		return "", ErrInvalidUserkey
	}
	return "service:x.com:username:" + handle, nil
}
