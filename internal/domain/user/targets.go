package user

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
)

// SplitList parses a comma separated list into an ordered set: blanks are dropped and
// duplicates keep their first position.
func SplitList(raw string) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func JoinList(items []string) string { return strings.Join(items, ",") }

func ParseWebhooks(raw string) ([]string, error) {
	list := SplitList(raw)
	for _, w := range list {
		u, err := url.Parse(w)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: bad webhook url %q", ErrInvalidArgument, w)
		}
	}
	return list, nil
}

// ParseEmails keeps the bare address of each entry, so "A <a@x.com>" and "a@x.com" collapse
// into one target.
func ParseEmails(raw string) ([]string, error) {
	list := SplitList(raw)
	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, e := range list {
		addr, err := mail.ParseAddress(e)
		if err != nil {
			return nil, fmt.Errorf("%w: bad email %q", ErrInvalidArgument, e)
		}
		if _, ok := seen[addr.Address]; ok {
			continue
		}
		seen[addr.Address] = struct{}{}
		out = append(out, addr.Address)
	}
	return out, nil
}
