package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"airstream/internal/domain"
)

// deaccent decomposes accented letters and drops the combining marks, so
// "éclair" slugifies to "eclair" rather than losing the letter.
var deaccent = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives the canonical slug form of a string: lowercase ASCII,
// accents stripped, with every run of other characters collapsed to a
// single hyphen.
func Slugify(s string) string {
	if stripped, _, err := transform.String(deaccent, s); err == nil {
		s = stripped
	}
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

// slugProbeLimit bounds the collision loop. The loop terminates on its own
// against any finite snapshot of taken slugs, but concurrent writers could
// in principle keep claiming each candidate; past the limit we give up on
// counters and fall back to a random suffix.
const slugProbeLimit = 1000

// UniqueSlug returns a slug derived from source that no collection in
// checkers currently holds. On the first collision the duplicateKey (when
// given) is appended and the check repeated; further collisions append an
// increasing numeric counter. The result is an optimistic pre-check only:
// the storage-level unique constraint stays authoritative, and callers
// retry on domain.ErrSlugExists at commit time.
func UniqueSlug(ctx context.Context, source string, checkers []domain.SlugChecker, duplicateKey string) (string, error) {
	base := Slugify(source)
	if base == "" {
		base = "untitled"
	}
	slug := base
	counter := 0
	for {
		taken, err := slugTaken(ctx, slug, checkers)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		counter++
		if counter == 1 && duplicateKey != "" {
			// The counter restarts at 1 against the key-suffixed base.
			base = base + "-" + duplicateKey
			slug = base
			counter = 0
			duplicateKey = ""
			continue
		}
		if counter > slugProbeLimit {
			suffix, err := randomSuffix()
			if err != nil {
				return "", err
			}
			return base + "-" + suffix, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}

func slugTaken(ctx context.Context, slug string, checkers []domain.SlugChecker) (bool, error) {
	for _, c := range checkers {
		taken, err := c.SlugExists(ctx, slug)
		if err != nil {
			return false, fmt.Errorf("slug existence check: %w", err)
		}
		if taken {
			return true, nil
		}
	}
	return false, nil
}

func randomSuffix() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
