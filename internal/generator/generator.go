// Package generator synthesizes random passwords from character-class
// policies and passphrases from an embedded word list. It performs no I/O;
// output is a pure function of (config, RNG).
package generator

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/pwvault/internal/common"
)

const (
	lowercase = "abcdefghijklmnopqrstuvwxyz"
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits    = "0123456789"
	symbols   = "!@#$%^&*()-_=+[]{}|;:'\",.<>/?"
	ambiguous = "0O1lI"

	// MinLength and MaxLength bound the password length.
	MinLength = 8
	MaxLength = 128
)

// Config describes the password policy. Minimum counts apply per enabled
// class; a minimum on a disabled class is ignored.
type Config struct {
	Length           int
	Uppercase        bool
	Lowercase        bool
	Digits           bool
	Symbols          bool
	ExcludeAmbiguous bool
	MinUppercase     int
	MinLowercase     int
	MinDigits        int
	MinSymbols       int
}

// DefaultConfig returns the policy used when the caller does not specify
// one: 16 characters, all classes, at least one of each, no ambiguous glyphs.
func DefaultConfig() Config {
	return Config{
		Length:           16,
		Uppercase:        true,
		Lowercase:        true,
		Digits:           true,
		Symbols:          true,
		ExcludeAmbiguous: true,
		MinUppercase:     1,
		MinLowercase:     1,
		MinDigits:        1,
		MinSymbols:       1,
	}
}

type class struct {
	alphabet string
	min      int
}

// Generate returns a password of exactly cfg.Length characters drawn from
// the union of the enabled class alphabets. Every enabled class appears at
// least its minimum number of times, and the result is a uniform-random
// permutation so the guaranteed characters are not at fixed positions.
func Generate(rng io.Reader, cfg Config) (string, error) {
	if cfg.Length < MinLength || cfg.Length > MaxLength {
		return "", fmt.Errorf("%w: length must be between %d and %d", common.ErrInvalidConfig, MinLength, MaxLength)
	}

	var classes []class
	if cfg.Lowercase {
		classes = append(classes, class{lowercase, cfg.MinLowercase})
	}
	if cfg.Uppercase {
		classes = append(classes, class{uppercase, cfg.MinUppercase})
	}
	if cfg.Digits {
		classes = append(classes, class{digits, cfg.MinDigits})
	}
	if cfg.Symbols {
		classes = append(classes, class{symbols, cfg.MinSymbols})
	}
	if len(classes) == 0 {
		return "", fmt.Errorf("%w: no character class enabled", common.ErrInvalidConfig)
	}

	minTotal := 0
	for i := range classes {
		if cfg.ExcludeAmbiguous {
			classes[i].alphabet = stripAmbiguous(classes[i].alphabet)
		}
		if classes[i].min < 0 {
			return "", fmt.Errorf("%w: negative class minimum", common.ErrInvalidConfig)
		}
		minTotal += classes[i].min
	}
	if minTotal > cfg.Length {
		return "", fmt.Errorf("%w: class minimums (%d) exceed length (%d)", common.ErrInvalidConfig, minTotal, cfg.Length)
	}

	var union strings.Builder
	for _, c := range classes {
		union.WriteString(c.alphabet)
	}
	alphabet := union.String()

	password := make([]byte, 0, cfg.Length)

	// Guaranteed characters first, then fill from the union.
	for _, c := range classes {
		for i := 0; i < c.min; i++ {
			idx, err := intn(rng, len(c.alphabet))
			if err != nil {
				return "", err
			}
			password = append(password, c.alphabet[idx])
		}
	}
	for len(password) < cfg.Length {
		idx, err := intn(rng, len(alphabet))
		if err != nil {
			return "", err
		}
		password = append(password, alphabet[idx])
	}

	// Fisher-Yates so the per-class picks are not always at the front.
	for i := len(password) - 1; i > 0; i-- {
		j, err := intn(rng, i+1)
		if err != nil {
			return "", err
		}
		password[i], password[j] = password[j], password[i]
	}

	return string(password), nil
}

// GenerateEscaped generates a password and shell-escapes it for safe pasting
// into command lines.
func GenerateEscaped(rng io.Reader, cfg Config) (string, error) {
	password, err := Generate(rng, cfg)
	if err != nil {
		return "", err
	}
	return EscapeForShell(password), nil
}

// EscapeForShell backslash-escapes \, ", $, ` and !, writes newline, carriage
// return and tab as \n, \r and \t, and rewrites a single quote as the
// close-quote, escaped-quote, reopen-quote sequence. Other shell metacharacters (such as ; & | * and spaces) are left as they are.
func EscapeForShell(password string) string {
	var b strings.Builder
	for _, c := range password {
		switch c {
		case '\'':
			b.WriteString(`'\''`)
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '$':
			b.WriteString(`\$`)
		case '`':
			b.WriteString("\\`")
		case '!':
			b.WriteString(`\!`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// Passphrase joins `words` distinct entries from the embedded word list with
// separator. With capitalize set, each word gets an initial capital.
func Passphrase(rng io.Reader, words int, separator string, capitalize bool) (string, error) {
	if words < 3 || words > 20 {
		return "", fmt.Errorf("%w: word count must be between 3 and 20", common.ErrInvalidConfig)
	}

	picked := make([]string, 0, words)
	used := make(map[int]struct{}, words)

	for len(picked) < words {
		idx, err := intn(rng, len(wordList))
		if err != nil {
			return "", err
		}
		if _, dup := used[idx]; dup {
			continue
		}
		used[idx] = struct{}{}

		w := wordList[idx]
		if capitalize {
			w = strings.ToUpper(w[:1]) + w[1:]
		}
		picked = append(picked, w)
	}

	return strings.Join(picked, separator), nil
}

func stripAmbiguous(alphabet string) string {
	var b strings.Builder
	for _, c := range alphabet {
		if !strings.ContainsRune(ambiguous, c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// intn returns a uniform random int in [0, n) using rejection sampling, so
// no modulo bias skews class frequencies.
func intn(rng io.Reader, n int) (int, error) {
	if n <= 0 {
		return 0, common.ErrInternal
	}

	max := uint32(n)
	// Values below the threshold would bias the low residues; redraw them.
	threshold := uint32((1 << 32) % uint64(max))

	var buf [4]byte
	for {
		if _, err := io.ReadFull(rng, buf[:]); err != nil {
			return 0, fmt.Errorf("reading randomness: %w", err)
		}
		v := binary.BigEndian.Uint32(buf[:])
		if v >= threshold {
			return int(v % max), nil
		}
	}
}
