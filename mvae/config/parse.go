package config

import (
	"bufio"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/afero"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/fileutil"
)

// Raw maps option names to their unparsed values
type Raw map[string]string

// Load reads a configuration file from fs; see Parse
func Load(fs afero.Fs, path string) (Raw, error) {
	f, err := fileutil.NewReader(fs, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing %s", path)
	}
	return raw, nil
}

// Parse reads one `key value` pair per non-blank line. Lines are tokenized with shell
// quoting rules, so `name "foo bar"` maps name to "foo bar". A line that is only a
// comment is skipped; any other line must yield exactly two tokens. A # that would
// start a comment after the key is an error, so values beginning with # must be
// quoted. Later keys override earlier ones.
func Parse(r io.Reader) (Raw, error) {
	raw := make(Raw)
	scanner := bufio.NewScanner(r)
	var lineno int
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}
		if i := trailingComment(line); i >= 0 {
			return nil, errors.Errorf("line %d: unquoted # at column %d; quote values containing #: %q", lineno, i+1, line)
		}

		tokens, err := shlex.Split(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineno)
		}
		switch len(tokens) {
		case 0:
			continue
		case 2:
			raw[tokens[0]] = tokens[1]
		default:
			return nil, errors.Errorf("line %d: expected `key value`, got %d fields: %q", lineno, len(tokens), line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "error reading configuration")
	}
	return raw, nil
}

// trailingComment returns the index of the first unquoted # that starts a token, or -1
func trailingComment(line string) int {
	var quote rune
	escaped := false
	prevSpace := true
	for i, r := range line {
		space := false
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '#' && prevSpace:
			return i
		case r == ' ' || r == '\t':
			space = true
		}
		prevSpace = space
	}
	return -1
}
