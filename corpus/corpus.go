// Package corpus loads token-aligned parallel corpora and word vectors.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"macaronic/sentence"
)

const maxLineBytes = 1 << 20

// Normalize puts a token in NFC form.
func Normalize(token string) string {
	return norm.NFC.String(token)
}

// Key is the lookup form of a token: normalized and case folded.
func Key(token string) string {
	return cases.Fold().String(Normalize(token))
}

// LoadFile reads a parallel corpus from path. See Load for the format.
func LoadFile(path string) (*sentence.Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening corpus %s", path)
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "loading corpus %s", path)
	}
	return c, nil
}

// Load reads one sentence per line as tab separated columns:
//
//	L1 tokens <TAB> L2 tokens [<TAB> constituent spans]
//
// Tokens are whitespace separated and aligned one to one. Spans are written
// as start-end pairs, e.g. "0-2 2-4 0-4". Blank lines and lines starting with
// '#' are skipped. Every malformed line is reported.
func Load(r io.Reader) (*sentence.Corpus, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	c := &sentence.Corpus{}
	var errs error
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s, err := parseLine(line)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("line %d: %w", lineNo, err))
			continue
		}
		c.Sentences = append(c.Sentences, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading corpus")
	}
	if errs != nil {
		return nil, errs
	}
	if len(c.Sentences) == 0 {
		return nil, errors.New("corpus has no sentences")
	}
	return c, nil
}

func parseLine(line string) (sentence.Sentence, error) {
	cols := strings.Split(line, "\t")
	if len(cols) < 2 || len(cols) > 3 {
		return sentence.Sentence{}, fmt.Errorf("expected 2 or 3 columns, got %d", len(cols))
	}

	l1 := tokens(cols[0])
	l2 := tokens(cols[1])
	if len(l1) == 0 {
		return sentence.Sentence{}, errors.New("empty L1 sentence")
	}
	if len(l1) != len(l2) {
		return sentence.Sentence{}, fmt.Errorf("%d L1 tokens but %d L2 tokens", len(l1), len(l2))
	}

	s := sentence.Sentence{L1: l1, L2: l2}
	if len(cols) == 3 && strings.TrimSpace(cols[2]) != "" {
		spans, err := parseSpans(cols[2], len(l1))
		if err != nil {
			return sentence.Sentence{}, err
		}
		s.Spans = spans
	}
	return s, nil
}

func tokens(text string) []string {
	fields := strings.Fields(text)
	for i, f := range fields {
		fields[i] = Normalize(f)
	}
	return fields
}

func parseSpans(text string, n int) ([]sentence.Span, error) {
	var spans []sentence.Span
	for _, field := range strings.Fields(text) {
		start, end, ok := strings.Cut(field, "-")
		if !ok {
			return nil, fmt.Errorf("span %q is not start-end", field)
		}
		a, err := strconv.Atoi(start)
		if err != nil {
			return nil, fmt.Errorf("span %q: %w", field, err)
		}
		b, err := strconv.Atoi(end)
		if err != nil {
			return nil, fmt.Errorf("span %q: %w", field, err)
		}
		if a < 0 || b > n || a >= b {
			return nil, fmt.Errorf("span %q out of range for %d tokens", field, n)
		}
		spans = append(spans, sentence.Span{Start: a, End: b})
	}
	return spans, nil
}
