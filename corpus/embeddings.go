package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Embeddings maps case folded tokens to dense vectors of a fixed dimension.
type Embeddings struct {
	dim     int
	index   map[string]int
	vectors [][]float64
}

func NewEmbeddings(dim int) *Embeddings {
	return &Embeddings{
		dim:   dim,
		index: make(map[string]int),
	}
}

func (e *Embeddings) Dim() int { return e.dim }

func (e *Embeddings) Len() int { return len(e.vectors) }

// Add stores vec for word, replacing any previous vector.
func (e *Embeddings) Add(word string, vec []float64) error {
	if len(vec) != e.dim {
		return fmt.Errorf("vector for %q has dimension %d, want %d", word, len(vec), e.dim)
	}
	key := Key(word)
	if i, ok := e.index[key]; ok {
		e.vectors[i] = vec
		return nil
	}
	e.index[key] = len(e.vectors)
	e.vectors = append(e.vectors, vec)
	return nil
}

// Lookup returns the vector of word. The returned slice must not be modified.
func (e *Embeddings) Lookup(word string) ([]float64, bool) {
	i, ok := e.index[Key(word)]
	if !ok {
		return nil, false
	}
	return e.vectors[i], true
}

// LoadEmbeddingsFile reads word vectors from path. See LoadEmbeddings.
func LoadEmbeddingsFile(path string) (*Embeddings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening vectors %s", path)
	}
	defer f.Close()

	e, err := LoadEmbeddings(f)
	if err != nil {
		return nil, errors.Wrapf(err, "loading vectors %s", path)
	}
	return e, nil
}

// LoadEmbeddings reads the word2vec text format: an optional "count dim"
// header, then one word per line followed by its components.
func LoadEmbeddings(r io.Reader) (*Embeddings, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var e *Embeddings
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if lineNo == 1 && len(fields) == 2 {
			if _, err := strconv.Atoi(fields[0]); err == nil {
				dim, err := strconv.Atoi(fields[1])
				if err != nil || dim <= 0 {
					return nil, errors.Errorf("line 1: bad header %q", scanner.Text())
				}
				e = NewEmbeddings(dim)
				continue
			}
		}
		if e == nil {
			e = NewEmbeddings(len(fields) - 1)
		}

		vec := make([]float64, len(fields)-1)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			vec[i] = v
		}
		if err := e.Add(fields[0], vec); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading vectors")
	}
	if e == nil || e.Len() == 0 {
		return nil, errors.New("no vectors found")
	}
	return e, nil
}
