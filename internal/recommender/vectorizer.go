package recommender

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ahmednasr/repo-recommender/server/internal/models"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vectorizer is a TF-IDF bag-of-words encoder. Its vocabulary is fitted once
// and then fixed; Transform is a pure function of that vocabulary.
type Vectorizer struct {
	maxFeatures int
	terms       []string // column order, lexical
	vocabulary  map[string]int
	idf         []float64
}

// NewVectorizer returns an unfitted vectorizer keeping at most maxFeatures terms.
func NewVectorizer(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = 100
	}
	return &Vectorizer{maxFeatures: maxFeatures}
}

// Fitted reports whether a vocabulary has been learned.
func (v *Vectorizer) Fitted() bool { return v.vocabulary != nil }

// Dim is the length of every vector produced by Transform. Zero until fitted.
func (v *Vectorizer) Dim() int { return len(v.terms) }

// Fit learns the vocabulary and IDF weights from corpus, keeping the
// maxFeatures most frequent terms. Ties on frequency are broken lexically.
func (v *Vectorizer) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return goerr.Wrap(ErrInvalidArgument, "empty corpus for vectorizer fit")
	}

	counts := make(map[string]int)
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(doc) {
			counts[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(counts) == 0 {
		return goerr.Wrap(ErrInvalidArgument, "no tokens found in corpus")
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > v.maxFeatures {
		terms = terms[:v.maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(corpus))
	v.terms = terms
	v.vocabulary = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.vocabulary[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	return nil
}

// Transform projects doc onto the fitted vocabulary. Out-of-vocabulary terms
// contribute nothing; the result is L2-normalised unless it is all zeros.
func (v *Vectorizer) Transform(doc string) ([]float64, error) {
	if !v.Fitted() {
		return nil, goerr.Wrap(ErrInternalModel, "vectorizer is not fitted")
	}
	vec := make([]float64, len(v.terms))
	for _, tok := range tokenize(doc) {
		if idx, ok := v.vocabulary[tok]; ok {
			vec[idx]++
		}
	}

	var norm float64
	for i := range vec {
		vec[i] *= v.idf[i]
		norm += vec[i] * vec[i]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// Terms returns a copy of the fitted vocabulary in column order.
func (v *Vectorizer) Terms() []string {
	return append([]string(nil), v.terms...)
}

func (v *Vectorizer) state() vectorizerState {
	return vectorizerState{
		MaxFeatures: v.maxFeatures,
		Terms:       v.Terms(),
		IDF:         append([]float64(nil), v.idf...),
	}
}

func (v *Vectorizer) restore(s vectorizerState) error {
	if len(s.Terms) != len(s.IDF) {
		return goerr.Wrap(ErrCorrupt, "vectorizer terms and idf lengths differ",
			goerr.V(DimKey, len(s.IDF)), goerr.V(WantDimKey, len(s.Terms)))
	}
	v.maxFeatures = s.MaxFeatures
	if v.maxFeatures <= 0 {
		v.maxFeatures = 100
	}
	if len(s.Terms) == 0 {
		v.terms, v.vocabulary, v.idf = nil, nil, nil
		return nil
	}
	v.terms = append([]string(nil), s.Terms...)
	v.idf = append([]float64(nil), s.IDF...)
	v.vocabulary = make(map[string]int, len(v.terms))
	for i, term := range v.terms {
		v.vocabulary[term] = i
	}
	return nil
}

// Document builds the text a repository is encoded from.
func Document(repo models.Repository) string {
	return repo.Name + " " + repo.Description + " " + strings.Join(repo.Topics, " ")
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
