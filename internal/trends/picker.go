package trends

import (
	"math/rand"
	"sync"
)

// Picker selects topics from a pool while avoiding immediate repetition: a
// topic picked during the current batch run is preferred last. Once every
// topic has been used, picks fall back to uniform random choice.
type Picker struct {
	mu   sync.Mutex
	used map[string]struct{}
	rand *rand.Rand
}

// NewPicker builds a picker seeded with the given source. A nil source means
// the global one.
func NewPicker(src rand.Source) *Picker {
	p := &Picker{used: make(map[string]struct{})}
	if src != nil {
		p.rand = rand.New(src)
	}
	return p
}

// Pick chooses one topic, preferring ones not yet used this run. Returns ""
// for an empty pool.
func (p *Picker) Pick(topics []string) string {
	if len(topics) == 0 {
		return ""
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	unused := make([]string, 0, len(topics))
	for _, t := range topics {
		if _, ok := p.used[NormalizeKey(t)]; !ok {
			unused = append(unused, t)
		}
	}

	candidates := unused
	if len(candidates) == 0 {
		candidates = topics
	}

	choice := candidates[p.intn(len(candidates))]
	p.used[NormalizeKey(choice)] = struct{}{}
	return choice
}

// Reset clears the used set at the end of a batch run.
func (p *Picker) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.used = make(map[string]struct{})
}

func (p *Picker) intn(n int) int {
	if p.rand != nil {
		return p.rand.Intn(n)
	}
	return rand.Intn(n)
}
