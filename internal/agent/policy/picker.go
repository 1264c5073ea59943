package policy

import (
	"math/rand"
	"sync"
	"time"
)

// Picker chooses one phrase from a pool. Tests inject a fixed picker to make
// every branch deterministic.
type Picker interface {
	Pick(options []string) string
}

// RandPicker picks uniformly. It is safe for concurrent use.
type RandPicker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandPicker seeds from the clock when seed is 0.
func NewRandPicker(seed int64) *RandPicker {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandPicker{rnd: rand.New(rand.NewSource(seed))}
}

func (p *RandPicker) Pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	p.mu.Lock()
	i := p.rnd.Intn(len(options))
	p.mu.Unlock()
	return options[i]
}

// FixedPicker always returns options[Index % len(options)].
type FixedPicker struct {
	Index int
}

func (p FixedPicker) Pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[p.Index%len(options)]
}
