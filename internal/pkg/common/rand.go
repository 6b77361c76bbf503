package common

import (
	"math/rand"
	"sync"
	"time"
)

// Rand 可注入的隨機來源，測試時以固定種子建立
type Rand interface {
	Intn(n int) int
	Float64() float64
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand 以指定種子建立並發安全的隨機來源
func NewRand(seed int64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// NewTimeSeededRand 以當前時間為種子
func NewTimeSeededRand() Rand {
	return NewRand(time.Now().UnixNano())
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// CoinFlip 50/50 擲硬幣
func CoinFlip(r Rand) bool {
	return r.Float64() < 0.5
}
