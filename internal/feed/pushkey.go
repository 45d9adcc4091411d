// pushkey.go — генерация push-ключей ленты.
//
// Формат совместим с push-ключами Firebase RTDB: 8 символов — миллисекундный
// timestamp, 12 символов — случайный суффикс. Алфавит упорядочен по ASCII,
// поэтому лексикографическое сравнение строк совпадает с порядком создания.
// При генерации нескольких ключей в одну миллисекунду суффикс инкрементируется,
// сохраняя строгое возрастание.
package feed

import (
	"crypto/rand"
	"sync"
	"time"
)

// pushChars — 64 символа в возрастающем ASCII-порядке.
const pushChars = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

// keyGenerator — потокобезопасный генератор строго возрастающих push-ключей.
type keyGenerator struct {
	mu       sync.Mutex
	lastMs   int64
	lastRand [12]byte // индексы в pushChars
	now      func() time.Time
}

func newKeyGenerator() *keyGenerator {
	return &keyGenerator{now: time.Now}
}

// Next возвращает следующий push-ключ.
func (g *keyGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms != g.lastMs {
		g.lastMs = ms
		var buf [12]byte
		_, _ = rand.Read(buf[:])
		for i := range buf {
			buf[i] %= 64
		}
		g.lastRand = buf
	} else {
		// Та же миллисекунда: инкремент суффикса с переносом
		for i := 11; i >= 0; i-- {
			if g.lastRand[i] < 63 {
				g.lastRand[i]++
				break
			}
			g.lastRand[i] = 0
		}
	}

	var key [20]byte
	v := ms
	for i := 7; i >= 0; i-- {
		key[i] = pushChars[v%64]
		v /= 64
	}
	for i, c := range g.lastRand {
		key[8+i] = pushChars[c]
	}
	return string(key[:])
}
