package upload

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gosimple/unidecode"
	"github.com/jonboulle/clockwork"
)

const maxBaseNameLen = 30

// KeyGenerator builds object keys of the form
// {prefix}{ownerID}/{epochMillis}_{base}.{ext}.
// Timestamps are strictly increasing per generator, so two keys issued in the
// same millisecond never collide.
type KeyGenerator struct {
	clock clockwork.Clock

	mu   sync.Mutex
	last int64
}

func NewKeyGenerator(clock clockwork.Clock) *KeyGenerator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &KeyGenerator{clock: clock}
}

func (g *KeyGenerator) Key(ownerID, fileName string, category Category) string {
	base, ext := splitName(fileName)
	return fmt.Sprintf("%s%s/%d_%s.%s", category.keyPrefix(), ownerID, g.nextMillis(), SanitizeBaseName(base), ext)
}

func (g *KeyGenerator) nextMillis() int64 {
	now := g.clock.Now().UnixMilli()

	g.mu.Lock()
	defer g.mu.Unlock()
	if now <= g.last {
		now = g.last + 1
	}
	g.last = now
	return now
}

// SanitizeBaseName transliterates base to ASCII, drops everything outside
// [A-Za-z0-9_-] and truncates to 30 characters.
func SanitizeBaseName(base string) string {
	ascii := unidecode.Unidecode(base)

	var b strings.Builder
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
		if b.Len() == maxBaseNameLen {
			break
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

func splitName(name string) (base, ext string) {
	ext = Extension(name)
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], ext
	}
	return name, ext
}
