package idgen

import (
	"fmt"
	"time"
)

const (
	minLength       = 4
	maxLength       = 8
	noncesPerLength = 10
)

// Generator mints ids for one engine instance. It is not safe for
// concurrent use.
type Generator struct {
	prefix string
	now    func() time.Time
}

// New returns a generator using prefix (DefaultPrefix when empty) and the
// given clock (time.Now when nil).
func New(prefix string, now func() time.Time) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{prefix: prefix, now: now}
}

// Prefix returns the id prefix.
func (g *Generator) Prefix() string {
	return g.prefix
}

// Next returns an id not reported taken by exists. It tries a handful of
// nonces at each length before growing the hash.
func (g *Generator) Next(name, link string, exists func(string) bool) (string, error) {
	ts := g.now()
	for length := minLength; length <= maxLength; length++ {
		for nonce := 0; nonce < noncesPerLength; nonce++ {
			id := GenerateHashID(g.prefix, name, link, ts, length, nonce)
			if exists == nil || !exists(id) {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("could not generate a unique id for %q", name)
}
