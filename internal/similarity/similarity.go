// Package similarity scores a recognized transcript against the expected
// prompt using a longest-matching-block sequence ratio.
package similarity

import (
	"sort"
	"strings"
)

// autojunkMinLen is the length of b from which very frequent runes are
// ignored when searching for matching blocks.
const autojunkMinLen = 200

// Block is a run of size equal runes starting at A in the first sequence and
// B in the second.
type Block struct {
	A    int
	B    int
	Size int
}

// Ratio returns 2*M/(len(expected)+len(spoken)) over lowercased runes, where M
// is the total size of the matching blocks. Two empty strings score 1.
func Ratio(expected, spoken string) float64 {
	a := []rune(strings.ToLower(expected))
	b := []rune(strings.ToLower(spoken))
	total := len(a) + len(b)
	if total == 0 {
		return 1.0
	}
	matches := 0
	for _, blk := range MatchingBlocks(a, b) {
		matches += blk.Size
	}
	return 2.0 * float64(matches) / float64(total)
}

// MatchingBlocks returns the non-adjacent matching blocks of a and b in
// increasing order. Comparison is exact; callers lowercase first if needed.
func MatchingBlocks(a, b []rune) []Block {
	m := newMatcher(a, b)
	type span struct{ alo, ahi, blo, bhi int }
	queue := []span{{0, len(a), 0, len(b)}}
	var blocks []Block
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		blk := m.longestMatch(s.alo, s.ahi, s.blo, s.bhi)
		if blk.Size == 0 {
			continue
		}
		blocks = append(blocks, blk)
		if s.alo < blk.A && s.blo < blk.B {
			queue = append(queue, span{s.alo, blk.A, s.blo, blk.B})
		}
		if blk.A+blk.Size < s.ahi && blk.B+blk.Size < s.bhi {
			queue = append(queue, span{blk.A + blk.Size, s.ahi, blk.B + blk.Size, s.bhi})
		}
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].A == blocks[j].A {
			return blocks[i].B < blocks[j].B
		}
		return blocks[i].A < blocks[j].A
	})

	collapsed := make([]Block, 0, len(blocks))
	for _, blk := range blocks {
		if n := len(collapsed); n > 0 {
			last := &collapsed[n-1]
			if last.A+last.Size == blk.A && last.B+last.Size == blk.B {
				last.Size += blk.Size
				continue
			}
		}
		collapsed = append(collapsed, blk)
	}
	return collapsed
}

type matcher struct {
	a, b []rune
	// b2j maps each non-popular rune of b to its ascending positions.
	b2j map[rune][]int
}

func newMatcher(a, b []rune) *matcher {
	b2j := make(map[rune][]int)
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}
	if n := len(b); n >= autojunkMinLen {
		limit := n/100 + 1
		for r, idxs := range b2j {
			if len(idxs) > limit {
				delete(b2j, r)
			}
		}
	}
	return &matcher{a: a, b: b, b2j: b2j}
}

// longestMatch finds the longest block in a[alo:ahi] and b[blo:bhi]. Ties go
// to the block starting earliest in a, then earliest in b.
func (m *matcher) longestMatch(alo, ahi, blo, bhi int) Block {
	besti, bestj, bestSize := alo, blo, 0
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestSize {
				besti, bestj, bestSize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	// Popular runes were left out of b2j; grow the block across them.
	for besti > alo && bestj > blo && m.a[besti-1] == m.b[bestj-1] {
		besti--
		bestj--
		bestSize++
	}
	for besti+bestSize < ahi && bestj+bestSize < bhi && m.a[besti+bestSize] == m.b[bestj+bestSize] {
		bestSize++
	}
	return Block{A: besti, B: bestj, Size: bestSize}
}
