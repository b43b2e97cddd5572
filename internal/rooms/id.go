package rooms

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// IDGenerator returns a candidate room id. Candidates may collide with live
// rooms; the directory redraws in that case.
type IDGenerator func() (string, error)

// wordsPerID is how many lists contribute one word each.
const wordsPerID = 4

// WordID builds a memorable id such as "amber-otter-ramen-harbor" by picking
// four distinct word lists at random and one word from each.
func WordID() (string, error) {
	lists := [][]string{colors, creatures, foods, places, weather, trinkets}

	order, err := pickDistinct(len(lists), wordsPerID)
	if err != nil {
		return "", err
	}

	words := make([]string, 0, wordsPerID)
	for _, li := range order {
		i, err := randomIndex(len(lists[li]))
		if err != nil {
			return "", err
		}
		words = append(words, lists[li][i])
	}
	return strings.Join(words, "-"), nil
}

// pickDistinct returns k distinct indices in [0, n) in random order.
func pickDistinct(n, k int) ([]int, error) {
	if k > n {
		return nil, fmt.Errorf("cannot pick %d of %d", k, n)
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j, err := randomIndex(n - i)
		if err != nil {
			return nil, err
		}
		pool[i], pool[i+j] = pool[i+j], pool[i]
	}
	return pool[:k], nil
}

// randomIndex returns a uniform index in [0, n) from crypto/rand.
func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}
