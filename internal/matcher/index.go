package matcher

import (
	"fmt"
	"sort"

	"card-reconciliation/internal/models"
)

// KeyIndex groups the keyed transactions of one (source, direction) bucket.
// Every row is kept under its key in stored order, so the first row of a
// bucket is the representative used for pairing.
type KeyIndex struct {
	Source    models.Source
	Direction models.Direction

	// Buckets maps a match key to every transaction carrying it
	Buckets map[string][]*models.Transaction

	// Unkeyed holds transactions no key could be derived for
	Unkeyed []*models.Transaction

	// AllTransactions holds all indexed transactions
	AllTransactions []*models.Transaction
}

// DuplicateGroup is a key shared by more than one transaction of a side
type DuplicateGroup struct {
	Source       models.Source        `json:"source"`
	Key          string               `json:"key"`
	Count        int                  `json:"count"`
	Transactions []models.Transaction `json:"transactions"`
	Reason       string               `json:"reason"`
}

// IndexStats provides statistics about an index
type IndexStats struct {
	TotalTransactions int
	UniqueKeys        int
	DuplicateKeys     int
	Unkeyed           int
}

// NewKeyIndex derives keys for the transactions and indexes them. The
// input slice is not modified.
func NewKeyIndex(source models.Source, direction models.Direction, txs []models.Transaction) *KeyIndex {
	index := &KeyIndex{
		Source:    source,
		Direction: direction,
		Buckets:   make(map[string][]*models.Transaction),
	}

	keyed := AssignKeys(txs)
	index.AllTransactions = make([]*models.Transaction, len(keyed))
	for i := range keyed {
		tx := &keyed[i]
		index.AllTransactions[i] = tx
		if tx.MatchKey == "" {
			index.Unkeyed = append(index.Unkeyed, tx)
			continue
		}
		index.Buckets[tx.MatchKey] = append(index.Buckets[tx.MatchKey], tx)
	}

	return index
}

// Keys returns the distinct keys in lexicographic order
func (ki *KeyIndex) Keys() []string {
	keys := make([]string, 0, len(ki.Buckets))
	for k := range ki.Buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether any transaction carries the key
func (ki *KeyIndex) Has(key string) bool {
	_, ok := ki.Buckets[key]
	return ok
}

// First returns the first stored transaction for a key, or nil
func (ki *KeyIndex) First(key string) *models.Transaction {
	bucket := ki.Buckets[key]
	if len(bucket) == 0 {
		return nil
	}
	return bucket[0]
}

// Bucket returns every transaction stored under a key
func (ki *KeyIndex) Bucket(key string) []*models.Transaction {
	return ki.Buckets[key]
}

// Duplicates returns the keys carried by more than one transaction, in key order
func (ki *KeyIndex) Duplicates() []DuplicateGroup {
	var groups []DuplicateGroup
	for _, key := range ki.Keys() {
		bucket := ki.Buckets[key]
		if len(bucket) < 2 {
			continue
		}
		txs := make([]models.Transaction, len(bucket))
		for i, tx := range bucket {
			txs[i] = *tx
		}
		groups = append(groups, DuplicateGroup{
			Source:       ki.Source,
			Key:          key,
			Count:        len(bucket),
			Transactions: txs,
			Reason:       fmt.Sprintf("%d %s %s rows share this key; only the first is paired", len(bucket), ki.Source, ki.Direction),
		})
	}
	return groups
}

// GetIndexStats returns statistics about the index
func (ki *KeyIndex) GetIndexStats() IndexStats {
	duplicates := 0
	for _, bucket := range ki.Buckets {
		if len(bucket) > 1 {
			duplicates++
		}
	}
	return IndexStats{
		TotalTransactions: len(ki.AllTransactions),
		UniqueKeys:        len(ki.Buckets),
		DuplicateKeys:     duplicates,
		Unkeyed:           len(ki.Unkeyed),
	}
}
