// Package directory implements the SymbolDirectory (SPEC_FULL.md §4.4):
// the top-level registry that lazily creates one book.SymbolBook per
// symbol, tracks which symbols have ever been seen in sorted order (for
// the Match/Query "all symbols" form), and remembers which symbol an
// order id belongs to so Cancel commands, which carry only the id, and
// Amend commands can be routed by id.
//
// Sorted iteration is grounded on github.com/emirpasic/gods/sets/treeset,
// pulled into the dependency graph by the pack's go-git transitive chain;
// here it is promoted to a direct, load-bearing dependency instead of an
// incidental one.
package directory

import (
	"fmt"
	"sync"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"

	"github.com/lattice-trading/matchcore/internal/matching/book"
	"github.com/lattice-trading/matchcore/internal/matching/types"
)

// SymbolDirectory owns every book.SymbolBook and the order-id-to-symbol
// index. Every method takes mu (a RWMutex); since the engine is
// single-threaded by design (I7), those locks are uncontended on the
// dispatch path.
type SymbolDirectory struct {
	mu sync.RWMutex

	books          map[string]*book.SymbolBook
	sortedSymbols  *treeset.Set
	orderToSymbol  map[types.OrderID]string
	sideBookCap    int
}

// New creates an empty directory. sideBookCap is forwarded to every
// book.NewSymbolBook created on demand (0 means book.DefaultCapacity).
func New(sideBookCap int) *SymbolDirectory {
	return &SymbolDirectory{
		books:         make(map[string]*book.SymbolBook),
		sortedSymbols: treeset.NewWith(utils.StringComparator),
		orderToSymbol: make(map[types.OrderID]string),
		sideBookCap:   sideBookCap,
	}
}

// GetOrCreate returns the book for symbol, creating it (and registering
// the symbol in sorted order) on first use.
func (d *SymbolDirectory) GetOrCreate(symbol string) *book.SymbolBook {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.books[symbol]
	if ok {
		return b
	}
	b = book.NewSymbolBook(symbol, d.sideBookCap)
	d.books[symbol] = b
	d.sortedSymbols.Add(symbol)
	return b
}

// Lookup returns the book for symbol if it has ever been created.
func (d *SymbolDirectory) Lookup(symbol string) (*book.SymbolBook, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.books[symbol]
	return b, ok
}

// Record associates id with symbol so a later Cancel command (which
// carries only the id, per SPEC_FULL.md §6) or Amend command can be routed
// without a scan.
func (d *SymbolDirectory) Record(id types.OrderID, symbol string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.orderToSymbol[id] = symbol
}

// SymbolOf returns the symbol an order id was last recorded against.
func (d *SymbolDirectory) SymbolOf(id types.OrderID) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.orderToSymbol[id]
	return s, ok
}

// IterSorted calls fn for every known symbol's book in ascending
// lexicographic order (§4.4, used by the "Match all symbols" and
// "Query all symbols" command forms).
func (d *SymbolDirectory) IterSorted(fn func(symbol string, b *book.SymbolBook)) {
	d.mu.RLock()
	symbols := d.sortedSymbols.Values()
	books := make([]*book.SymbolBook, 0, len(symbols))
	for _, s := range symbols {
		books = append(books, d.books[s.(string)])
	}
	d.mu.RUnlock()

	for i, s := range symbols {
		fn(s.(string), books[i])
	}
}

// Symbols returns every known symbol in sorted order.
func (d *SymbolDirectory) Symbols() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	values := d.sortedSymbols.Values()
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprint(v)
	}
	return out
}

// Count returns the number of distinct symbols ever seen.
func (d *SymbolDirectory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sortedSymbols.Size()
}
