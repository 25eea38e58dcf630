// Package extract turns a rendered listing page into product records using
// ordered selector chains that degrade gracefully when markup changes.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/driver"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

// Chain is an ordered list of selectors for one target. Earlier entries win.
type Chain []string

// MissFunc observes a chain entry that produced nothing. err is nil when the
// selector evaluated cleanly but matched nothing usable.
type MissFunc func(selector string, err error)

// First evaluates chain in order and returns the value of the first entry
// for which eval reports ok. Entries that fail to evaluate are treated as
// misses; only a fatal error stops the walk and is returned.
func First[T any](chain Chain, eval func(selector string) (T, bool, error), onMiss MissFunc) (T, string, error) {
	var zero T
	if len(chain) == 0 {
		return zero, "", types.ErrEmptyChain
	}
	for _, sel := range chain {
		v, ok, err := eval(sel)
		if err != nil && types.IsFatal(err) {
			return zero, sel, err
		}
		if err == nil && ok {
			return v, sel, nil
		}
		if onMiss != nil {
			onMiss(sel, err)
		}
	}
	return zero, "", nil
}

// FirstText returns the first trimmed text under container, in chain order
// and document order, that is longer than minLength runes. A fatal error
// ends the walk and is reported to onMiss before the miss is returned.
func FirstText(container driver.Scope, chain Chain, minLength int, onMiss MissFunc) (string, bool) {
	text, sel, err := First(chain, func(sel string) (string, bool, error) {
		els, err := container.FindAll(sel)
		if err != nil {
			return "", false, err
		}
		for _, el := range els {
			raw, err := el.Text()
			if err != nil {
				continue
			}
			if t := strings.TrimSpace(raw); utf8.RuneCountInString(t) > minLength {
				return t, true, nil
			}
		}
		return "", false, nil
	}, onMiss)
	if err != nil {
		if onMiss != nil {
			onMiss(sel, err)
		}
		return "", false
	}
	if sel == "" {
		return "", false
	}
	return text, true
}

// FirstElements returns the matches of the first chain entry that matches at
// least one element, along with that entry.
func FirstElements(scope driver.Scope, chain Chain, onMiss MissFunc) ([]driver.Element, string, error) {
	return First(chain, func(sel string) ([]driver.Element, bool, error) {
		els, err := scope.FindAll(sel)
		return els, len(els) > 0, err
	}, onMiss)
}
