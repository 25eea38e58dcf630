package extract

import (
	"strings"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/driver"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

// Discovery is the set of product containers found on a page.
type Discovery struct {
	Elements []driver.Element
	// Selector is the chain entry that matched. In merge mode it lists every
	// contributing entry joined by " | ".
	Selector string
}

// Discover finds product containers on the page, capped at the configured
// maximum. An empty Discovery means nothing matched; the error is non-nil
// only for driver failures.
func (e *Extractor) Discover(scope driver.Scope) (Discovery, error) {
	var (
		d   Discovery
		err error
	)
	if e.merge {
		d, err = e.discoverMerged(scope)
	} else {
		d.Elements, d.Selector, err = FirstElements(scope, e.containers, e.containerMiss)
	}
	if err != nil {
		return Discovery{}, err
	}

	if len(d.Elements) == 0 {
		e.logger.Info("no product containers found", "selectors", len(e.containers))
		e.metrics.IncFailure(types.KindContainerMiss)
		return Discovery{}, nil
	}

	matched := len(d.Elements)
	if e.maxItems > 0 && matched > e.maxItems {
		d.Elements = d.Elements[:e.maxItems]
	}
	e.metrics.AddContainers(d.Selector, len(d.Elements))
	e.logger.Info("product containers found",
		"selector", d.Selector,
		"matched", matched,
		"kept", len(d.Elements),
	)
	return d, nil
}

// discoverMerged unions the matches of every entry in chain order, dropping
// elements already contributed by an earlier entry.
func (e *Extractor) discoverMerged(scope driver.Scope) (Discovery, error) {
	var (
		d    Discovery
		used []string
	)
	seen := make(map[string]bool)
	for _, sel := range e.containers {
		els, err := scope.FindAll(sel)
		if err != nil {
			if types.IsFatal(err) {
				return Discovery{}, err
			}
			e.containerMiss(sel, err)
			continue
		}
		if len(els) == 0 {
			e.containerMiss(sel, nil)
			continue
		}

		added := 0
		for _, el := range els {
			if id, ok := el.(driver.Identifiable); ok {
				key := id.Identity()
				if key != "" {
					if seen[key] {
						continue
					}
					seen[key] = true
				}
			}
			d.Elements = append(d.Elements, el)
			added++
		}
		if added > 0 {
			used = append(used, sel)
		}
	}
	d.Selector = strings.Join(used, " | ")
	return d, nil
}

func (e *Extractor) containerMiss(selector string, err error) {
	if err != nil {
		e.logger.Debug("container selector failed", "selector", selector, "error", err)
		return
	}
	e.logger.Debug("container selector matched nothing", "selector", selector)
}
