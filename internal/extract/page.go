package extract

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/driver"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

// PageResult is the outcome of extracting one page.
type PageResult struct {
	Products  []types.Product
	Selector  string
	Attempted int // containers assembled
	Skipped   int // assembled without a usable name
	Failed    int // containers whose assembly failed
}

type itemResult struct {
	product types.Product
	err     error
}

// ExtractPage extracts every valid product visible on the page. Failures of
// single containers are logged, counted and skipped. The error is non-nil
// only for driver failures.
func (e *Extractor) ExtractPage(scope driver.Scope) (PageResult, error) {
	d, err := e.Discover(scope)
	if err != nil {
		return PageResult{}, err
	}
	res := PageResult{Selector: d.Selector, Attempted: len(d.Elements)}
	if len(d.Elements) == 0 {
		return res, nil
	}

	results := make([]itemResult, len(d.Elements))
	if e.workers > 1 {
		var g errgroup.Group
		g.SetLimit(e.workers)
		for i, el := range d.Elements {
			i, el := i, el
			g.Go(func() error {
				results[i] = e.assembleItem(el, i+1)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, el := range d.Elements {
			results[i] = e.assembleItem(el, i+1)
		}
	}

	for i, r := range results {
		if r.err != nil {
			res.Failed++
			e.logger.Warn("skipping product container", "index", i+1, "error", r.err)
			e.metrics.IncFailure(types.KindOf(r.err))
			continue
		}
		if !r.product.Valid() {
			res.Skipped++
			e.logger.Debug("dropping product without name", "index", i+1)
			e.metrics.IncDropped()
			continue
		}
		res.Products = append(res.Products, r.product)
		e.metrics.IncExtracted()
		e.logger.Debug("product extracted",
			"index", i+1,
			"name", r.product.Name,
			"price", r.product.Price,
		)
	}

	e.logger.Info("page extracted",
		"selector", res.Selector,
		"containers", res.Attempted,
		"products", len(res.Products),
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res, nil
}

// assembleItem assembles one container, turning a panic into an ItemError.
func (e *Extractor) assembleItem(el driver.Element, index int) (r itemResult) {
	defer func() {
		if p := recover(); p != nil {
			r = itemResult{err: &types.ItemError{Index: index, Err: fmt.Errorf("panic: %v", p)}}
		}
	}()
	return itemResult{product: e.Assemble(el, index)}
}
