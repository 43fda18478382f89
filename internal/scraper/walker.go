package scraper

import (
	"context"

	"github.com/verdantdev/dispensary-scraper/internal/render"
)

// loadAll expands a category page until the "Load More" control stops
// appearing: scroll to the bottom, pause, click if the control is
// visible, repeat. Click failures are treated as end of content. The
// round cap guards against a page that never stops offering the button.
func (s *Service) loadAll(ctx context.Context, page render.Page) error {
	for round := 0; round < s.cfg.Scraper.MaxLoadMoreRounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := page.ScrollToBottom(); err != nil {
			s.logger.Debug("scroll failed", "error", err)
		}
		s.pause(scrollPauseMin, scrollPauseMax)

		buttons, err := page.Query(loadMoreSelector)
		if err != nil || len(buttons) == 0 {
			return nil
		}
		visible, err := buttons[0].Visible()
		if err != nil || !visible {
			return nil
		}
		if err := buttons[0].Click(); err != nil {
			return nil
		}
		s.pause(loadMorePauseMin, loadMorePauseMax)
	}

	s.logger.Warn("load-more round cap reached", "rounds", s.cfg.Scraper.MaxLoadMoreRounds)
	return nil
}

// discoverProducts returns one anchor per listed product. The selector
// excludes anchors wrapping images so a product's thumbnail link does
// not duplicate its name link.
func (s *Service) discoverProducts(page render.Page) ([]render.Element, error) {
	return page.Query(productLinkSelector)
}
