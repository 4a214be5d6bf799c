package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Pager walks the pages of an item listing by following the rel="next" links
// Zotero returns. It is not safe for concurrent use.
type Pager struct {
	client *Client
	next   string
	page   []Item
}

// Page returns the most recently fetched page.
func (p *Pager) Page() []Item {
	return p.page
}

// Done reports whether there are no further pages.
func (p *Pager) Done() bool {
	return p.next == ""
}

// Next fetches the following page. It returns ok=false once the listing is
// exhausted.
func (p *Pager) Next(ctx context.Context) ([]Item, bool, error) {
	if p.Done() {
		return nil, false, nil
	}
	if err := p.fetch(ctx); err != nil {
		return nil, false, err
	}
	return p.page, true, nil
}

func (p *Pager) fetch(ctx context.Context) error {
	resp, err := p.client.do(ctx, http.MethodGet, p.next, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return fmt.Errorf("%w: parsing items: %v", ErrInvalidResponse, err)
	}

	p.page = items
	p.next = nextLink(resp.Header.Values("Link"))
	return nil
}

// nextLink extracts the rel="next" target from RFC 8288 Link header values.
func nextLink(values []string) string {
	for _, v := range values {
		for _, link := range strings.Split(v, ",") {
			parts := strings.Split(link, ";")
			if len(parts) < 2 {
				continue
			}
			target := strings.TrimSpace(parts[0])
			if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
				continue
			}
			for _, param := range parts[1:] {
				param = strings.TrimSpace(param)
				if param == `rel="next"` || param == "rel=next" {
					return target[1 : len(target)-1]
				}
			}
		}
	}
	return ""
}
