package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// collyProbe is the fast path: a plain HTTP fetch through a shared Colly
// collector, used before paying for a headless render.
type collyProbe struct {
	base *colly.Collector
}

func newCollyProbe(userAgent string, timeout time.Duration) *collyProbe {
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(userAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(timeout)
	return &collyProbe{base: base}
}

type probeResult struct {
	page Page
	err  error
}

// fetch retrieves rawURL through a clone of the base collector.
func (p *collyProbe) fetch(ctx context.Context, rawURL string) (Page, error) {
	collector := p.base.Clone()
	resultCh := make(chan probeResult, 1)
	var once sync.Once
	send := func(res probeResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		send(probeResult{page: Page{
			URL:        rawURL,
			StatusCode: r.StatusCode,
			HTML:       string(r.Body),
		}})
	})
	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		if r != nil && r.StatusCode == http.StatusNotFound {
			err = ErrNotFound
		}
		send(probeResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		return res.page, res.err
	default:
		return Page{}, errors.New("probe produced no result")
	}
}
