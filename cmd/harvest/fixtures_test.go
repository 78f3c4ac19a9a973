package main_test

import (
	"context"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/mock"
)

const (
	searchURL = "https://findajob.dwp.gov.uk/search?q=warehouse&w="

	listingHTML = `<html><body><main>
<ul class="search-results">
<li>
<h3><a href="/details/123">Warehouse Operative</a></h3>
<ul>
<li>12 March 2025</li>
<li>Acme Logistics - Leeds, LS1</li>
<li>£24,000 to £26,000 per year</li>
</ul>
</li>
<li>
<h3><a href="/details/456">Delivery Driver</a></h3>
<ul><li>13 March 2025</li></ul>
</li>
</ul>
</main></body></html>`

	detail123 = `<html><body><main>
<h1>Warehouse Operative</h1>
<p>Closing date: 11 April 2025</p>
<p>Salary: £24,000 per year</p>
<h2>Summary</h2>
<p>We are looking for a warehouse operative to join our friendly team.</p>
<ul><li>Pick orders</li><li>Pack parcels</li></ul>
</main></body></html>`

	detail456 = `<html><body><main>
<h1>Delivery Driver</h1>
<p>Salary: £12.50 an hour</p>
</main></body></html>`
)

// siteFetcher serves the fixture pages and 404s everything else.
func siteFetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (string, error) {
			switch url {
			case searchURL:
				return listingHTML, nil
			case "https://findajob.dwp.gov.uk/details/123":
				return detail123, nil
			case "https://findajob.dwp.gov.uk/details/456":
				return detail456, nil
			}
			return "", &harvest.FetchError{URL: url, StatusCode: 404}
		},
		CloseFn: func() error { return nil },
	}
}

const careersBase = "https://nationalcareers.service.gov.uk"

// careersFetcher serves a careers sector index with one sector of two
// profiles.
func careersFetcher() *mock.Fetcher {
	pages := map[string]string{
		careersBase + "/explore-careers/job-sector": `<html><body><main>
<a href="/explore-careers/job-sector/health">Health</a>
</main></body></html>`,
		careersBase + "/explore-careers/job-sector/health/view-all-sector-careers": `<html><body><main>
<a href="/job-profiles/nurse">Nurse</a>
<a href="/job-profiles/paramedic">Paramedic</a>
</main></body></html>`,
		careersBase + "/job-profiles/nurse":     `<html><body><main><h1>Nurse</h1></main></body></html>`,
		careersBase + "/job-profiles/paramedic": `<html><body><main><h1>Paramedic</h1></main></body></html>`,
	}
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (string, error) {
			if html, ok := pages[url]; ok {
				return html, nil
			}
			return "", &harvest.FetchError{URL: url, StatusCode: 404}
		},
		CloseFn: func() error { return nil },
	}
}
