package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPageHTML = `<html><body>
<section class="srp_results__2UEV_">
  <article class="Listing_listing__XwaYe">
    <a class="Listing_link__6Z504" href="/brugt/bil/fiat-panda/6496717">se bilen</a>
    <div class="Listing_title__qH4Gv">Fiat Panda 1,2 69 Pop</div>
    <div class="Listing_price__q15mE">49.900 kr.</div>
    <div class="Listing_year__dBuOe">2015</div>
    <div class="Listing_km__Kd7o4">112.000 km</div>
    <div class="Listing_location__KjqBZ">8260 Viby J</div>
  </article>
  <div data-testid="listing-item">
    <a href="/brugt/bil/fiat-panda/6496718">se bilen</a>
    <h3>Fiat Panda 0,9 TwinAir</h3>
    <div data-testid="price">62.500 kr.</div>
    <div data-testid="year">2017</div>
    <div data-testid="mileage">68.000 km</div>
    <div data-testid="location">5220 Odense SØ</div>
  </div>
  <article class="Listing_listing__XwaYe">
    <a class="Listing_link__6Z504" href="/brugt/bil/fiat-panda/6496717">dublet</a>
    <div class="Listing_title__qH4Gv">Fiat Panda 1,2 69 Pop</div>
  </article>
  <article class="Listing_listing__XwaYe">
    <a class="Listing_link__6Z504" href="/brugt/bil/oversigt">ikke en annonce</a>
  </article>
</section>
<button aria-label="Næste">Næste</button>
</body></html>`

func TestExtractDOM(t *testing.T) {
	doc := docFromHTML(t, searchPageHTML)
	listings := ExtractDOM(doc, testBaseURL)
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "Fiat Panda 1,2 69 Pop", first.Title)
	assert.Equal(t, "https://www.bilbasen.dk/brugt/bil/fiat-panda/6496717", first.URL)
	require.NotNil(t, first.PriceDKK)
	assert.Equal(t, int64(49900), *first.PriceDKK)
	require.NotNil(t, first.Year)
	assert.Equal(t, 2015, *first.Year)
	require.NotNil(t, first.Kilometers)
	assert.Equal(t, int64(112000), *first.Kilometers)
	assert.Equal(t, "8260 Viby J", first.Location)
	assert.Nil(t, first.ConditionScore)
	assert.Equal(t, "", first.ConditionStr)

	second := listings[1]
	assert.Equal(t, "Fiat Panda 0,9 TwinAir", second.Title)
	assert.Equal(t, "https://www.bilbasen.dk/brugt/bil/fiat-panda/6496718", second.URL)
	require.NotNil(t, second.PriceDKK)
	assert.Equal(t, int64(62500), *second.PriceDKK)
	assert.Equal(t, "5220 Odense SØ", second.Location)
}

func TestExtractDOM_EmptyPage(t *testing.T) {
	doc := docFromHTML(t, `<html><body><p>Ingen resultater</p></body></html>`)
	assert.Empty(t, ExtractDOM(doc, testBaseURL))
}

func TestHasNextPage(t *testing.T) {
	assert.True(t, HasNextPage(docFromHTML(t, searchPageHTML)))
	assert.False(t, HasNextPage(docFromHTML(t, `<html><body></body></html>`)))
}
