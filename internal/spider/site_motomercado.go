package spider

import (
	"regexp"
	"time"
)

// motomercadoPriceRe picks the first money-looking group out of a price
// text that may carry promo copy around it.
var motomercadoPriceRe = regexp.MustCompile(`\$?\s*([0-9]{1,3}(?:[.,][0-9]{3})*(?:[.,][0-9]{2})?)`)

// motomercadoPriceFallbacks are tried when the configured price chain
// matches nothing; only values containing a currency sign are accepted.
var motomercadoPriceFallbacks = Chain{
	`//span[contains(@class, "price")]/text()`,
	`//div[contains(@class, "price")]//text()`,
	`//span[contains(text(), "$")]/text()`,
}

var motomercadoPriceChain = Chain{
	`//span[@class="price-current"]/text()`,
	`//*[@id="price_display"]/text()`,
	`//span[contains(@class, "price")]/text()`,
}

func newMotomercado() *Site {
	sel := Selectors{
		MenuItems: Chain{`/html/body/header/div[3]/div/div[1]/div/ul/li`},
		MenuLink:  Chain{`./div/a`},
		Submenu:   Chain{`.//ul`},
		SubLinks:  Chain{`.//a`},

		ProductLinks: Chain{`//div[contains(@class, "item-product")]//a/@href`},
		NextPage:     Chain{`//a[@class="pagination-next"]/@href`},

		ProductName: Chain{
			`//h1[@class="product-name"]/text()`,
			`//h1/text()`,
		},
		ProductPrice: motomercadoPriceChain,
		ProductImages: Chain{
			`//div[@class="product-images"]//img/@src`,
			`//div[contains(@class, "image")]//img/@src`,
		},
		ProductDescription: Chain{
			`//div[@class="product-description"]//text()`,
			`//div[contains(@class, "description")]//text()`,
			`//*[@id="single-product"]//p/text()`,
		},
		AttrRows:  Chain{`//*[@id="single-product"]/div[2]/div/div[1]/div[1]/ul/li`},
		AttrKey:   Chain{`.//strong/text()`},
		AttrValue: Chain{`./text()`},
		DiscountText: Chain{
			`//*[contains(@class, "offer") and contains(text(), "%") and contains(text(), "OFF")]/text()`,
			`//div[contains(@class, "text-uppercase") and contains(@class, "font-weight-bold") and contains(text(), "% Off")]/text()`,
			`//span[contains(@class, "offer") and contains(text(), "%")]/text()`,
		},
		BreadcrumbLast: Chain{
			`//nav[@class="breadcrumb"]//a[last()]`,
			`//ol[@class="breadcrumb"]//a[last()]`,
			`//*[contains(@class, "breadcrumb")]//a[last()]`,
		},

		SourceLogo: Chain{`//*[@id="logo-wrapper"]/img/@src`},
	}

	site := &Site{
		Name:          "motomercado",
		AllowedDomain: "motomercado.com.ar",
		EntryPoints:   []EntryPoint{{URL: "https://motomercado.com.ar"}},
		Selectors:     sel,
		Pagination:    true,
		// The shop throttles aggressively; keep a single slow lane.
		Concurrency: 1,
		Delay:       2 * time.Second,
	}
	site.Overrides = Hooks{
		FieldPrice: motomercadoPrice,
		FieldDescription: func(doc *Document, rec *ProductRecord) error {
			rec.Description = strPtr(doc.Root().TextJoin(sel.ProductDescription, " "))
			return nil
		},
	}
	return site
}

func motomercadoPrice(doc *Document, rec *ProductRecord) error {
	raw := doc.Root().Text(motomercadoPriceChain)
	if raw == "" {
		for _, fb := range motomercadoPriceFallbacks {
			if t := doc.Root().Text(Chain{fb}); t != "" && containsFold(t, "$") {
				raw = t
				break
			}
		}
	}
	if m := motomercadoPriceRe.FindStringSubmatch(raw); m != nil {
		rec.Price = CleanPrice(m[1])
		return nil
	}
	rec.Price = nil
	return nil
}
