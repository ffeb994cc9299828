package spider

import "time"

var motosportPriceChain = Chain{`//*[@class="price-wrapper"]/p//span[@class="woocommerce-Price-amount amount"]/bdi/text()`}

func newMotosport() *Site {
	sel := Selectors{
		MenuItems: Chain{`//*[@id="masthead"]/div/div[3]/ul/li`},
		MenuLink:  Chain{`./a`},

		ProductLinks: Chain{`//*[@id="main"]/div/div[1]/div/div[3]/div/div/div[2]/div[1]/div[1]/a/@href`},
		NextPage:     Chain{`//*[@id="main"]/div/div[1]/div/div[4]/nav/ul/li[9]/a/@href`},

		ProductName:        Chain{`//h1/text()`},
		ProductPrice:       motosportPriceChain,
		ProductImages:      Chain{`//img[@class="wp-post-image ux-skip-lazy"]/@src`},
		ProductDescription: Chain{`//div[@class="product-short-description"]/p/text()`},
		AttrRows:           Chain{`//*[@id="accordion-additional_information-content"]/table//tr[th and td]`},
		AttrKey:            Chain{`.//th//text()`},
		AttrValue:          Chain{`.//td/p/text()`},
		DiscountText:       Chain{`/html/body/div[1]/main/div/div[3]/div/section/div[2]/div[2]/div/div/div[1]/div/div[1]/div[1]/div/div/span/text()`},
		Payments:           Chain{`//div[@class="text text-promo"]/ul/li`},

		SourceLogo:      Chain{`//*[@id="logo"]/a/img[1]/@src`},
		SourceAddress:   Chain{`//*[@id="col-2083106921"]/div/div[2]/text()`},
		SourceFacebook:  Chain{`//*[@id="col-1623850890"]/div/div/a[1]/@href`},
		SourceInstagram: Chain{`//*[@id="col-1623850890"]/div/div/a[2]/@href`},
		SourcePhone:     Chain{`//*[@id="col-783333030"]/div/div/div[2]/a/text()`},
		SourceEmail:     Chain{`//*[@id="col-1623850890"]/div/div/a[3]/@href`},
		SourceWhatsApp:  Chain{`//*[@id="col-783333030"]/div/div/div[2]/a/text()`},
	}

	return &Site{
		Name:          "motosport",
		AllowedDomain: "motosport.com.ar",
		EntryPoints:   []EntryPoint{{URL: "https://motosport.com.ar"}},
		Selectors:     sel,
		Pagination:    true,
		Delay:         3 * time.Second,
		IgnoredURLs:   []string{"/categoria/motos/"},
		Overrides: Hooks{
			// Sale items render the old and the new price; the last amount
			// on the page is the one that applies.
			FieldPrice: func(doc *Document, rec *ProductRecord) error {
				texts := doc.Root().TextAll(motosportPriceChain)
				if len(texts) == 0 {
					rec.Price = nil
					return nil
				}
				rec.Price = CleanPrice(texts[len(texts)-1])
				return nil
			},
			// The theme has no product breadcrumb; the menu name stands in
			// for the category.
			FieldCategory: func(doc *Document, rec *ProductRecord) error {
				rec.CategoryName = strPtr(rec.MenuName)
				return nil
			},
		},
	}
}
