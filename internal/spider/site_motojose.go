package spider

func newMotojose() *Site {
	sel := Selectors{
		// Menu items are the anchors themselves; no per-item link selector.
		MenuItems: Chain{`//*[@id="mainNav"]/li[2]/ul//a`},

		ProductLinks: Chain{`/html/body/div[3]/div/div/div[2]/div[2]/div[1]/div/span/a[2]/@href`},

		ProductName:        Chain{`//h1/text()`},
		ProductPrice:       Chain{`/html/body/div[3]/div/div/div[2]/div/div[2]/div/p[1]/span/text()`},
		ProductImages:      Chain{`//div[@class="owl-carousel owl-theme"]//img/@src`},
		ProductDescription: Chain{`/html/body/div[3]/div/div/div[2]/div/div[2]/div/p[2]/text()`},
		BreadcrumbLast:     Chain{`/html/body/div[3]/div/div/div[2]/div/div[2]/div/div[2]/span/a[last()]`},

		SourceLogo:     Chain{`//*[@id="header"]/div/div/div/div[1]/div/div/a/img/@src`},
		SourceAddress:  Chain{`//*[@id="footer"]/div[1]/div/div[4]/ul[1]/li/p/text()`},
		SourcePhone:    Chain{`//*[@id="footer"]/div[1]/div/div[3]/ul/li[2]/p/a/text()`},
		SourceEmail:    Chain{`//*[@id="footer"]/div[1]/div/div[3]/ul/li[3]/p/a/@href`},
		SourceWhatsApp: Chain{`//*[@id="footer"]/div[1]/div/div[3]/ul/li[2]/p/a/@href`},
		BusinessHours:  Chain{`//*[@id="footer"]/div[1]/div/div[4]/ul[2]/li/p/text()`},
	}

	descSel := sel.ProductDescription
	return &Site{
		Name:          "motojose",
		AllowedDomain: "motojose.com.ar",
		EntryPoints:   []EntryPoint{{URL: "https://motojose.com.ar"}},
		Selectors:     sel,
		Pagination:    false,
		Overrides: Hooks{
			FieldDescription: func(doc *Document, rec *ProductRecord) error {
				rec.Description = strPtr(doc.Root().TextJoin(descSel, "\r"))
				return nil
			},
		},
	}
}
