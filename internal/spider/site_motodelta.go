package spider

// mercadoShopsSelectors is the shared extraction map for MercadoShops
// storefronts. Sites on that platform start from it and override the
// store-page selectors, which differ per shop theme.
func mercadoShopsSelectors() Selectors {
	return Selectors{
		MenuItems: Chain{`//ul[@id="nav-list"]/li[contains(@class, "nav-list__item")]`},
		MenuLink:  Chain{`./a[@class="nav-list__link"]`},
		Submenu:   Chain{`.//ul[contains(@class, "nav-list__item-subcategory") or contains(@class, "nav-modern-list--vertical__attribute_container") or contains(@class, "grid-list")]`},
		SubLinks:  Chain{`.//a`},

		ProductLinks: Chain{`//*[@id="root-app"]/div/div[2]/section/ol/li//div[@class="poly-card__content"]/a/@href`},
		NextPage:     Chain{`//*[@id="root-app"]/div/div[2]/section/nav//li[contains(@class, "andes-pagination__button--next")]/a/@href`},

		ProductName:        Chain{`//h1/text()`},
		ProductPrice:       Chain{`//*[@id="price"]/div/div[1]/div[1]/span/span/span[2]/text()`},
		ProductImages:      Chain{`//div//img/@data-zoom`},
		ProductDescription: Chain{`//*[@class="ui-pdp-description__content"]/text()`},
		AttrRows:           Chain{`//table[@class="andes-table"]//tr[th and td]`},
		AttrKey:            Chain{`.//th//text()`},
		AttrValue:          Chain{`.//td//span[@class="andes-table__column--value"]/text()`},
		BreadcrumbLast:     Chain{`//*[contains(@class, "andes-breadcrumb")]//li[last()]/a`},
	}
}

func newMotodelta() *Site {
	sel := mercadoShopsSelectors()
	sel.SourceLogo = Chain{`//*[@id="image-logo"]/@src`}
	sel.SourceAddress = Chain{`//*[@id="shop-address-link"]/span/text()`}
	sel.SourceFacebook = Chain{`//*[@id="footer-container"]/footer/div[1]/div[2]/div[1]/div[1]/a[1]/@href`}
	sel.SourceInstagram = Chain{`//*[@id="footer-container"]/footer/div[1]/div[2]/div[1]/div[1]/a[2]/@href`}
	sel.SourcePhone = Chain{`//*[@id="shop-phone-link"]/span/text()`}
	sel.SourceEmail = Chain{`//*[@id="shop-mail-link"]/span/text()`}

	return &Site{
		Name:          "motodelta",
		AllowedDomain: "www.motodelta.com.ar",
		EntryPoints:   []EntryPoint{{URL: "https://www.motodelta.com.ar"}},
		Selectors:     sel,
		Pagination:    true,
		UseBrowser:    true,
	}
}
